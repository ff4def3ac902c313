package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"price-relay/src/helpers"
	"price-relay/src/logger"
	"price-relay/src/models"

	_ "github.com/lib/pq"
)

var schemaUnsafe = regexp.MustCompile(`[^a-z0-9_]+`)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresDB keeps each deployment in its own schema, named after the
// application.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) *PostgresDB {
	return &PostgresDB{
		Config: cfg,
		Schema: SchemaName(cfg.Name),
		Logger: log,
	}
}

// SchemaName lower-cases name and replaces anything outside [a-z0-9_].
func SchemaName(name string) string {
	s := schemaUnsafe.ReplaceAllString(strings.ToLower(name), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "price_relay"
	}
	return s
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewStorageError("open postgres", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewStorageError("ping postgres", err)
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewStorageError(fmt.Sprintf("create schema %s", d.Schema), err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".token_prices (
			id TEXT PRIMARY KEY,
			price DOUBLE PRECISION NOT NULL,
			price_change_24h DOUBLE PRECISION NOT NULL,
			price_change_percentage_24h DOUBLE PRECISION NOT NULL,
			market_cap DOUBLE PRECISION NOT NULL,
			volume_24h DOUBLE PRECISION NOT NULL,
			last_updated BIGINT NOT NULL
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewStorageError("create token_prices", err)
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveSnapshots(ctx context.Context, snapshots map[string]models.MPriceSnapshot) error {
	return upsertSnapshots(ctx, d.DB, fmt.Sprintf(`
		INSERT INTO "%s".token_prices (id, price, price_change_24h, price_change_percentage_24h, market_cap, volume_24h, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			price = EXCLUDED.price,
			price_change_24h = EXCLUDED.price_change_24h,
			price_change_percentage_24h = EXCLUDED.price_change_percentage_24h,
			market_cap = EXCLUDED.market_cap,
			volume_24h = EXCLUDED.volume_24h,
			last_updated = EXCLUDED.last_updated
	`, d.Schema), snapshots)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LoadSnapshots(ctx context.Context) (map[string]models.MPriceSnapshot, error) {
	return loadSnapshots(ctx, d.DB, fmt.Sprintf(`
		SELECT id, price, price_change_24h, price_change_percentage_24h, market_cap, volume_24h, last_updated
		FROM "%s".token_prices
	`, d.Schema))
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
