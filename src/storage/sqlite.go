package storage

import (
	"context"
	"database/sql"

	"price-relay/src/helpers"
	"price-relay/src/logger"
	"price-relay/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) *SQLiteDB {
	return &SQLiteDB{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewStorageError("open sqlite", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewStorageError("ping sqlite", err)
	}

	// One writer at a time; the mirror worker is the only caller anyway.
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS token_prices (
			id TEXT PRIMARY KEY,
			price REAL NOT NULL,
			price_change_24h REAL NOT NULL,
			price_change_percentage_24h REAL NOT NULL,
			market_cap REAL NOT NULL,
			volume_24h REAL NOT NULL,
			last_updated INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewStorageError("create token_prices", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SaveSnapshots(ctx context.Context, snapshots map[string]models.MPriceSnapshot) error {
	return upsertSnapshots(ctx, d.DB, `
		INSERT INTO token_prices (id, price, price_change_24h, price_change_percentage_24h, market_cap, volume_24h, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			price = excluded.price,
			price_change_24h = excluded.price_change_24h,
			price_change_percentage_24h = excluded.price_change_percentage_24h,
			market_cap = excluded.market_cap,
			volume_24h = excluded.volume_24h,
			last_updated = excluded.last_updated
	`, snapshots)
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) LoadSnapshots(ctx context.Context) (map[string]models.MPriceSnapshot, error) {
	return loadSnapshots(ctx, d.DB, `
		SELECT id, price, price_change_24h, price_change_percentage_24h, market_cap, volume_24h, last_updated
		FROM token_prices
	`)
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
