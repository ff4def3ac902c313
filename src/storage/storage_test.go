package storage

import (
	"context"
	"path/filepath"
	"testing"

	"price-relay/src/helpers"
	"price-relay/src/logger"
	"price-relay/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T) *SQLiteDB {
	t.Helper()
	cfg := &models.MConfig{Storage: models.MStorageConfig{DBType: "sqlite", DBPath: filepath.Join(t.TempDir(), "prices.db")}}
	db := NewSQLiteDB(cfg, logger.NewNopLogger())
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteUpsertAndLoad(t *testing.T) {
	db := newSQLite(t)
	ctx := context.Background()

	require.NoError(t, db.SaveSnapshots(ctx, map[string]models.MPriceSnapshot{
		"eth": {ID: "eth", Price: 2500, Volume24h: 2500000, LastUpdated: 10},
		"sol": {ID: "sol", Price: 150, LastUpdated: 10},
	}))
	require.NoError(t, db.SaveSnapshots(ctx, map[string]models.MPriceSnapshot{
		"eth": {ID: "eth", Price: 2600, MarketCap: 5, LastUpdated: 20},
	}))

	got, err := db.LoadSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2600.0, got["eth"].Price)
	assert.Equal(t, 5.0, got["eth"].MarketCap)
	assert.Equal(t, int64(20), got["eth"].LastUpdated)
	assert.Equal(t, 150.0, got["sol"].Price)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.db")
	cfg := &models.MConfig{Storage: models.MStorageConfig{DBPath: path}}

	first := NewSQLiteDB(cfg, logger.NewNopLogger())
	require.NoError(t, first.Initialize())
	require.NoError(t, first.SaveSnapshots(context.Background(), map[string]models.MPriceSnapshot{"eth": {Price: 1}}))
	require.NoError(t, first.Close())

	second := NewSQLiteDB(cfg, logger.NewNopLogger())
	require.NoError(t, second.Initialize())
	defer second.Close()

	got, err := second.LoadSnapshots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, got["eth"].Price)
}

func TestSaveEmptyIsNoop(t *testing.T) {
	db := newSQLite(t)
	assert.NoError(t, db.SaveSnapshots(context.Background(), nil))
}

func TestSchemaName(t *testing.T) {
	assert.Equal(t, "price_relay", SchemaName("price-relay"))
	assert.Equal(t, "relay_eu_1", SchemaName("Relay EU/1"))
	assert.Equal(t, "price_relay", SchemaName("--"))
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(&models.MConfig{Storage: models.MStorageConfig{DBType: "postgres"}}, logger.NewNopLogger())
	require.NoError(t, err)
	assert.IsType(t, &PostgresDB{}, s)

	s, err = NewStore(&models.MConfig{}, logger.NewNopLogger())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteDB{}, s)

	_, err = NewStore(&models.MConfig{Storage: models.MStorageConfig{DBType: "mongo"}}, logger.NewNopLogger())
	var ce *helpers.ConfigurationError
	assert.ErrorAs(t, err, &ce)
}
