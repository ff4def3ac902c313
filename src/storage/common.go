package storage

import (
	"context"
	"database/sql"

	"price-relay/src/helpers"
	"price-relay/src/models"
)

// Both drivers accept the same upsert; only placeholders differ.

// -----------------------------------------------------------------------------

func upsertSnapshots(ctx context.Context, db *sql.DB, query string, snapshots map[string]models.MPriceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return helpers.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return helpers.NewStorageError("prepare upsert", err)
	}
	defer stmt.Close()

	for id, s := range snapshots {
		_, err := stmt.ExecContext(ctx, id, s.Price, s.PriceChange24h, s.PriceChangePercentage24h, s.MarketCap, s.Volume24h, s.LastUpdated)
		if err != nil {
			return helpers.NewStorageError("upsert "+id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewStorageError("commit", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func loadSnapshots(ctx context.Context, db *sql.DB, query string) (map[string]models.MPriceSnapshot, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, helpers.NewStorageError("query snapshots", err)
	}
	defer rows.Close()

	out := make(map[string]models.MPriceSnapshot)
	for rows.Next() {
		var s models.MPriceSnapshot
		if err := rows.Scan(&s.ID, &s.Price, &s.PriceChange24h, &s.PriceChangePercentage24h, &s.MarketCap, &s.Volume24h, &s.LastUpdated); err != nil {
			return nil, helpers.NewStorageError("scan snapshot", err)
		}
		out[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewStorageError("iterate snapshots", err)
	}
	return out, nil
}
