package storage

import (
	"fmt"

	"price-relay/src/helpers"
	"price-relay/src/interfaces"
	"price-relay/src/logger"
	"price-relay/src/models"
)

// -----------------------------------------------------------------------------

// NewStore picks the backend named by storage.db_type.
func NewStore(cfg *models.MConfig, log *logger.Logger) (interfaces.ISnapshotStore, error) {
	switch cfg.Storage.DBType {
	case "postgres":
		return NewPostgresDB(cfg, log), nil
	case "sqlite", "":
		return NewSQLiteDB(cfg, log), nil
	default:
		return nil, helpers.NewConfigurationError(fmt.Sprintf("unsupported database type: %s", cfg.Storage.DBType), nil)
	}
}
