package storage

import (
	"fmt"

	"live-stats/src/interfaces"
	"live-stats/src/logger"
	"live-stats/src/models"
)

// NewPreferencesStore returns the backend named by storage.db_type. The store
// still needs Initialize.
func NewPreferencesStore(cfg *models.MConfig, log *logger.Logger) (interfaces.IPreferencesStore, error) {
	switch cfg.Storage.DBType {
	case "sqlite":
		return NewAsyncSQLiteDB(cfg, log)
	case "postgres":
		db, err := NewPostgresDB(cfg, log)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown database type: %s", cfg.Storage.DBType)
}
