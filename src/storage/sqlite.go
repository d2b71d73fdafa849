package storage

import (
	"database/sql"
	"errors"
	"time"

	"live-stats/src/helpers"
	"live-stats/src/logger"
	"live-stats/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("failed to open sqlite", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("failed to reach sqlite", err)
	}

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

// createTables keeps existing rows: preferences must survive restarts.
func (d *AsyncSQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS preferences (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			country TEXT NOT NULL DEFAULT '',
			locale TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("failed to create preferences", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LoadPreferences() (*models.MPreferences, error) {
	var (
		prefs     models.MPreferences
		updatedAt int64
	)
	err := d.DB.QueryRow(`SELECT country, locale, updated_at FROM preferences WHERE id = 1`).
		Scan(&prefs.Country, &prefs.Locale, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("failed to load preferences", err)
	}
	prefs.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &prefs, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SavePreferences(prefs models.MPreferences) error {
	if prefs.UpdatedAt.IsZero() {
		prefs.UpdatedAt = time.Now().UTC()
	}

	_, err := d.DB.Exec(`
		INSERT INTO preferences (id, country, locale, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			country = excluded.country,
			locale = excluded.locale,
			updated_at = excluded.updated_at
	`, prefs.Country, prefs.Locale, prefs.UpdatedAt.Unix())
	if err != nil {
		return helpers.NewDatabaseError("failed to save preferences", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
