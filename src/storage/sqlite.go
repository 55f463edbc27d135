package storage

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"startpage-sync/src/helpers"
	"startpage-sync/src/logger"
	"startpage-sync/src/models"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS {sites} (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT '',
		url TEXT,
		icon_type TEXT,
		custom_icon_url TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS {wallpapers} (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		url TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS wallpapers_type_created ON {wallpapers} (type, created_at)`,
	`CREATE TABLE IF NOT EXISTS {settings} (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	*sqlStore
	Config *models.MConfig
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		sqlStore: &sqlStore{},
		Config:   cfg,
		Logger:   log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return helpers.NewDatabaseError("create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open sqlite", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping sqlite", err)
	}

	// One writer at a time; WAL keeps readers unblocked.
	db.SetMaxOpenConns(1)
	d.db = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	if err := d.createTables(sqliteSchema); err != nil {
		return err
	}

	d.Logger.Info("SQLite store ready at %s", dsn)
	return nil
}
