package storage

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/lib/pq"

	"startpage-sync/src/helpers"
	"startpage-sync/src/logger"
	"startpage-sync/src/models"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS {sites} (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		url TEXT,
		icon_type TEXT,
		custom_icon_url TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS {wallpapers} (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		url TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS wallpapers_type_created ON {wallpapers} (type, created_at)`,
	`CREATE TABLE IF NOT EXISTS {settings} (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

var unsafeSchemaChars = regexp.MustCompile(`[^a-z0-9_]+`)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	*sqlStore
	Config *models.MConfig
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresDB keeps every table inside a schema named after the app.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	if cfg.Storage.DBConnectionString == "" {
		return nil, helpers.NewValidationError("storage.db_connection_string is required for postgres")
	}

	schema := SchemaName(cfg.Name)
	return &PostgresDB{
		sqlStore: &sqlStore{schema: schema, numbered: true},
		Config:   cfg,
		Schema:   schema,
		Logger:   log,
	}, nil
}

// -----------------------------------------------------------------------------

// SchemaName lowercases name and replaces anything outside [a-z0-9_].
func SchemaName(name string) string {
	s := unsafeSchemaChars.ReplaceAllString(strings.ToLower(name), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "startpage_sync"
	}
	return s
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return helpers.NewDatabaseError("open postgres", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping postgres", err)
	}

	d.db = db

	if _, err := d.db.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError("create schema "+d.Schema, err)
	}

	if err := d.createTables(postgresSchema); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}
