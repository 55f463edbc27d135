package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"startpage-sync/src/helpers"
	"startpage-sync/src/interfaces"
	"startpage-sync/src/logger"
	"startpage-sync/src/models"
)

// sqlStore holds the queries shared by the sqlite and postgres backends.
// Queries are written with ? placeholders and {table} names; the dialect
// rewrites both.
type sqlStore struct {
	db       *sql.DB
	schema   string // empty for sqlite
	numbered bool   // $1, $2 placeholders
}

// -----------------------------------------------------------------------------

func (s *sqlStore) rebind(query string) string {
	for _, t := range []string{"sites", "wallpapers", "settings"} {
		name := t
		if s.schema != "" {
			name = fmt.Sprintf(`"%s"."%s"`, s.schema, t)
		}
		query = strings.ReplaceAll(query, "{"+t+"}", name)
	}

	if !s.numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// -----------------------------------------------------------------------------

func (s *sqlStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

// -----------------------------------------------------------------------------

func (s *sqlStore) createTables(ddl []string) error {
	for _, stmt := range ddl {
		if _, err := s.db.Exec(s.rebind(stmt)); err != nil {
			return helpers.NewDatabaseError("create tables", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Sites
// -----------------------------------------------------------------------------

func (s *sqlStore) ListSites(ctx context.Context) ([]models.MSite, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, name, url, icon_type, custom_icon_url FROM {sites} ORDER BY id`))
	if err != nil {
		return nil, helpers.NewDatabaseError("list sites", err)
	}
	defer rows.Close()

	var sites []models.MSite
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, helpers.NewDatabaseError("scan site", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("list sites", err)
	}
	return sites, nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) GetSite(ctx context.Context, id int64) (*models.MSite, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, name, url, icon_type, custom_icon_url FROM {sites} WHERE id = ?`), id)

	site, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, helpers.NewNotFoundError("site %d not found", id)
	}
	if err != nil {
		return nil, helpers.NewDatabaseError(fmt.Sprintf("get site %d", id), err)
	}
	return &site, nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) InsertSite(ctx context.Context, site models.MSite) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO {sites} (name, url, icon_type, custom_icon_url) VALUES (?, ?, ?, ?) RETURNING id`),
		site.Name, site.URL, site.IconType, site.CustomIconURL).Scan(&id)
	if err != nil {
		return 0, helpers.NewDatabaseError("insert site", err)
	}
	return id, nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) UpdateCustomIconURL(ctx context.Context, id int64, iconURL string) error {
	res, err := s.exec(ctx, `UPDATE {sites} SET custom_icon_url = ? WHERE id = ?`, iconURL, id)
	if err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("update icon of site %d", id), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return helpers.NewNotFoundError("site %d not found", id)
	}
	return nil
}

// -----------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...any) error
}

func scanSite(r scanner) (models.MSite, error) {
	var (
		site                         models.MSite
		name, url, iconType, iconURL sql.NullString
	)
	if err := r.Scan(&site.ID, &name, &url, &iconType, &iconURL); err != nil {
		return site, err
	}
	site.Name = name.String
	site.URL = nullable(url)
	site.IconType = nullable(iconType)
	site.CustomIconURL = nullable(iconURL)
	return site, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// -----------------------------------------------------------------------------
// Wallpapers
// -----------------------------------------------------------------------------

func (s *sqlStore) InsertWallpaper(ctx context.Context, w models.MWallpaper) error {
	_, err := s.exec(ctx, `INSERT INTO {wallpapers} (id, type, url, created_at) VALUES (?, ?, ?, ?)`,
		w.ID, w.Type, w.URL, w.CreatedAt.UnixMilli())
	if err != nil {
		return helpers.NewDatabaseError("insert wallpaper", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) LatestWallpaper(ctx context.Context, wallpaperType string) (*models.MWallpaper, error) {
	var (
		w         models.MWallpaper
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, type, url, created_at FROM {wallpapers} WHERE type = ? ORDER BY created_at DESC, id DESC LIMIT 1`),
		wallpaperType).Scan(&w.ID, &w.Type, &w.URL, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDatabaseError("latest wallpaper", err)
	}
	w.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &w, nil
}

// -----------------------------------------------------------------------------
// Settings
// -----------------------------------------------------------------------------

func (s *sqlStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT value FROM {settings} WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, helpers.NewDatabaseError("get setting "+key, err)
	}
	return value, true, nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.exec(ctx, `INSERT INTO {settings} (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return helpers.NewDatabaseError("put setting "+key, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// -----------------------------------------------------------------------------

// NewDatabase returns the backend selected by storage.db_type. The caller
// still has to Initialize it.
func NewDatabase(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	switch cfg.Storage.DBType {
	case "", "sqlite":
		return NewAsyncSQLiteDB(cfg, log)
	case "postgres":
		return NewPostgresDB(cfg, log)
	default:
		return nil, helpers.NewValidationError("unsupported db_type %q", cfg.Storage.DBType)
	}
}
