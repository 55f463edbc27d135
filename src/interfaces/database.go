package interfaces

import (
	"context"

	"startpage-sync/src/models"
)

// -----------------------------------------------------------------------------
// ISiteStore is the slice of the site table the sync engine touches.
// -----------------------------------------------------------------------------

type ISiteStore interface {

	// ListSites returns every site ordered by id.
	ListSites(ctx context.Context) ([]models.MSite, error)

	// -----------------------------------------------------------------------------

	// GetSite returns a NotFoundError when the id is unknown.
	GetSite(ctx context.Context, id int64) (*models.MSite, error)

	// -----------------------------------------------------------------------------

	// InsertSite stores a new site and returns its id.
	InsertSite(ctx context.Context, site models.MSite) (int64, error)

	// -----------------------------------------------------------------------------

	// UpdateCustomIconURL points the site at a freshly cached icon.
	UpdateCustomIconURL(ctx context.Context, id int64, iconURL string) error
}

// -----------------------------------------------------------------------------
// IWallpaperStore is the append-only wallpaper log.
// -----------------------------------------------------------------------------

type IWallpaperStore interface {

	// InsertWallpaper appends a row. Rows are never updated.
	InsertWallpaper(ctx context.Context, w models.MWallpaper) error

	// -----------------------------------------------------------------------------

	// LatestWallpaper returns the row with the greatest created_at for the type,
	// or nil when the type has no rows.
	LatestWallpaper(ctx context.Context, wallpaperType string) (*models.MWallpaper, error)
}

// -----------------------------------------------------------------------------
// ISettingsStore is a key/value document store for UI settings.
// -----------------------------------------------------------------------------

type ISettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
}

// -----------------------------------------------------------------------------
// IDatabase defines the contract for storage operations.
// -----------------------------------------------------------------------------

type IDatabase interface {
	ISiteStore
	IWallpaperStore
	ISettingsStore

	// Initialize opens the connection and creates missing tables.
	Initialize() error

	// Close the database connection
	Close() error
}
