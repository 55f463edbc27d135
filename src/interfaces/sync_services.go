package interfaces

import (
	"context"

	"startpage-sync/src/models"
)

// -----------------------------------------------------------------------------
// Service contracts consumed by the HTTP layer and the CLI.
// -----------------------------------------------------------------------------

type IIconSyncer interface {
	SyncAll(ctx context.Context) (models.MSyncMetrics, error)
	SyncOne(ctx context.Context, siteID int64) error
}

type IWallpaperSyncer interface {
	SyncBing(ctx context.Context) (*models.MWallpaper, error)
	LatestOf(ctx context.Context, wallpaperType string) (*models.MWallpaper, error)
	ApplyFallback(ctx context.Context, layout *models.MLayoutSettings) error
}

type IQuoteAggregator interface {
	FetchAll(ctx context.Context, symbols []models.MSymbolConfig) []models.MQuote
	Symbols() []models.MSymbolConfig
}

type IMetadataFetcher interface {
	Fetch(ctx context.Context, rawURL string) (models.MPageMetadata, error)
}

type IFontCatalog interface {
	Catalog(ctx context.Context) (models.MFontCatalog, error)
}
