package wallpaper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"startpage-sync/src/helpers"
	"startpage-sync/src/interfaces"
	"startpage-sync/src/logger"
	"startpage-sync/src/models"
	"startpage-sync/src/utils"
)

// WallpaperManager appends the daily wallpaper to the store and serves the
// latest one as the offline fallback of the layout background.
type WallpaperManager struct {
	Config  *models.MConfig
	Store   interfaces.IWallpaperStore
	Network interfaces.INetworkManager
	Logger  *logger.Logger
	Now     func() time.Time
	NewID   func() string

	exchanger interfaces.IDataExchanger
}

// -----------------------------------------------------------------------------

func NewWallpaperManager(cfg *models.MConfig, store interfaces.IWallpaperStore, netMgr interfaces.INetworkManager, log *logger.Logger) *WallpaperManager {
	return &WallpaperManager{
		Config:  cfg,
		Store:   store,
		Network: netMgr,
		Logger:  log,
		Now:     time.Now,
		NewID:   uuid.NewString,
	}
}

// -----------------------------------------------------------------------------

func (m *WallpaperManager) SetExchanger(ex interfaces.IDataExchanger) {
	m.exchanger = ex
}

// -----------------------------------------------------------------------------

func (m *WallpaperManager) feeds() []utils.Provider[models.MWallpaperDescriptor] {
	chain := make([]utils.Provider[models.MWallpaperDescriptor], 0, len(m.Config.Providers.WallpaperFeeds))
	for _, feed := range m.Config.Providers.WallpaperFeeds {
		f := &BingFeed{Feed: feed, Network: m.Network}
		chain = append(chain, utils.Provider[models.MWallpaperDescriptor]{Name: feed.Name, Fetch: f.Descriptor})
	}
	return chain
}

// -----------------------------------------------------------------------------

// SyncBing records today's wallpaper as a new row. The image is cached under
// the upload dir when possible; otherwise the row keeps the remote URL.
func (m *WallpaperManager) SyncBing(ctx context.Context) (*models.MWallpaper, error) {
	desc, feed, err := utils.FirstSuccess(ctx, m.feeds())
	if err != nil {
		return nil, err
	}

	w := models.MWallpaper{
		ID:        m.NewID(),
		Type:      models.WallpaperTypeBing,
		URL:       desc.URL,
		CreatedAt: m.Now().UTC(),
	}

	if local, err := m.cacheImage(ctx, w.ID, desc.URL); err != nil {
		m.Logger.Warning("Keeping remote wallpaper url, caching failed: %v", err)
	} else {
		w.URL = local
	}

	if err := m.Store.InsertWallpaper(ctx, w); err != nil {
		return nil, err
	}

	m.Logger.Info("Wallpaper %s from %s: %s", w.ID, feed, desc.Title)

	if m.exchanger != nil {
		m.exchanger.Broadcast(models.MHubMessage{
			Type:      models.MessageWallpaperSynced,
			Wallpaper: &w,
			Timestamp: m.Now().UnixMilli(),
		})
	}
	return &w, nil
}

// -----------------------------------------------------------------------------

func (m *WallpaperManager) cacheImage(ctx context.Context, id, remote string) (string, error) {
	res, err := m.Network.Fetch(ctx, remote, nil, nil)
	if err != nil {
		return "", err
	}
	ct := utils.SniffImageType(res.Body, res.ContentType)
	if ct == "" {
		return "", helpers.NewProviderDataError("wallpaper %s is not an image (%s)", remote, res.ContentType)
	}

	dir := filepath.Join(m.Config.Storage.UploadDir, utils.WallpaperDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create wallpaper dir: %w", err)
	}

	name := fmt.Sprintf("%s-%s%s", models.WallpaperTypeBing, id, utils.ExtensionFor(ct))
	if err := os.WriteFile(filepath.Join(dir, name), res.Body, 0o644); err != nil {
		return "", fmt.Errorf("write wallpaper: %w", err)
	}
	return m.Config.Storage.UploadPrefix + utils.WallpaperDirName + "/" + name, nil
}

// -----------------------------------------------------------------------------

// LatestOf returns the newest row of a type, or nil when none exists.
func (m *WallpaperManager) LatestOf(ctx context.Context, wallpaperType string) (*models.MWallpaper, error) {
	return m.Store.LatestWallpaper(ctx, wallpaperType)
}

// -----------------------------------------------------------------------------

// ApplyFallback points a bing background at the latest cached wallpaper so
// the dashboard still has an image when the live one cannot load.
func (m *WallpaperManager) ApplyFallback(ctx context.Context, layout *models.MLayoutSettings) error {
	if layout == nil || layout.BackgroundType != models.WallpaperTypeBing {
		return nil
	}

	latest, err := m.LatestOf(ctx, models.WallpaperTypeBing)
	if err != nil {
		return err
	}
	if latest != nil {
		layout.BackgroundFallbackURL = latest.URL
	}
	return nil
}
