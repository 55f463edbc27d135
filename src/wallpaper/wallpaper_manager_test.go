package wallpaper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startpage-sync/src/helpers"
	"startpage-sync/src/logger"
	"startpage-sync/src/models"
	"startpage-sync/src/network"
)

var jpegBody = append([]byte("\xff\xd8\xff\xe0"), make([]byte, 32)...)

type memWallpapers struct {
	mu   sync.Mutex
	rows []models.MWallpaper
}

func (m *memWallpapers) InsertWallpaper(ctx context.Context, w models.MWallpaper) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, w)
	return nil
}

func (m *memWallpapers) LatestWallpaper(ctx context.Context, wallpaperType string) (*models.MWallpaper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.MWallpaper
	for i := range m.rows {
		w := m.rows[i]
		if w.Type != wallpaperType {
			continue
		}
		if latest == nil || w.CreatedAt.After(latest.CreatedAt) {
			latest = &w
		}
	}
	return latest, nil
}

type feedServer struct {
	*httptest.Server
	imageStatus int
}

func newFeedServer(t *testing.T) *feedServer {
	fs := &feedServer{imageStatus: http.StatusOK}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/down/HPImageArchive.aspx":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/HPImageArchive.aspx":
			fmt.Fprint(w, `{"images":[{"startdate":"20260501","url":"/th?id=OHR.Test_1920x1080.jpg&rf=x","title":" Test ","copyright":"(c) someone"}]}`)
		case "/th":
			if fs.imageStatus != http.StatusOK {
				w.WriteHeader(fs.imageStatus)
				return
			}
			w.Write(jpegBody)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func newManager(t *testing.T, srv *feedServer, feeds ...models.MWallpaperFeed) (*WallpaperManager, *memWallpapers) {
	cfg := &models.MConfig{
		Network: models.MNetworkConfig{RequestTimeout: 2},
		Storage: models.MStorageConfig{UploadDir: t.TempDir(), UploadPrefix: "/uploads/"},
		Providers: models.MProviderConfig{
			WallpaperFeeds: feeds,
		},
	}
	store := &memWallpapers{}
	m := NewWallpaperManager(cfg, store, network.NewNetworkManager(cfg, logger.Discard("net")), logger.Discard("wallpaper"))
	m.NewID = func() string { return "fixed-id" }
	m.Now = func() time.Time { return time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC) }
	return m, store
}

func TestSyncBing_CachesImageLocally(t *testing.T) {
	srv := newFeedServer(t)
	m, store := newManager(t, srv, models.MWallpaperFeed{Name: "bing", URL: srv.URL + "/HPImageArchive.aspx", BaseURL: srv.URL})

	w, err := m.SyncBing(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "fixed-id", w.ID)
	assert.Equal(t, models.WallpaperTypeBing, w.Type)
	assert.Equal(t, "/uploads/wallpapers/bing-fixed-id.jpg", w.URL)
	require.Len(t, store.rows, 1)
	assert.Equal(t, *w, store.rows[0])

	data, err := os.ReadFile(filepath.Join(m.Config.Storage.UploadDir, "wallpapers", "bing-fixed-id.jpg"))
	require.NoError(t, err)
	assert.Equal(t, jpegBody, data)
}

func TestSyncBing_FallsBackToNextFeed(t *testing.T) {
	srv := newFeedServer(t)
	m, store := newManager(t, srv,
		models.MWallpaperFeed{Name: "down", URL: srv.URL + "/down/HPImageArchive.aspx", BaseURL: srv.URL},
		models.MWallpaperFeed{Name: "bing", URL: srv.URL + "/HPImageArchive.aspx", BaseURL: srv.URL},
	)

	_, err := m.SyncBing(context.Background())
	require.NoError(t, err)
	assert.Len(t, store.rows, 1)
}

func TestSyncBing_ImageFailureKeepsRemoteURL(t *testing.T) {
	srv := newFeedServer(t)
	srv.imageStatus = http.StatusForbidden
	m, _ := newManager(t, srv, models.MWallpaperFeed{Name: "bing", URL: srv.URL + "/HPImageArchive.aspx", BaseURL: srv.URL})

	w, err := m.SyncBing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/th?id=OHR.Test_1920x1080.jpg&rf=x", w.URL)
}

func TestSyncBing_AllFeedsFailing(t *testing.T) {
	srv := newFeedServer(t)
	m, store := newManager(t, srv, models.MWallpaperFeed{Name: "down", URL: srv.URL + "/down/HPImageArchive.aspx", BaseURL: srv.URL})

	_, err := m.SyncBing(context.Background())
	require.Error(t, err)
	assert.True(t, helpers.IsNetwork(err))
	assert.Empty(t, store.rows)
}

func TestLatestOfAndApplyFallback(t *testing.T) {
	srv := newFeedServer(t)
	m, store := newManager(t, srv)
	ctx := context.Background()

	layout := &models.MLayoutSettings{BackgroundType: models.WallpaperTypeBing}
	require.NoError(t, m.ApplyFallback(ctx, layout))
	assert.Empty(t, layout.BackgroundFallbackURL, "no rows yet")

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	store.rows = []models.MWallpaper{
		{ID: "old", Type: models.WallpaperTypeBing, URL: "/uploads/wallpapers/old.jpg", CreatedAt: base},
		{ID: "new", Type: models.WallpaperTypeBing, URL: "/uploads/wallpapers/new.jpg", CreatedAt: base.Add(24 * time.Hour)},
	}

	latest, err := m.LatestOf(ctx, models.WallpaperTypeBing)
	require.NoError(t, err)
	assert.Equal(t, "new", latest.ID)

	require.NoError(t, m.ApplyFallback(ctx, layout))
	assert.Equal(t, "/uploads/wallpapers/new.jpg", layout.BackgroundFallbackURL)

	custom := &models.MLayoutSettings{BackgroundType: "custom", BackgroundURL: "https://img.example/a.jpg"}
	require.NoError(t, m.ApplyFallback(ctx, custom))
	assert.Empty(t, custom.BackgroundFallbackURL)
}

func TestParseArchive(t *testing.T) {
	feed := models.MWallpaperFeed{Name: "bing", BaseURL: "https://www.bing.com"}

	d, err := ParseArchive(feed, []byte(`{"images":[{"urlbase":"/th?id=OHR.Base","startdate":"20260501"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "https://www.bing.com/th?id=OHR.Base_1920x1080.jpg", d.URL)
	assert.Equal(t, "20260501", d.StartDate)

	d, err = ParseArchive(feed, []byte(`{"images":[{"url":"https://cdn.example/a.jpg"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.jpg", d.URL)

	for _, bad := range []string{`{}`, `{"images":[]}`, `{"images":[{}]}`, `{"images":[{"url":"ftp://x/a.jpg"}]}`, `<html>`} {
		_, err := ParseArchive(feed, []byte(bad))
		assert.Error(t, err, "payload %s", bad)
	}
}
