package icons

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
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

var pngBody = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

type memSites struct {
	mu    sync.Mutex
	sites map[int64]models.MSite
}

func newMemSites(sites ...models.MSite) *memSites {
	m := &memSites{sites: make(map[int64]models.MSite)}
	for _, s := range sites {
		m.sites[s.ID] = s
	}
	return m
}

func (m *memSites) ListSites(ctx context.Context) ([]models.MSite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.MSite, 0, len(m.sites))
	for _, s := range m.sites {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memSites) GetSite(ctx context.Context, id int64) (*models.MSite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sites[id]
	if !ok {
		return nil, helpers.NewNotFoundError("site %d not found", id)
	}
	return &s, nil
}

func (m *memSites) InsertSite(ctx context.Context, site models.MSite) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	site.ID = int64(len(m.sites) + 1)
	m.sites[site.ID] = site
	return site.ID, nil
}

func (m *memSites) UpdateCustomIconURL(ctx context.Context, id int64, iconURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sites[id]
	s.CustomIconURL = &iconURL
	m.sites[id] = s
	return nil
}

func (m *memSites) icon(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sites[id].Icon()
}

type faviconServer struct {
	*httptest.Server
	mu    sync.Mutex
	hosts []string
	paths []string
}

func newFaviconServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request) bool) *faviconServer {
	fs := &faviconServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.paths = append(fs.paths, r.URL.Path)
		if d := r.URL.Query().Get("domain"); d != "" {
			fs.hosts = append(fs.hosts, d)
		}
		fs.mu.Unlock()

		if handler != nil && handler(w, r) {
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBody)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func newManager(t *testing.T, store *memSites, templates ...string) *IconManager {
	cfg := &models.MConfig{
		Network: models.MNetworkConfig{RequestTimeout: 2},
		Storage: models.MStorageConfig{UploadDir: t.TempDir(), UploadPrefix: "/uploads/"},
		Providers: models.MProviderConfig{
			FaviconTemplates: templates,
		},
	}
	m := NewIconManager(cfg, store, network.NewNetworkManager(cfg, logger.Discard("net")), logger.Discard("icons"))
	m.Now = func() time.Time { return time.Unix(1700000000, 0) }
	return m
}

func str(s string) *string { return &s }

func TestSyncAll_AutoSiteFetchesFaviconForHostname(t *testing.T) {
	srv := newFaviconServer(t, nil)
	store := newMemSites(models.MSite{ID: 1, URL: str("https://example.com/path?q=1")})
	m := newManager(t, store, srv.URL+"/s2?domain={host}")

	metrics, err := m.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.Processed)
	assert.Equal(t, []string{"example.com"}, srv.hosts)
	assert.Equal(t, "/uploads/icons/site-1.png?v=1700000000", store.icon(1))
	assert.FileExists(t, filepath.Join(m.Config.Storage.UploadDir, "icons", "site-1.png"))
}

func TestSyncAll_AutoAlwaysFetchesEvenWhenCached(t *testing.T) {
	srv := newFaviconServer(t, nil)
	store := newMemSites(
		models.MSite{ID: 1, URL: str("example.com"), IconType: str(models.IconTypeAuto), CustomIconURL: str("/uploads/icons/site-1.png?v=1")},
		models.MSite{ID: 2, URL: str("go.dev"), IconType: str("")},
	)
	m := newManager(t, store, srv.URL+"/s2?domain={host}")

	for range 2 {
		metrics, err := m.SyncAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, metrics.Processed)
	}
	assert.Len(t, srv.hosts, 4)
}

func TestSyncAll_UploadedIconPresentIsNoop(t *testing.T) {
	srv := newFaviconServer(t, nil)
	store := newMemSites(models.MSite{ID: 1, IconType: str(models.IconTypeUpload), CustomIconURL: str("/uploads/x.png?v=2")})
	m := newManager(t, store, srv.URL+"/s2?domain={host}")
	require.NoError(t, os.WriteFile(filepath.Join(m.Config.Storage.UploadDir, "x.png"), pngBody, 0o644))

	metrics, err := m.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.MSyncMetrics{Total: 1, Skipped: 1}, metrics)
	assert.Empty(t, srv.paths)
	assert.Equal(t, "/uploads/x.png?v=2", store.icon(1))
}

func TestSyncAll_UploadedIconMissingFallsBackToFavicon(t *testing.T) {
	srv := newFaviconServer(t, nil)
	store := newMemSites(models.MSite{ID: 7, URL: str("https://example.org"), IconType: str(models.IconTypeUpload), CustomIconURL: str("/uploads/gone.png?v=2")})
	m := newManager(t, store, srv.URL+"/s2?domain={host}")

	metrics, err := m.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.Processed)
	assert.Equal(t, []string{"example.org"}, srv.hosts)
	assert.True(t, strings.HasPrefix(store.icon(7), "/uploads/icons/site-7.png?v="))
}

func TestSyncAll_RemoteCustomURLUsedVerbatim(t *testing.T) {
	srv := newFaviconServer(t, nil)
	store := newMemSites(models.MSite{ID: 3, URL: str("https://example.com"), IconType: str(models.IconTypeUpload), CustomIconURL: str(srv.URL + "/custom/logo.png")})
	m := newManager(t, store, srv.URL+"/s2?domain={host}")

	_, err := m.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"/custom/logo.png"}, srv.paths)
	assert.Empty(t, srv.hosts)
}

func TestSyncAll_FailuresAreCountedNotRaised(t *testing.T) {
	srv := newFaviconServer(t, func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Query().Get("domain") == "broken.example" {
			w.WriteHeader(http.StatusNotFound)
			return true
		}
		return false
	})
	store := newMemSites(
		models.MSite{ID: 1, URL: str("https://broken.example")},
		models.MSite{ID: 2, URL: str("https://ok.example")},
		models.MSite{ID: 3, URL: str("://")},
		models.MSite{ID: 4},
	)
	m := newManager(t, store, srv.URL+"/s2?domain={host}")

	metrics, err := m.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, metrics.Total)
	assert.Equal(t, 1, metrics.Processed)
	assert.Equal(t, 1, metrics.Failed)
	assert.Equal(t, 2, metrics.Skipped)
	assert.Equal(t, "", store.icon(1))
}

func TestDownload_NonImageTriesNextProvider(t *testing.T) {
	srv := newFaviconServer(t, func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path == "/first" {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body>not found</body></html>"))
			return true
		}
		return false
	})
	store := newMemSites(models.MSite{ID: 1, URL: str("https://example.com")})
	m := newManager(t, store, srv.URL+"/first?domain={host}", srv.URL+"/second?domain={host}")

	require.NoError(t, m.SyncOne(context.Background(), 1))
	assert.Equal(t, []string{"/first", "/second"}, srv.paths)
}

func TestDownload_ReplacesIconWithOtherExtension(t *testing.T) {
	ico := append([]byte{0, 0, 1, 0}, make([]byte, 16)...)
	srv := newFaviconServer(t, func(w http.ResponseWriter, r *http.Request) bool {
		w.Write(ico)
		return true
	})
	store := newMemSites(models.MSite{ID: 5, URL: str("https://example.com")})
	m := newManager(t, store, srv.URL+"/?domain={host}")

	dir := filepath.Join(m.Config.Storage.UploadDir, "icons")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site-5.png"), pngBody, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site-50.png"), pngBody, 0o644))

	require.NoError(t, m.SyncOne(context.Background(), 5))

	assert.NoFileExists(t, filepath.Join(dir, "site-5.png"))
	assert.FileExists(t, filepath.Join(dir, "site-5.ico"))
	assert.FileExists(t, filepath.Join(dir, "site-50.png"))
}

func TestSyncOne_Errors(t *testing.T) {
	srv := newFaviconServer(t, func(w http.ResponseWriter, r *http.Request) bool {
		w.WriteHeader(http.StatusBadGateway)
		return true
	})
	store := newMemSites(
		models.MSite{ID: 1},
		models.MSite{ID: 2, URL: str("http://")},
		models.MSite{ID: 3, URL: str("https://example.com")},
	)
	m := newManager(t, store, srv.URL+"/?domain={host}")
	ctx := context.Background()

	assert.True(t, helpers.IsNotFound(m.SyncOne(ctx, 99)))
	assert.True(t, helpers.IsNotFound(m.SyncOne(ctx, 1)))
	assert.True(t, helpers.IsValidation(m.SyncOne(ctx, 2)))
	assert.True(t, helpers.IsNetwork(m.SyncOne(ctx, 3)))
}

func TestSyncOne_ProviderStatusIsNotSiteStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusBadRequest} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := newFaviconServer(t, func(w http.ResponseWriter, r *http.Request) bool {
				w.WriteHeader(status)
				return true
			})
			store := newMemSites(models.MSite{ID: 7, URL: str("https://example.com")})
			m := newManager(t, store, srv.URL+"/?domain={host}")

			err := m.SyncOne(context.Background(), 7)
			require.Error(t, err)
			assert.False(t, helpers.IsNotFound(err))
			assert.False(t, helpers.IsValidation(err))
			assert.True(t, helpers.IsNetwork(err))
			assert.Equal(t, http.StatusBadGateway, helpers.HTTPStatus(err))
			assert.Empty(t, store.icon(7))
		})
	}
}

func TestSyncOne_SkipDecisionSucceeds(t *testing.T) {
	srv := newFaviconServer(t, nil)
	store := newMemSites(models.MSite{ID: 1, URL: str("https://example.com"), IconType: str(models.IconTypeUpload), CustomIconURL: str("data:image/png;base64,AAAA")})
	m := newManager(t, store, srv.URL+"/?domain={host}")

	require.NoError(t, m.SyncOne(context.Background(), 1))
	assert.Empty(t, srv.paths)
}

func TestDecide(t *testing.T) {
	m := newManager(t, newMemSites())
	require.NoError(t, os.WriteFile(filepath.Join(m.Config.Storage.UploadDir, "have.png"), pngBody, 0o644))

	cases := []struct {
		name string
		site models.MSite
		want Decision
	}{
		{"absent type", models.MSite{}, FetchFavicon},
		{"auto", models.MSite{IconType: str("auto")}, FetchFavicon},
		{"upload empty", models.MSite{IconType: str("upload")}, FetchFavicon},
		{"upload present", models.MSite{IconType: str("upload"), CustomIconURL: str("/uploads/have.png?v=9")}, Skip},
		{"upload missing", models.MSite{IconType: str("upload"), CustomIconURL: str("/uploads/nope.png")}, FetchFavicon},
		{"upload remote", models.MSite{IconType: str("upload"), CustomIconURL: str("https://cdn.example/i.png")}, FetchCustomURL},
		{"upload remote upper-case scheme", models.MSite{IconType: str("upload"), CustomIconURL: str("HTTPS://cdn.example/i.png")}, FetchCustomURL},
		{"upload remote mixed-case http", models.MSite{IconType: str("upload"), CustomIconURL: str("Http://cdn.example/i.png")}, FetchCustomURL},
		{"upload scheme without host", models.MSite{IconType: str("upload"), CustomIconURL: str("https://")}, Skip},
		{"upload other", models.MSite{IconType: str("upload"), CustomIconURL: str("icons/rel.png")}, Skip},
		{"unknown type", models.MSite{IconType: str("emoji")}, Skip},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, m.Decide(tc.site))
		})
	}
}

func TestLocalPath_StaysInsideUploadDir(t *testing.T) {
	m := newManager(t, newMemSites())
	root := m.Config.Storage.UploadDir

	assert.Equal(t, filepath.Join(root, "x.png"), m.LocalPath("/uploads/x.png?v=2"))
	assert.Equal(t, filepath.Join(root, "etc", "passwd"), m.LocalPath("/uploads/../../etc/passwd"))
}

func TestHostOf(t *testing.T) {
	host, err := HostOf("example.com/path")
	require.NoError(t, err)
	assert.Equal(t, "example.com", host)

	host, err = HostOf("http://user@Sub.Example.com:8080/x")
	require.NoError(t, err)
	assert.Equal(t, "Sub.Example.com", host)

	for _, bad := range []string{"", "   ", "https://", "http://:80"} {
		_, err := HostOf(bad)
		assert.True(t, helpers.IsValidation(err), "input %q", bad)
	}
}
