package fonts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startpage-sync/src/helpers"
	"startpage-sync/src/logger"
	"startpage-sync/src/models"
	"startpage-sync/src/network"
)

type upstream struct {
	*httptest.Server
	hits atomic.Int32
	fail atomic.Bool
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		if u.fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"kind":"webfonts#webfontList","items":[
			{"family":"Roboto","category":"sans-serif","variants":["regular","700"]},
			{"family":"","category":"serif"},
			{"family":"Lora","category":"serif","variants":["regular"]}]}`))
	}))
	t.Cleanup(u.Close)
	return u
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newCatalog(t *testing.T, u *upstream) (*Catalog, *clock) {
	cfg := &models.MConfig{
		Network:   models.MNetworkConfig{RequestTimeout: 2},
		Providers: models.MProviderConfig{FontCatalogURL: u.URL + "/webfonts"},
		Fonts:     models.MFontConfig{TTLHours: 24},
	}
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewCache(cfg)
	cache.Now = clk.Now
	return NewCatalog(cfg, network.NewNetworkManager(cfg, logger.Discard("net")), cache, logger.Discard("fonts")), clk
}

func TestCatalog_CachesWithinTTL(t *testing.T) {
	u := newUpstream(t)
	c, clk := newCatalog(t, u)
	ctx := context.Background()

	first, err := c.Catalog(ctx)
	require.NoError(t, err)
	require.Len(t, first.Families, 2)
	assert.Equal(t, "Roboto", first.Families[0].Family)
	assert.Equal(t, []string{"regular", "700"}, first.Families[0].Variants)
	assert.Equal(t, clk.now, first.FetchedAt)

	clk.now = clk.now.Add(23 * time.Hour)
	_, err = c.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), u.hits.Load())

	clk.now = clk.now.Add(time.Hour)
	_, err = c.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), u.hits.Load())
}

func TestCatalog_ServesStaleOnUpstreamFailure(t *testing.T) {
	u := newUpstream(t)
	c, clk := newCatalog(t, u)
	ctx := context.Background()

	first, err := c.Catalog(ctx)
	require.NoError(t, err)

	u.fail.Store(true)
	clk.now = clk.now.Add(48 * time.Hour)

	stale, err := c.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, stale)
}

func TestCatalog_NoValueAndUpstreamDown(t *testing.T) {
	u := newUpstream(t)
	u.fail.Store(true)
	c, _ := newCatalog(t, u)

	_, err := c.Catalog(context.Background())
	require.Error(t, err)
	assert.True(t, helpers.IsNetwork(err))
}

func TestCatalog_ResetForcesReload(t *testing.T) {
	u := newUpstream(t)
	c, _ := newCatalog(t, u)
	ctx := context.Background()

	_, err := c.Catalog(ctx)
	require.NoError(t, err)
	c.Cache.Reset()
	_, err = c.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), u.hits.Load())
}
