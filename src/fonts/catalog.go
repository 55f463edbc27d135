package fonts

import (
	"context"
	"encoding/json"
	"time"

	"startpage-sync/src/helpers"
	"startpage-sync/src/interfaces"
	"startpage-sync/src/logger"
	"startpage-sync/src/models"
	"startpage-sync/src/utils"
)

// Catalog serves the web font list through a TTL cache owned by the caller.
type Catalog struct {
	URL     string
	Network interfaces.INetworkManager
	Cache   *utils.TTLCache[models.MFontCatalog]
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

// NewCache builds the cache sized by fonts.ttl_hours.
func NewCache(cfg *models.MConfig) *utils.TTLCache[models.MFontCatalog] {
	return utils.NewTTLCache[models.MFontCatalog](time.Duration(cfg.Fonts.TTLHours) * time.Hour)
}

// -----------------------------------------------------------------------------

func NewCatalog(cfg *models.MConfig, netMgr interfaces.INetworkManager, cache *utils.TTLCache[models.MFontCatalog], log *logger.Logger) *Catalog {
	return &Catalog{
		URL:     cfg.Providers.FontCatalogURL,
		Network: netMgr,
		Cache:   cache,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

// Catalog returns the cached list, refreshing it once the TTL has passed. An
// upstream failure is only reported when nothing was ever cached.
func (c *Catalog) Catalog(ctx context.Context) (models.MFontCatalog, error) {
	v, stale, err := c.Cache.GetOrLoad(ctx, c.load)
	if err != nil {
		return models.MFontCatalog{}, err
	}
	if stale {
		c.Logger.Warning("Serving stale font catalog from %s", v.FetchedAt.Format(time.RFC3339))
	}
	return v, nil
}

// -----------------------------------------------------------------------------

type webfontsResponse struct {
	Items []models.MFontFamily `json:"items"`
}

func (c *Catalog) load(ctx context.Context) (models.MFontCatalog, error) {
	body, err := c.Network.Get(ctx, c.URL, nil, nil)
	if err != nil {
		return models.MFontCatalog{}, err
	}

	var resp webfontsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.MFontCatalog{}, helpers.NewProviderDataError("font catalog: %v", err)
	}
	if len(resp.Items) == 0 {
		return models.MFontCatalog{}, helpers.NewProviderDataError("font catalog is empty")
	}

	families := resp.Items[:0]
	for _, f := range resp.Items {
		if f.Family != "" {
			families = append(families, f)
		}
	}

	c.Logger.Info("Loaded %d font families", len(families))
	return models.MFontCatalog{Families: families, FetchedAt: c.Cache.Now()}, nil
}
