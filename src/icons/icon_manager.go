package icons

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"startpage-sync/src/helpers"
	"startpage-sync/src/interfaces"
	"startpage-sync/src/logger"
	"startpage-sync/src/models"
	"startpage-sync/src/utils"
)

// Decision is the outcome of inspecting a site's icon fields.
type Decision int

const (
	Skip Decision = iota
	FetchFavicon
	FetchCustomURL
)

func (d Decision) String() string {
	switch d {
	case FetchFavicon:
		return "favicon"
	case FetchCustomURL:
		return "custom-url"
	default:
		return "skip"
	}
}

// -----------------------------------------------------------------------------

// IconManager keeps every site's cached icon present on disk. Downloads run
// one at a time so favicon services are not hammered by a large dashboard.
type IconManager struct {
	Config  *models.MConfig
	Store   interfaces.ISiteStore
	Network interfaces.INetworkManager
	Logger  *logger.Logger
	Now     func() time.Time

	runner    *utils.BatchRunner
	exchanger interfaces.IDataExchanger
}

// -----------------------------------------------------------------------------

func NewIconManager(cfg *models.MConfig, store interfaces.ISiteStore, netMgr interfaces.INetworkManager, log *logger.Logger) *IconManager {
	return &IconManager{
		Config:  cfg,
		Store:   store,
		Network: netMgr,
		Logger:  log,
		Now:     time.Now,
		runner:  utils.NewBatchRunner(1),
	}
}

// -----------------------------------------------------------------------------

// SetExchanger registers the hub notified after a batch sync.
func (m *IconManager) SetExchanger(ex interfaces.IDataExchanger) {
	m.exchanger = ex
}

// -----------------------------------------------------------------------------

// Decide reports whether a site needs a download and from where.
func (m *IconManager) Decide(site models.MSite) Decision {
	if site.Kind() == models.IconTypeAuto {
		return FetchFavicon
	}
	if site.Kind() != models.IconTypeUpload {
		return Skip
	}

	icon := site.Icon()
	switch {
	case icon == "":
		return FetchFavicon
	case isRemote(icon):
		return FetchCustomURL
	case strings.HasPrefix(icon, m.Config.Storage.UploadPrefix):
		if _, err := os.Stat(m.LocalPath(icon)); errors.Is(err, os.ErrNotExist) {
			return FetchFavicon
		}
	}
	return Skip
}

// -----------------------------------------------------------------------------

// isRemote reports an absolute http(s) URL. Schemes compare case-insensitively.
func isRemote(icon string) bool {
	u, err := url.Parse(icon)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// -----------------------------------------------------------------------------

// LocalPath maps a prefixed public URL onto the upload dir. The query string
// is dropped and the result never escapes the upload dir.
func (m *IconManager) LocalPath(publicURL string) string {
	p, _, _ := strings.Cut(publicURL, "?")
	rel := strings.TrimPrefix(p, m.Config.Storage.UploadPrefix)
	return filepath.Join(m.Config.Storage.UploadDir, filepath.FromSlash(path.Clean("/"+rel)))
}

// -----------------------------------------------------------------------------

// HostOf extracts the hostname of a site URL, assuming https when the
// scheme is missing.
func HostOf(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", helpers.NewValidationError("empty site url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", helpers.NewValidationError("invalid site url %q: %v", raw, err)
	}
	if u.Hostname() == "" {
		return "", helpers.NewValidationError("site url %q has no hostname", raw)
	}
	return u.Hostname(), nil
}

// -----------------------------------------------------------------------------

// Candidates builds the ordered download chain for a site. A custom remote
// URL is tried first and the favicon templates follow.
func (m *IconManager) Candidates(site models.MSite, d Decision) ([]utils.Provider[*models.MFetchResult], error) {
	host, err := HostOf(site.RawURL())
	if err != nil {
		return nil, err
	}

	var urls []string
	if d == FetchCustomURL {
		urls = append(urls, site.Icon())
	}
	for _, tpl := range m.Config.Providers.FaviconTemplates {
		urls = append(urls, strings.ReplaceAll(tpl, "{host}", host))
	}

	chain := make([]utils.Provider[*models.MFetchResult], 0, len(urls))
	for _, u := range urls {
		chain = append(chain, utils.Provider[*models.MFetchResult]{
			Name: u,
			Fetch: func(ctx context.Context) (*models.MFetchResult, error) {
				return m.fetchImage(ctx, u)
			},
		})
	}
	return chain, nil
}

// -----------------------------------------------------------------------------

func (m *IconManager) fetchImage(ctx context.Context, u string) (*models.MFetchResult, error) {
	res, err := m.Network.Fetch(ctx, u, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(res.Body) == 0 {
		return nil, helpers.NewProviderDataError("empty icon body from %s", u)
	}

	ct := utils.SniffImageType(res.Body, res.ContentType)
	if ct == "" {
		return nil, helpers.NewProviderDataError("%s did not return an image (%s)", u, res.ContentType)
	}
	res.ContentType = ct
	return res, nil
}

// -----------------------------------------------------------------------------

// Download fetches the icon for site and stores it as site-<id><ext>,
// replacing earlier icons of the same site.
func (m *IconManager) Download(ctx context.Context, site models.MSite, d Decision) error {
	chain, err := m.Candidates(site, d)
	if err != nil {
		return err
	}

	res, provider, err := utils.FirstSuccess(ctx, chain)
	if err != nil {
		// A provider's 4xx must not read as an unknown site or bad input.
		return helpers.NewNetworkError(fmt.Sprintf("icon download for site %d failed", site.ID), err)
	}

	name, err := m.writeIcon(site.ID, res.Body, utils.ExtensionFor(res.ContentType))
	if err != nil {
		return err
	}

	publicURL := fmt.Sprintf("%s%s/%s?v=%d", m.Config.Storage.UploadPrefix, utils.IconDirName, name, m.Now().Unix())
	if err := m.Store.UpdateCustomIconURL(ctx, site.ID, publicURL); err != nil {
		return err
	}

	m.Logger.Debug("Site %d icon cached from %s", site.ID, provider)
	return nil
}

// -----------------------------------------------------------------------------

func (m *IconManager) writeIcon(siteID int64, body []byte, ext string) (string, error) {
	dir := filepath.Join(m.Config.Storage.UploadDir, utils.IconDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create icon dir: %w", err)
	}

	base := fmt.Sprintf("site-%d", siteID)
	name := base + ext
	final := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, "."+base+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp icon: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write icon: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write icon: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store icon: %w", err)
	}

	// A previous icon may have had another extension.
	old, _ := filepath.Glob(filepath.Join(dir, base+".*"))
	for _, p := range old {
		if p != final {
			os.Remove(p)
		}
	}
	return name, nil
}

// -----------------------------------------------------------------------------

// SyncAll downloads the icon of every site that needs one. Per-site failures
// are logged and counted; only a failure to list sites is returned.
func (m *IconManager) SyncAll(ctx context.Context) (models.MSyncMetrics, error) {
	start := m.Now()

	sites, err := m.Store.ListSites(ctx)
	if err != nil {
		return models.MSyncMetrics{}, err
	}

	type job struct {
		site     models.MSite
		decision Decision
	}

	metrics := models.MSyncMetrics{Total: len(sites)}
	jobs := make([]job, 0, len(sites))
	for _, site := range sites {
		d := m.Decide(site)
		if d == Skip {
			metrics.Skipped++
			continue
		}
		if _, err := HostOf(site.RawURL()); err != nil {
			m.Logger.Debug("Skipping site %d: %v", site.ID, err)
			metrics.Skipped++
			continue
		}
		jobs = append(jobs, job{site: site, decision: d})
	}

	errs := m.runner.Run(ctx, len(jobs), func(ctx context.Context, i int) error {
		return m.Download(ctx, jobs[i].site, jobs[i].decision)
	})

	for i, err := range errs {
		if err != nil {
			m.Logger.Warning("Icon sync failed for site %d: %v", jobs[i].site.ID, err)
			metrics.Failed++
			continue
		}
		metrics.Processed++
	}

	metrics.DurationSeconds = m.Now().Sub(start).Seconds()
	m.Logger.Info("Icon sync: %d downloaded, %d skipped, %d failed of %d sites",
		metrics.Processed, metrics.Skipped, metrics.Failed, metrics.Total)

	if m.exchanger != nil {
		m.exchanger.Broadcast(models.MHubMessage{
			Type:      models.MessageIconsSynced,
			Metrics:   &metrics,
			Timestamp: m.Now().UnixMilli(),
		})
	}
	return metrics, nil
}

// -----------------------------------------------------------------------------

// SyncOne runs the same decision for a single site and reports its failure.
// A site whose cached icon is already valid succeeds without a download.
func (m *IconManager) SyncOne(ctx context.Context, siteID int64) error {
	site, err := m.Store.GetSite(ctx, siteID)
	if err != nil {
		return err
	}
	if site.RawURL() == "" {
		return helpers.NewNotFoundError("site %d has no url", siteID)
	}
	if _, err := HostOf(site.RawURL()); err != nil {
		return err
	}

	d := m.Decide(*site)
	if d == Skip {
		return nil
	}
	return m.Download(ctx, *site, d)
}
