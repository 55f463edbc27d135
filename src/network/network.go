package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"startpage-sync/src/helpers"
	"startpage-sync/src/interfaces"
	"startpage-sync/src/logger"
	"startpage-sync/src/models"
	"startpage-sync/src/utils"
)

// NetworkManager is the resource fetcher every sync component goes through.
// Each request is bounded by the client timeout and is never retried; a
// transport failure only rotates the proxy for the next caller.
type NetworkManager struct {
	Config       *models.MConfig
	ProxyManager interfaces.IProxyManager
	Logger       *logger.Logger

	client   *http.Client
	clientMu sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewNetworkManager(cfg *models.MConfig, log *logger.Logger) *NetworkManager {
	var proxies []string
	if cfg.Network.Enabled {
		proxies = cfg.Network.Proxies
	}

	nm := &NetworkManager{
		Config:       cfg,
		ProxyManager: helpers.NewProxyManager(proxies, cfg.Network.UserAgent),
		Logger:       log,
	}
	nm.client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

func (nm *NetworkManager) createClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if nm.ProxyManager.HasProxies() {
		proxyStr, err := nm.ProxyManager.GetCurrentProxy()
		if err == nil && proxyStr != "" {
			proxyURL, err := url.Parse(proxyStr)
			if err == nil {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   nm.Timeout(),
	}
}

// -----------------------------------------------------------------------------

// Timeout is the per-request bound.
func (nm *NetworkManager) Timeout() time.Duration {
	if nm.Config.Network.RequestTimeout <= 0 {
		return utils.DefaultRequestTimeout
	}
	return time.Duration(nm.Config.Network.RequestTimeout) * time.Second
}

// -----------------------------------------------------------------------------

func (nm *NetworkManager) rotateProxy() {
	if !nm.ProxyManager.HasProxies() {
		return
	}

	nm.ProxyManager.RotateProxy()
	client := nm.createClient()

	nm.clientMu.Lock()
	nm.client = client
	nm.clientMu.Unlock()
}

// -----------------------------------------------------------------------------

// Client returns the HTTP client currently in use.
func (nm *NetworkManager) Client() *http.Client {
	nm.clientMu.RLock()
	defer nm.clientMu.RUnlock()
	return nm.client
}

// -----------------------------------------------------------------------------

// Fetch performs a single GET. Headers override the default user agent.
func (nm *NetworkManager) Fetch(ctx context.Context, urlStr string, params map[string]string, headers map[string]string) (*models.MFetchResult, error) {
	reqURL, err := url.Parse(urlStr)
	if err != nil || reqURL.Host == "" {
		return nil, helpers.NewValidationError("invalid url %q", urlStr)
	}

	if len(params) > 0 {
		q := reqURL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		reqURL.RawQuery = q.Encode()
	}
	finalURL := reqURL.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, helpers.NewValidationError("invalid request for %q: %v", finalURL, err)
	}

	req.Header.Set("User-Agent", nm.ProxyManager.GetUserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := nm.Client().Do(req)
	if err != nil {
		nm.Logger.Debug("Request to %s failed: %v", reqURL.Host, err)
		nm.rotateProxy()
		return nil, helpers.NewNetworkError(fmt.Sprintf("request to %s failed", reqURL.Host), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		nm.Logger.Debug("Bad status %d from %s", resp.StatusCode, reqURL.Host)
		return nil, helpers.NewUpstreamError(resp.StatusCode, reqURL.Host)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, utils.MaxResponseBytes+1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, helpers.NewNetworkError(fmt.Sprintf("reading %s timed out", reqURL.Host), err)
		}
		return nil, helpers.NewNetworkError(fmt.Sprintf("reading %s failed", reqURL.Host), err)
	}
	if len(body) > utils.MaxResponseBytes {
		return nil, helpers.NewProviderDataError("response from %s exceeds %d bytes", reqURL.Host, utils.MaxResponseBytes)
	}

	return &models.MFetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// -----------------------------------------------------------------------------

// Get performs a GET request and returns the response body.
func (nm *NetworkManager) Get(ctx context.Context, urlStr string, params map[string]string, headers map[string]string) ([]byte, error) {
	res, err := nm.Fetch(ctx, urlStr, params, headers)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}
