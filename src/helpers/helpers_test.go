package helpers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startpage-sync/src/logger"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", NewValidationError("bad url %q", "::"), http.StatusBadRequest},
		{"not found", NewNotFoundError("site %d not found", 3), http.StatusNotFound},
		{"upstream keeps status", NewUpstreamError(http.StatusForbidden, "https://example.com"), http.StatusForbidden},
		{"upstream without error status", NewUpstreamError(http.StatusFound, "https://example.com"), http.StatusBadGateway},
		{"network", NewNetworkError("dial", errors.New("refused")), http.StatusBadGateway},
		{"provider data", NewProviderDataError("no price"), http.StatusBadGateway},
		{"database", NewDatabaseError("insert", errors.New("locked")), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("sync site 1: %w", NewNotFoundError("gone")), http.StatusNotFound},
		{"network wraps upstream 404", NewNetworkError("icon download failed", NewUpstreamError(http.StatusNotFound, "u")), http.StatusBadGateway},
		{"network wraps joined chain", NewNetworkError("icon download failed", errors.Join(NewUpstreamError(http.StatusBadRequest, "a"), NewValidationError("b"))), http.StatusBadGateway},
		{"joined takes first classified", errors.Join(errors.New("plain"), NewUpstreamError(http.StatusForbidden, "u")), http.StatusForbidden},
		{"database wraps not found", NewDatabaseError("update", NewNotFoundError("row")), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "internal error", PublicMessage(errors.New("pq: password authentication failed")))
	assert.Equal(t, "site 9 not found", PublicMessage(NewNotFoundError("site %d not found", 9)))
}

func TestClassification(t *testing.T) {
	cause := errors.New("timeout")
	err := fmt.Errorf("fetch: %w", NewNetworkError("request failed", cause))

	assert.True(t, IsNetwork(err))
	assert.True(t, IsNetwork(NewUpstreamError(500, "u")))
	assert.False(t, IsNetwork(NewValidationError("x")))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "request failed: timeout", errors.Unwrap(err).Error())

	assert.True(t, IsValidation(NewValidationError("x")))
	assert.False(t, IsNotFound(NewValidationError("x")))
}

func TestErrorHandler(t *testing.T) {
	var buf bytes.Buffer
	h := NewErrorHandler(logger.NewLoggerWithWriter(&buf, "INFO", "console", "test"))

	h.Handle(nil, "noop")
	assert.Zero(t, h.ErrorCount())

	h.Handle(errors.New("disk full"), "icon sync")
	h.Handle(errors.New("disk full"), "wallpaper sync")
	assert.Equal(t, 2, h.ErrorCount())
	assert.Contains(t, buf.String(), "Error in icon sync: disk full")
}

// -----------------------------------------------------------------------------

func TestProxyManager(t *testing.T) {
	pm := NewProxyManager([]string{"10.0.0.1:8080", "", "ftp://bad", "socks5://10.0.0.2:1080"}, "")
	require.True(t, pm.HasProxies())

	first, err := pm.GetCurrentProxy()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:8080", first)

	pm.RotateProxy()
	second, _ := pm.GetCurrentProxy()
	assert.Equal(t, "socks5://10.0.0.2:1080", second)

	pm.RotateProxy()
	again, _ := pm.GetCurrentProxy()
	assert.Equal(t, first, again)

	assert.Contains(t, defaultUserAgents, pm.GetUserAgent())
}

func TestProxyManagerPinnedAgent(t *testing.T) {
	pm := NewProxyManager(nil, "startpage-test/1.0")
	assert.False(t, pm.HasProxies())

	p, err := pm.GetCurrentProxy()
	require.NoError(t, err)
	assert.Empty(t, p)
	assert.Equal(t, "startpage-test/1.0", pm.GetUserAgent())
}
