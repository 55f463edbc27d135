package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startpage-sync/src/helpers"
	"startpage-sync/src/models"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "startpage-sync", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	flag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
	assert.Equal(t, "", flag.DefValue)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "sync-icons", "sync-icon", "sync-wallpaper", "market"}, names)
}

// -----------------------------------------------------------------------------

// writeConfig stores a config whose database lives in a temp dir and whose
// chart endpoint points at chartURL.
func writeConfig(t *testing.T, chartURL string) string {
	t.Helper()
	dir := t.TempDir()
	yml := fmt.Sprintf(`name: startpage-sync-test
port: 3999
log_level: ERROR
storage:
  db_type: sqlite
  db_path: %s
  upload_dir: %s
providers:
  domestic_quote_url: ""
  chart_quote_url: "%s/chart/{symbol}"
market:
  symbols:
    - id: nasdaq
      name: NASDAQ
      symbol: ^IXIC
      type: index
      currency: USD
    - id: gold
      name: Gold
      symbol: GC=F
      type: commodity
      currency: USD
`, filepath.Join(dir, "test.db"), filepath.Join(dir, "uploads"), chartURL)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	return path
}

// -----------------------------------------------------------------------------

func execute(args ...string) (string, error) {
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// -----------------------------------------------------------------------------

func TestMarketCommand(t *testing.T) {
	chart := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/GC=F") {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"currency":"USD","regularMarketPrice":110,"previousClose":100}}],"error":null}`)
	}))
	defer chart.Close()

	out, err := execute("market", "--config", writeConfig(t, chart.URL))
	require.NoError(t, err)

	var quotes []models.MQuote
	require.NoError(t, json.Unmarshal([]byte(out), &quotes))
	require.Len(t, quotes, 2)

	assert.Equal(t, "nasdaq", quotes[0].ID)
	assert.InDelta(t, 110, quotes[0].Price, 1e-9)
	assert.InDelta(t, 10, quotes[0].Change, 1e-9)
	assert.InDelta(t, 10, quotes[0].Percent, 1e-9)
	assert.False(t, quotes[0].Error)

	assert.Equal(t, "gold", quotes[1].ID)
	assert.True(t, quotes[1].Error)
	assert.Zero(t, quotes[1].Price)
}

// -----------------------------------------------------------------------------

func TestSyncIconsCommandEmptyStore(t *testing.T) {
	out, err := execute("sync-icons", "--config", writeConfig(t, "http://127.0.0.1:1"))
	require.NoError(t, err)
	assert.Contains(t, out, "processed 0 of 0 sites")
}

// -----------------------------------------------------------------------------

func TestSyncIconCommandErrors(t *testing.T) {
	cfg := writeConfig(t, "http://127.0.0.1:1")

	_, err := execute("sync-icon", "abc", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid site id")

	_, err = execute("sync-icon", "--config", cfg)
	require.Error(t, err)

	_, err = execute("sync-icon", "7", "--config", cfg)
	require.Error(t, err)
	assert.True(t, helpers.IsNotFound(err))
}

// -----------------------------------------------------------------------------

func TestBadConfigPath(t *testing.T) {
	_, err := execute("market", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading config")
}
