package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"startpage-sync/src/models"
)

// AppDirName is the directory under $XDG_DATA_HOME holding the database and
// cached assets when the config leaves them unset.
const AppDirName = "startpage-sync"

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse decodes YAML, fills unset fields with defaults and validates.
func Parse(data []byte) (*Config, error) {
	modelConfig := Defaults()
	if err := yaml.Unmarshal(data, modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: modelConfig}
	config.fillDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Default returns a validated configuration built only from defaults.
func Default() *Config {
	return &Config{MConfig: Defaults()}
}

// -----------------------------------------------------------------------------

// Defaults is the baseline every loaded file is merged onto.
func Defaults() *models.MConfig {
	dataDir := filepath.Join(xdg.DataHome, AppDirName)

	return &models.MConfig{
		Name:      "startpage-sync",
		Host:      "127.0.0.1",
		Port:      3001,
		LogLevel:  "INFO",
		LogFormat: "console",
		Storage: models.MStorageConfig{
			DBType:       "sqlite",
			DBPath:       filepath.Join(dataDir, "startpage.db"),
			UploadDir:    filepath.Join(dataDir, "uploads"),
			UploadPrefix: "/uploads/",
		},
		Network: models.MNetworkConfig{
			RequestTimeout: 5,
		},
		Providers: models.MProviderConfig{
			FaviconTemplates: []string{
				"https://www.google.com/s2/favicons?domain={host}&sz=128",
				"https://icons.duckduckgo.com/ip3/{host}.ico",
			},
			DomesticQuoteURL: "https://hq.sinajs.cn/list={code}",
			ChartQuoteURL:    "https://query1.finance.yahoo.com/v8/finance/chart/{symbol}",
			WallpaperFeeds: []models.MWallpaperFeed{
				{Name: "bing", URL: "https://www.bing.com/HPImageArchive.aspx?format=js&idx=0&n=1", BaseURL: "https://www.bing.com"},
				{Name: "bing-cn", URL: "https://cn.bing.com/HPImageArchive.aspx?format=js&idx=0&n=1", BaseURL: "https://cn.bing.com"},
			},
			FontCatalogURL: "https://www.googleapis.com/webfonts/v1/webfonts?sort=popularity",
		},
		Market: models.MMarketConfig{
			DomesticSymbol:         "000001.SS",
			DomesticCode:           "sh000001",
			RefreshIntervalSeconds: 60,
			Symbols: []models.MSymbolConfig{
				{ID: "sse", Name: "上证指数", Symbol: "000001.SS", Type: "index", Currency: "CNY"},
				{ID: "nasdaq", Name: "NASDAQ", Symbol: "^IXIC", Type: "index", Currency: "USD"},
				{ID: "dow", Name: "Dow Jones", Symbol: "^DJI", Type: "index", Currency: "USD"},
				{ID: "usdcny", Name: "USD/CNY", Symbol: "CNY=X", Type: "forex", Currency: "CNY"},
				{ID: "btc", Name: "Bitcoin", Symbol: "BTC-USD", Type: "crypto", Currency: "USD"},
				{ID: "gold", Name: "Gold", Symbol: "GC=F", Type: "commodity", Currency: "USD"},
			},
		},
		Fonts: models.MFontConfig{
			TTLHours: 24,
		},
	}
}

// -----------------------------------------------------------------------------

// fillDefaults restores fields a YAML file explicitly blanked.
func (c *Config) fillDefaults() {
	d := Defaults()
	if c.Storage.UploadPrefix == "" {
		c.Storage.UploadPrefix = d.Storage.UploadPrefix
	}
	if !strings.HasSuffix(c.Storage.UploadPrefix, "/") {
		c.Storage.UploadPrefix += "/"
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		c.Storage.DBPath = d.Storage.DBPath
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = d.Storage.UploadDir
	}
	if c.Fonts.TTLHours <= 0 {
		c.Fonts.TTLHours = d.Fonts.TTLHours
	}
	if c.Market.RefreshIntervalSeconds <= 0 {
		c.Market.RefreshIntervalSeconds = d.Market.RefreshIntervalSeconds
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %q", c.Storage.DBType)
	}
	if !strings.HasPrefix(c.Storage.UploadPrefix, "/") {
		return fmt.Errorf("upload prefix must start with '/': %q", c.Storage.UploadPrefix)
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}

	// Validate Providers
	if len(c.Providers.FaviconTemplates) == 0 {
		return fmt.Errorf("at least one favicon template must be configured")
	}
	for i, tpl := range c.Providers.FaviconTemplates {
		if !strings.Contains(tpl, "{host}") {
			return fmt.Errorf("favicon template %d has no {host} placeholder", i)
		}
	}
	if !strings.Contains(c.Providers.ChartQuoteURL, "{symbol}") {
		return fmt.Errorf("chart quote url must contain {symbol}")
	}
	if c.Providers.DomesticQuoteURL != "" && !strings.Contains(c.Providers.DomesticQuoteURL, "{code}") {
		return fmt.Errorf("domestic quote url must contain {code}")
	}
	if len(c.Providers.WallpaperFeeds) == 0 {
		return fmt.Errorf("at least one wallpaper feed must be configured")
	}
	for i, feed := range c.Providers.WallpaperFeeds {
		if feed.Name == "" || feed.URL == "" {
			return fmt.Errorf("wallpaper feed %d must have a name and url", i)
		}
	}

	// Validate Market symbols
	if len(c.Market.Symbols) == 0 {
		return fmt.Errorf("at least one market symbol must be configured")
	}
	seen := make(map[string]bool, len(c.Market.Symbols))
	for i, sym := range c.Market.Symbols {
		if sym.ID == "" || sym.Symbol == "" {
			return fmt.Errorf("market symbol %d must have an id and symbol", i)
		}
		if seen[sym.ID] {
			return fmt.Errorf("duplicate market symbol id: %s", sym.ID)
		}
		seen[sym.ID] = true
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
