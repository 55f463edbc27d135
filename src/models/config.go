package models

// MConfig Structure
type MConfig struct {
	Name      string          `yaml:"name"`
	Host      string          `yaml:"host"`
	Port      int             `yaml:"port"`
	LogLevel  string          `yaml:"log_level"`
	LogFormat string          `yaml:"log_format"`
	Storage   MStorageConfig  `yaml:"storage"`
	Network   MNetworkConfig  `yaml:"network"`
	Providers MProviderConfig `yaml:"providers"`
	Market    MMarketConfig   `yaml:"market"`
	Fonts     MFontConfig     `yaml:"fonts"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	UploadDir          string `yaml:"upload_dir"`    // Filesystem root of locally cached assets
	UploadPrefix       string `yaml:"upload_prefix"` // Public path prefix mapped onto UploadDir
}

type MNetworkConfig struct {
	Enabled        bool     `yaml:"enabled"` // Route outbound requests through Proxies
	Proxies        []string `yaml:"proxies"`
	RequestTimeout int      `yaml:"timeout"` // Seconds, per request
	UserAgent      string   `yaml:"user_agent"`
}

type MProviderConfig struct {
	FaviconTemplates []string         `yaml:"favicon_templates"` // "{host}" is replaced by the site hostname
	DomesticQuoteURL string           `yaml:"domestic_quote_url"`
	ChartQuoteURL    string           `yaml:"chart_quote_url"`
	WallpaperFeeds   []MWallpaperFeed `yaml:"wallpaper_feeds"`
	FontCatalogURL   string           `yaml:"font_catalog_url"`
}

type MWallpaperFeed struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	BaseURL string `yaml:"base_url"` // Prepended to relative image paths
}

type MMarketConfig struct {
	DomesticSymbol         string          `yaml:"domestic_symbol"`
	DomesticCode           string          `yaml:"domestic_code"`
	RefreshIntervalSeconds int             `yaml:"refresh_interval_seconds"`
	Symbols                []MSymbolConfig `yaml:"symbols"`
}

type MSymbolConfig struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Symbol   string `yaml:"symbol" json:"symbol"`
	Type     string `yaml:"type" json:"type"`
	Currency string `yaml:"currency" json:"currency"`
}

type MFontConfig struct {
	TTLHours int `yaml:"ttl_hours"`
}
