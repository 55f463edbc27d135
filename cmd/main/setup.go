package main

import (
	"fmt"
	"io"
	"os"

	"startpage-sync/src/config"
	datasource "startpage-sync/src/data_source"
	"startpage-sync/src/data_source/sina"
	"startpage-sync/src/data_source/yahoo"
	"startpage-sync/src/fonts"
	"startpage-sync/src/helpers"
	"startpage-sync/src/icons"
	"startpage-sync/src/interfaces"
	"startpage-sync/src/logger"
	"startpage-sync/src/metadata"
	"startpage-sync/src/network"
	"startpage-sync/src/storage"
	"startpage-sync/src/wallpaper"
)

// app is the wired component graph shared by the subcommands.
type app struct {
	Config     *config.Config
	Logger     *logger.Logger
	Errors     *helpers.ErrorHandler
	DB         interfaces.IDatabase
	Network    interfaces.INetworkManager
	Icons      *icons.IconManager
	Wallpapers *wallpaper.WallpaperManager
	Quotes     *datasource.QuoteAggregator
	Metadata   *metadata.Scraper
	Fonts      *fonts.Catalog

	logOut io.Writer
}

// -----------------------------------------------------------------------------

// loadConfig reads the YAML file at path, or falls back to defaults when path
// is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		conf := config.Default()
		if err := conf.Validate(); err != nil {
			return nil, err
		}
		return conf, nil
	}
	return config.NewConfig(path)
}

// -----------------------------------------------------------------------------

// newApp loads the config and wires every component. Logs go to logOut so
// one-shot commands can keep stdout for their result.
func newApp(opts *rootOptions, logOut io.Writer) (*app, error) {
	conf, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if logOut == nil {
		logOut = os.Stdout
	}

	a := &app{Config: conf, logOut: logOut}
	a.Logger = a.newLogger(conf.Name)
	a.Errors = helpers.NewErrorHandler(a.newLogger("ErrorHandler"))

	// 1. Storage
	if err := a.setupDatabase(); err != nil {
		return nil, err
	}

	// 2. Network
	a.Network = network.NewNetworkManager(conf.MConfig, a.newLogger("NetworkManager"))

	// 3. Sync components
	a.Icons = icons.NewIconManager(conf.MConfig, a.DB, a.Network, a.newLogger("IconManager"))
	a.Wallpapers = wallpaper.NewWallpaperManager(conf.MConfig, a.DB, a.Network, a.newLogger("WallpaperManager"))
	a.setupQuotes()
	a.Metadata = metadata.NewScraper(a.Network, a.newLogger("MetadataScraper"))
	a.Fonts = fonts.NewCatalog(conf.MConfig, a.Network, fonts.NewCache(conf.MConfig), a.newLogger("FontCatalog"))

	return a, nil
}

// -----------------------------------------------------------------------------

func (a *app) newLogger(name string) *logger.Logger {
	return logger.NewLoggerWithWriter(a.logOut, a.Config.LogLevel, a.Config.LogFormat, name)
}

// -----------------------------------------------------------------------------

// setupDatabase opens the configured store and creates missing tables.
func (a *app) setupDatabase() error {
	dbName := "SQLiteDB"
	if a.Config.Storage.DBType == "postgres" {
		dbName = "PostgresDB"
	}

	db, err := storage.NewDatabase(a.Config.MConfig, a.newLogger(dbName))
	if err != nil {
		a.Logger.Error("Failed to init db: %v", err)
		return err
	}
	if err := db.Initialize(); err != nil {
		a.Logger.Error("Failed to migrate db: %v", err)
		db.Close()
		return err
	}
	a.DB = db
	return nil
}

// -----------------------------------------------------------------------------

// setupQuotes builds the domestic feed and the chart source and wraps them in
// the aggregator.
func (a *app) setupQuotes() {
	a.Logger.Info("Initializing quote sources...")
	var primary interfaces.IQuoteSource
	if a.Config.Providers.DomesticQuoteURL != "" {
		primary = sina.NewSinaSource(a.Config.MConfig, a.Network, a.newLogger("SinaSource"))
	}
	fallback := yahoo.NewYahooFinanceSource(a.Config.MConfig, a.Network, a.newLogger("YahooFinanceSource"))
	a.Quotes = datasource.NewQuoteAggregator(a.Config.MConfig, primary, fallback, a.newLogger("QuoteAggregator"))
}

// -----------------------------------------------------------------------------

func (a *app) Close() {
	if a.DB == nil {
		return
	}
	if err := a.DB.Close(); err != nil {
		a.Errors.Handle(err, "closing database")
	}
}
