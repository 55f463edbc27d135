package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"startpage-sync/src/interfaces"
	"startpage-sync/src/logger"
	"startpage-sync/src/models"
)

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

// Services are the sync components exposed over HTTP. Any of them may be nil,
// in which case its routes are not registered.
type Services struct {
	Icons      interfaces.IIconSyncer
	Wallpapers interfaces.IWallpaperSyncer
	Quotes     interfaces.IQuoteAggregator
	Metadata   interfaces.IMetadataFetcher
	Fonts      interfaces.IFontCatalog
	Settings   interfaces.ISettingsStore
}

var _ interfaces.IDataExchanger = (*APIServer)(nil)

type APIServer struct {
	Config     *models.MConfig
	Logger     *logger.Logger
	engine     *gin.Engine
	svc        Services
	httpServer *http.Server

	// WebSocket clients, owned by the hub goroutine
	clients    map[*Client]struct{}
	broadcast  chan models.MHubMessage
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	done       chan struct{}
	hubOnce    sync.Once
	stopOnce   sync.Once
	connCount  atomic.Int64

	// Last market snapshot, replayed to new clients
	latestQuotes []models.MQuote
	latestUpdate int64
	stateMutex   sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, svc Services, log *logger.Logger) *APIServer {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:  cfg,
		Logger:  log,
		engine:  gin.Default(),
		svc:     svc,
		clients: make(map[*Client]struct{}),
		// Buffered so sync jobs never wait on slow websocket clients
		broadcast:  make(chan models.MHubMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		done:       make(chan struct{}),
	}

	s.engine.Use(corsMiddleware)
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// -----------------------------------------------------------------------------

// corsMiddleware lets a dashboard served from a loopback origin call the API.
func corsMiddleware(c *gin.Context) {
	origin := c.Request.Header.Get("Origin")
	if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
	}
	c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	c.Next()
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	if s.svc.Icons != nil {
		s.engine.POST("/sync-icons", s.syncIcons)
		s.engine.POST("/sync-icon", s.syncIcon)
	}
	if s.svc.Wallpapers != nil {
		s.engine.POST("/wallpapers/bing/sync", s.syncBing)
		s.engine.GET("/wallpapers/:type/latest", s.latestWallpaper)
	}
	if s.svc.Quotes != nil {
		s.engine.GET("/market", s.getMarket)
	}
	if s.svc.Metadata != nil {
		s.engine.GET("/metadata", s.getMetadata)
	}
	if s.svc.Fonts != nil {
		s.engine.GET("/fonts/catalog", s.getFontCatalog)
	}
	if s.svc.Settings != nil {
		s.engine.GET("/settings/layout", s.getLayout)
		s.engine.PUT("/settings/layout", s.putLayout)
	}

	if dir := s.Config.Storage.UploadDir; dir != "" {
		s.engine.Static(strings.TrimSuffix(s.Config.Storage.UploadPrefix, "/"), dir)
	}

	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for httptest.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the hub and blocks serving HTTP until Stop is called.
func (s *APIServer) Start() error {
	s.startHub()
	s.Logger.Info("Starting server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.httpServer.Shutdown(ctx)
		close(s.done)
	})
	return err
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) syncIcons(c *gin.Context) {
	metrics, err := s.svc.Icons.SyncAll(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"processed": metrics.Processed,
		"metrics":   metrics,
	})
}

// -----------------------------------------------------------------------------

type syncIconRequest struct {
	SiteID int64 `json:"siteId"`
}

func (s *APIServer) syncIcon(c *gin.Context) {
	var req syncIconRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SiteID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "siteId is required"})
		return
	}

	if err := s.svc.Icons.SyncOne(c.Request.Context(), req.SiteID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// -----------------------------------------------------------------------------

func (s *APIServer) syncBing(c *gin.Context) {
	w, err := s.svc.Wallpapers.SyncBing(c.Request.Context())
	if err != nil {
		s.Logger.Error("Wallpaper sync failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "wallpaper sync failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "wallpaper": w})
}

// -----------------------------------------------------------------------------

func (s *APIServer) latestWallpaper(c *gin.Context) {
	w, err := s.svc.Wallpapers.LatestOf(c.Request.Context(), c.Param("type"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if w == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no wallpaper cached"})
		return
	}
	c.JSON(http.StatusOK, w)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getMarket(c *gin.Context) {
	quotes := s.svc.Quotes.FetchAll(c.Request.Context(), s.svc.Quotes.Symbols())
	c.JSON(http.StatusOK, quotes)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getMetadata(c *gin.Context) {
	target := strings.TrimSpace(c.Query("url"))
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "url is required"})
		return
	}

	meta, err := s.svc.Metadata.Fetch(c.Request.Context(), target)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getFontCatalog(c *gin.Context) {
	catalog, err := s.svc.Fonts.Catalog(c.Request.Context())
	if err != nil {
		s.Logger.Warning("Font catalog unavailable: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "font catalog unavailable"})
		return
	}
	c.JSON(http.StatusOK, catalog)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getLayout(c *gin.Context) {
	layout, err := s.loadLayout(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	if s.svc.Wallpapers != nil {
		if err := s.svc.Wallpapers.ApplyFallback(c.Request.Context(), &layout); err != nil {
			s.Logger.Warning("Layout served without wallpaper fallback: %v", err)
		}
	}
	c.JSON(http.StatusOK, layout)
}

// -----------------------------------------------------------------------------

func (s *APIServer) putLayout(c *gin.Context) {
	var layout models.MLayoutSettings
	if err := c.ShouldBindJSON(&layout); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "layout must be a JSON object"})
		return
	}

	// The fallback is derived on read and never stored.
	layout.BackgroundFallbackURL = ""
	if err := s.storeLayout(c.Request.Context(), layout); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	timestamp := s.latestUpdate
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   s.connCount.Load(),
		"latest_update": timestamp,
	})
}
