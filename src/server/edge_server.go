package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"coindash/src/logger"
	"coindash/src/models"
	"coindash/src/utils"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// EdgeServer
// -----------------------------------------------------------------------------

type EdgeServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Service *CacheService
	engine  *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MSeriesEvent // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client

	// done gates every send into the channels above; the channels
	// themselves are never closed, so a late resolver or upgrade can
	// never panic on a send during shutdown.
	done     chan struct{}
	stopOnce sync.Once

	clientsMu sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewEdgeServer(cfg *models.MConfig, service *CacheService, log *logger.Logger) *EdgeServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &EdgeServer{
		Config:  cfg,
		Logger:  log,
		Service: service,
		engine:  gin.Default(),
		clients: make(map[*Client]struct{}),
		// Buffered channel so bursts of updates never block resolvers
		broadcast:  make(chan *models.MSeriesEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *EdgeServer) setupRoutes() {
	// REST API endpoints
	s.engine.POST("/api/series", s.postSeries)
	s.engine.GET("/api/metrics", s.getMetrics)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/health", s.getHealth)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *EdgeServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting edge server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

// Stop shuts the hub loop down. Idempotent.
func (s *EdgeServer) Stop() error {
	s.stopOnce.Do(func() { close(s.done) })
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *EdgeServer) postSeries(c *gin.Context) {
	var req models.MSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.MErrorResponse{
			Error:      "malformed request body",
			IsMockData: true,
			DataSource: "error-fallback",
		})
		return
	}
	if err := ValidateRequest(req); err != nil {
		c.JSON(http.StatusBadRequest, models.MErrorResponse{
			Error:      err.Error(),
			IsMockData: true,
			DataSource: "error-fallback",
		})
		return
	}

	resp, fallback := s.Service.Resolve(c.Request.Context(), req)
	if fallback != nil {
		c.JSON(http.StatusInternalServerError, fallback)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// -----------------------------------------------------------------------------

func (s *EdgeServer) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Service.Metrics())
}

// -----------------------------------------------------------------------------

func (s *EdgeServer) getConfig(c *gin.Context) {
	ranges := s.Config.Ranges
	if len(ranges) == 0 {
		ranges = utils.DefaultRanges()
	}

	windows := make(map[string]string, len(ranges))
	for _, r := range ranges {
		windows[r] = utils.FreshnessWindow(r).String()
	}

	c.JSON(http.StatusOK, gin.H{
		"ranges":            ranges,
		"freshness_windows": windows,
		"providers":         s.Service.Providers.Names(),
	})
}

// -----------------------------------------------------------------------------

func (s *EdgeServer) getHealth(c *gin.Context) {
	s.clientsMu.RLock()
	connections := len(s.clients)
	s.clientsMu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": s.Service.Metrics().LastUpdate,
	})
}
