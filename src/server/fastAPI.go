package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"live-stats/src/interfaces"
	"live-stats/src/livesync"
	"live-stats/src/logger"
	"live-stats/src/metrics"
	"live-stats/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

// FastAPIServer is the local read API over the sync core, plus the websocket
// hub that pushes views to attached renderers.
type FastAPIServer struct {
	Config     *models.MConfig
	Logger     *logger.Logger
	Sync       interfaces.ILiveSync
	Submitter  interfaces.IMoodSubmitter
	Prefs      interfaces.IPreferencesStore
	Visibility *livesync.VisibilityMonitor
	Metrics    *metrics.Collector

	engine     *gin.Engine
	httpServer *http.Server

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan models.MLiveView
	register   chan *Client
	unregister chan *Client
	replies    chan clientReply
	done       chan struct{}
	stopOnce   sync.Once

	clientsMutex sync.RWMutex
	connections  int
}

var _ interfaces.IDataExchanger = (*FastAPIServer)(nil)

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, log *logger.Logger, live interfaces.ILiveSync) *FastAPIServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:  cfg,
		Logger:  log,
		Sync:    live,
		engine:  gin.New(),
		clients: make(map[*Client]struct{}),
		// Views are full values, so a slow hub only ever loses stale ones.
		broadcast:  make(chan models.MLiveView, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		replies:    make(chan clientReply),
		done:       make(chan struct{}),
	}
	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
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
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	// Reads
	s.engine.GET("/api/live", s.getLive)
	s.engine.GET("/api/status", s.getStatus)
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/metrics", s.getMetrics)
	s.engine.GET("/metrics", s.getPrometheus)

	// Controls
	s.engine.POST("/api/visibility", s.postVisibility)
	s.engine.PUT("/api/scope", s.putScope)
	s.engine.POST("/api/mood", s.postMood)

	// Push
	s.engine.GET("/api/live-stream", s.streamLive)
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mostly for httptest.
func (s *FastAPIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves until Stop is called. It blocks.
func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.httpServer = &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	go s.handleWebsockets()
	go s.forwardViews()

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = s.httpServer.Shutdown(ctx)
		}
	})
	return err
}

// forwardViews feeds every published view to the hub.
func (s *FastAPIServer) forwardViews() {
	views, cancel := s.Sync.Watch()
	defer cancel()

	for {
		select {
		case <-s.done:
			return
		case view, ok := <-views:
			if !ok {
				return
			}
			s.Broadcast(view)
		}
	}
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getLive(c *gin.Context) {
	c.JSON(http.StatusOK, s.Sync.View())
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           s.Sync.Status(),
		"params":           s.Sync.Params(),
		"history":          s.Sync.StatusHistory(),
		"pending_overlays": s.Sync.PendingOverlays(),
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	view := s.Sync.View()

	var latest int64
	if !view.UpdatedAt.IsZero() {
		latest = view.UpdatedAt.Unix()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"sync":          view.Status,
		"connections":   s.Connections(),
		"latest_update": latest,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Sync.Metrics())
}

func (s *FastAPIServer) getPrometheus(c *gin.Context) {
	if s.Metrics == nil {
		c.Status(http.StatusNotFound)
		return
	}
	s.Metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) postVisibility(c *gin.Context) {
	var req models.MVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.setVisible(*req.Visible)
	c.JSON(http.StatusOK, gin.H{"visible": *req.Visible, "status": s.Sync.Status()})
}

func (s *FastAPIServer) setVisible(visible bool) {
	if s.Visibility != nil {
		s.Visibility.Set(visible)
		return
	}
	s.Sync.SetVisible(visible)
}

// -----------------------------------------------------------------------------

// putScope persists the new scope, then restarts the sync core with it.
func (s *FastAPIServer) putScope(c *gin.Context) {
	var req models.MScopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := ScopeParams(req, s.Sync.Params())
	if s.Prefs != nil {
		prefs := models.MPreferences{Country: params.Country, Locale: params.Locale}
		if err := s.Prefs.SavePreferences(prefs); err != nil {
			s.Logger.Error("Failed to save preferences: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	s.Logger.Info("Scope changed to country=%q locale=%s", params.Country, params.Locale)
	s.Sync.Restart(params)
	c.JSON(http.StatusOK, params)
}

// -----------------------------------------------------------------------------

// postMood shows the vote immediately as an overlay, then settles it once the
// server answers.
func (s *FastAPIServer) postMood(c *gin.Context) {
	if s.Submitter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "mood submission is not configured"})
		return
	}

	var req models.MMoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := s.Sync.Params()
	entry := s.Sync.IssueOverlay(req.MoodType, 1)

	resp, err := s.Submitter.SubmitMood(c.Request.Context(), models.MSubmitMoodRequest{
		MoodType: req.MoodType,
		Country:  params.Country,
		Comment:  req.Comment,
	}, params.Locale)
	if err != nil {
		s.Sync.ResolveOverlay(entry.ID, false)
		status, body := errorResponse(err)
		c.JSON(status, body)
		return
	}

	s.Sync.ResolveOverlay(entry.ID, true)
	c.JSON(http.StatusOK, resp)
}

// -----------------------------------------------------------------------------

// streamLive pushes every view as an SSE "view" event until the client leaves.
func (s *FastAPIServer) streamLive(c *gin.Context) {
	views, cancel := s.Sync.Watch()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-s.done:
			return false
		case view, ok := <-views:
			if !ok {
				return false
			}
			c.SSEvent("view", view)
			return true
		}
	})
}

// Connections is the number of attached websocket renderers.
func (s *FastAPIServer) Connections() int {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()
	return s.connections
}
