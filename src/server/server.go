package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"price-relay/src/interfaces"
	"price-relay/src/logger"
	"price-relay/src/models"

	"github.com/gin-gonic/gin"
)

const defaultWriteTimeout = 10 * time.Second

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

type Server struct {
	Config *models.MConfig
	Logger *logger.Logger

	engine     *gin.Engine
	httpServer *http.Server
	hub        *Hub
	source     interfaces.IPriceSource
	upstream   interfaces.IUpstreamControl
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewServer(
	cfg *models.MConfig,
	log *logger.Logger,
	hub *Hub,
	source interfaces.IPriceSource,
	upstream interfaces.IUpstreamControl,
) *Server {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		Config:   cfg,
		Logger:   log,
		engine:   gin.New(),
		hub:      hub,
		source:   source,
		upstream: upstream,
	}

	s.engine.Use(gin.Recovery(), s.cors())
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// -----------------------------------------------------------------------------

func (s *Server) cors() gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]struct{}, len(s.Config.CorsOrigins))
	for _, o := range s.Config.CorsOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			if _, ok := allowed[origin]; ok || allowAll {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Set("Vary", "Origin")
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	s.engine.GET("/api/prices", s.getPrices)
	s.engine.GET("/api/prices/:id", s.getPrice)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/health", s.getHealth)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start blocks until the server is shut down.
func (s *Server) Start() error {
	s.Logger.Info("Starting server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop ends every stream first so that Shutdown is not held by them.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.CloseAll()
	return s.httpServer.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *Server) getPrices(c *gin.Context) {
	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		s.streamPrices(c)
		return
	}
	c.JSON(http.StatusOK, models.NewPricePoll(s.source.State()))
}

// -----------------------------------------------------------------------------

func (s *Server) getPrice(c *gin.Context) {
	id := c.Param("id")
	snap, ok := s.source.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown token '%s'", id)})
		return
	}
	c.JSON(http.StatusOK, models.MTokenPrice{Price: snap, Timestamp: s.source.State().Timestamp})
}

// -----------------------------------------------------------------------------

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tokens": s.Config.Tokens,
	})
}

// -----------------------------------------------------------------------------

func (s *Server) getHealth(c *gin.Context) {
	state := s.upstream.State()
	status := "ok"
	if state != models.Connected {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        status,
		"upstream":      state.String(),
		"connections":   s.hub.Count(),
		"latest_update": s.source.State().Timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *Server) writeTimeout() time.Duration {
	if s.Config.Stream.WriteTimeout > 0 {
		return time.Duration(s.Config.Stream.WriteTimeout) * time.Second
	}
	return defaultWriteTimeout
}
