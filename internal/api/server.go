package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"lyra/internal/relay"
	"lyra/pkg/rtsp"
)

// Server represents the admin API server
type Server struct {
	router   *gin.Engine
	port     string
	registry *rtsp.Registry // DI'd session registry
	relay    *relay.Relay   // DI'd stream controller
}

// NewServer creates a new API server instance
func NewServer(port string, registry *rtsp.Registry, r *relay.Relay) *Server {
	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Add basic middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	server := &Server{
		router:   router,
		port:     port,
		registry: registry,
		relay:    r,
	}
	server.setupRoutes()

	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// API v1 group
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/sessions", s.SessionsHandler)
		v1.GET("/stats", s.StatsHandler)
	}
}

// Start starts the API server
func (s *Server) Start() error {
	go func() {
		if err := s.router.Run(":" + s.port); err != nil {
			slog.Error("API server error", "err", err)
		}
	}()

	return nil
}

// GetRouter returns the gin router (for testing)
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
