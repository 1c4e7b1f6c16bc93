// Package api exposes the recorder control surface over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/video-system/go-cam-recorder/pkg/capture"
	"github.com/video-system/go-cam-recorder/pkg/storage"
)

// RecordingManager is the surface the server needs from the capture manager
type RecordingManager interface {
	SessionID() string
	StorageRoot() string
	IsRecording() bool
	Statuses() []capture.CameraStatus
	Segments(name string) ([]storage.SegmentRecord, bool)
	GetError() error
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Host    string
	Port    int
	Manager RecordingManager
}

// Server is the HTTP API server
type Server struct {
	cfg    ServerConfig
	log    *zap.Logger
	server *http.Server
}

// NewServer creates a new API server
func NewServer(cfg ServerConfig, log *zap.Logger) *Server {
	s := &Server{cfg: cfg, log: log}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)

	v1 := router.Group("/api/v1")
	v1.GET("/status", s.handleStatus)
	v1.GET("/cameras", s.handleCameras)
	v1.GET("/cameras/:name/segments", s.handleSegments)

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: router,
	}

	return s
}

// Start starts the API server. It blocks until the listener closes.
func (s *Server) Start() error {
	s.log.Info("api server starting", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting briefly for in-flight requests
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Warn("api shutdown", zap.Error(err))
	}
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "cam-recorder",
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	m := s.cfg.Manager
	resp := gin.H{
		"session_id":   m.SessionID(),
		"storage_root": m.StorageRoot(),
		"recording":    m.IsRecording(),
		"cameras":      len(m.Statuses()),
	}
	if err := m.GetError(); err != nil {
		resp["last_error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCameras(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cameras": s.cfg.Manager.Statuses()})
}

func (s *Server) handleSegments(c *gin.Context) {
	name := c.Param("name")
	segs, ok := s.cfg.Manager.Segments(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown camera: " + name})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"camera":   name,
		"count":    len(segs),
		"segments": segs,
	})
}
