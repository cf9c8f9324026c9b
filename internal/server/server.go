// Package server exposes the daemon's status surface over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"alertiq/internal/scheduler"
	"alertiq/internal/shared/metrics"
	"alertiq/internal/shared/telemetry"
)

// Server wraps the HTTP listener serving health, status, stats, and
// metrics endpoints.
type Server struct {
	httpServer *http.Server
}

// New builds the status server. sched provides /status; stats provides
// /stats. port is the bare port number to listen on.
func New(port string, sched *scheduler.Scheduler, stats func() any) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestLogger(), gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, sched.Status())
	})
	router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, stats())
	})
	router.GET("/metrics", metrics.Handler())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	telemetry.Info("server.listening", map[string]any{"addr": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		telemetry.Info("request.complete", map[string]any{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
		})
	}
}
