// Package api exposes the change request workflow over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rcflow/rcflow/application"
	"github.com/rcflow/rcflow/infrastructure/logging"
)

// Server is the HTTP interface to the change request workflow.
type Server struct {
	workflow *application.Workflow
	engine   *gin.Engine
	devMode  bool
}

// Option configures the server.
type Option func(*Server)

// WithDevMode enables the fixed development identity for requests
// without identity headers.
func WithDevMode(enabled bool) Option {
	return func(s *Server) {
		s.devMode = enabled
	}
}

// NewServer creates the HTTP server around the workflow.
func NewServer(workflow *application.Workflow, opts ...Option) *Server {
	s := &Server{workflow: workflow}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	engine.GET("/health", s.handleHealth)

	api := engine.Group("/api", identityMiddleware(s.devMode))
	{
		rc := api.Group("/remote-config")
		{
			rc.GET("/snapshot", s.handleSnapshot)
			rc.POST("", s.handleCreate)
			rc.GET("", s.handleList)
			rc.GET("/:id", s.handleGet)
			rc.POST("/:id/submit", s.handleSubmit)
			rc.POST("/:id/reviewer", s.handleAddReviewer)
			rc.POST("/:id/reviewer/approve", s.handleReviewerApprove)
			rc.POST("/:id/reviewer/deny", s.handleReviewerDeny)
			rc.POST("/:id/approve", s.handleApprove)
			rc.POST("/:id/reject", s.handleReject)
			rc.POST("/:id/publish", s.handlePublish)
		}

		api.GET("/audit-logs", s.handleAuditLogs)
	}

	s.engine = engine
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestLogger logs each request with method, path, status and
// duration.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logging.Info().
			Add(logging.Str("method", c.Request.Method)).
			Add(logging.Str("path", c.Request.URL.Path)).
			Add(logging.Int("status", c.Writer.Status())).
			Add(logging.Duration(time.Since(start))).
			Msg("request")
	}
}
