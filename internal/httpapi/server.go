package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/core"
	"backend/internal/logger"
)

// Server wraps an http.Server over the Gin router, mirroring the
// teacher's server/server.go Start/Stop shape.
type Server struct {
	router *gin.Engine
	srv    *http.Server
}

// NewServer builds a Server exposing c over HTTP.
func NewServer(c *core.Core) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{router: NewRouter(NewHandler(c))}
}

// Start begins serving on host:port. It blocks until the server stops or
// errors.
func (s *Server) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	logger.Info("http surface listening on %s", addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
