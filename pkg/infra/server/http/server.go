// Package http provides the gin-based HTTP server.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/clinrag/pkg/infra/middleware"
	httpopts "github.com/kart-io/clinrag/pkg/options/http"
	apierrors "github.com/kart-io/clinrag/pkg/utils/errors"
	"github.com/kart-io/clinrag/pkg/utils/response"
	"github.com/kart-io/clinrag/pkg/utils/validator"
)

// Server is the HTTP server implementation.
type Server struct {
	opts   *httpopts.Options
	engine *gin.Engine
	health *middleware.HealthManager

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewServer creates a new HTTP server with the given options.
// Middleware is applied at construction so every route group inherits it.
func NewServer(opts *httpopts.Options) *Server {
	if opts == nil {
		opts = httpopts.NewOptions()
	}
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	validator.Install()

	engine := gin.New()
	engine.MaxMultipartMemory = opts.MaxUploadSize
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Tracing(opts.SkipLogPaths...),
		middleware.Logger(opts.SkipLogPaths...),
	)
	engine.NoRoute(func(c *gin.Context) {
		response.Fail(c, apierrors.ErrRouteNotFound.WithMessagef("route %s %s not found", c.Request.Method, c.Request.URL.Path))
	})

	s := &Server{
		opts:   opts,
		engine: engine,
		health: middleware.NewHealthManager(),
	}
	middleware.RegisterHealthRoutes(engine, s.health)
	middleware.RegisterVersionRoutes(engine)
	return s
}

// Name returns the server name.
func (s *Server) Name() string {
	return "http[gin]"
}

// Engine returns the underlying gin.Engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Health returns the readiness manager behind /readyz.
func (s *Server) Health() *middleware.HealthManager {
	return s.health
}

// Addr returns the bound address once started, or the configured address.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Addr
}

// Start binds the listen address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("HTTP server stopped unexpectedly", "error", err.Error())
		}
	}()

	s.health.SetReady(true)
	logger.Infow("HTTP server started", "addr", ln.Addr().String())
	return nil
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.health.SetReady(false)

	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
