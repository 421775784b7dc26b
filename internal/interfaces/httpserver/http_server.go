package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/creedpetitt/ai-services-backend/internal/config"
	"github.com/creedpetitt/ai-services-backend/internal/domain/user"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/auth"
	middleware "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/middlewares"
	v1 "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/routes/v1"
)

const shutdownGrace = 10 * time.Second

// HTTPServer is the public API server.
type HTTPServer struct {
	engine    *gin.Engine
	v1Route   *v1.V1Route
	validator *auth.OIDCValidator
	config    *config.Config
	logger    zerolog.Logger
}

// NewHTTPServer assembles the gin engine with the full middleware chain and
// registers all routes.
func NewHTTPServer(
	v1Route *v1.V1Route,
	validator *auth.OIDCValidator,
	users *user.Service,
	cfg *config.Config,
	logger zerolog.Logger,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	server := &HTTPServer{
		engine:    gin.New(),
		v1Route:   v1Route,
		validator: validator,
		config:    cfg,
		logger:    logger,
	}

	server.engine.Use(gin.Recovery())
	server.engine.Use(middleware.RequestID())
	server.engine.Use(middleware.TracingMiddleware(cfg.ServiceName))
	server.engine.Use(middleware.LoggingMiddleware(logger))
	server.engine.Use(middleware.CORSMiddleware())
	server.engine.Use(middleware.MetricsMiddleware())

	server.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Ready only once the JWKS has been fetched; before that every token
	// would be rejected.
	server.engine.GET("/readyz", func(c *gin.Context) {
		if validator != nil && !validator.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "waiting for jwks"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	authed := server.engine.Group("/")
	authed.Use(middleware.OptionalAuth(validator, users, logger))
	v1Route.RegisterRouter(authed)

	v1Route.RegisterStatic(server.engine)

	return server
}

// Run serves HTTP until the context is cancelled, then drains connections.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Int("port", s.config.HTTPPort).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}
