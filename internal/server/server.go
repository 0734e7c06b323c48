package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spigell/opportunity-matcher/internal/reconcile"
	"go.uber.org/zap"
)

const (
	DefaultListen = ":3000"

	shutdownTimeout = 10 * time.Second
	maxBodyBytes    = 1 << 20
)

// Recommender produces recommendations for a job description. Errors
// should be *recommend.Error; anything else is reported as internal.
type Recommender interface {
	Recommend(ctx context.Context, description string) (*reconcile.Result, error)
}

// Config is the HTTP listener configuration.
type Config struct {
	Listen         string   `mapstructure:"listen"`
	AllowedOrigins []string `mapstructure:"allowed-origins"`
}

// Server exposes the recommender over HTTP.
type Server struct {
	Engine *gin.Engine

	cfg    Config
	logger *zap.Logger
}

// New builds the gin engine with recovery, request logging and CORS.
func New(cfg Config, recommender Recommender, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))
	engine.Use(corsMiddleware(cfg.AllowedOrigins))

	h := &handler{recommender: recommender, logger: logger}
	engine.GET("/healthz", h.health)
	engine.POST("/generate", h.generate)

	return &Server{Engine: engine, cfg: cfg, logger: logger}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("address", s.cfg.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen on %s: %w", s.cfg.Listen, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
