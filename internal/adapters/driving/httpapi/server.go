package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/custodia-labs/corpus-rag/internal/logger"
)

// MaxGlossaryUpload bounds the size of an uploaded glossary file.
const MaxGlossaryUpload = 10 << 20

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Server is the HTTP API for the corpus subsystem.
type Server struct {
	ports *Ports
	echo  *echo.Echo
}

// NewServer creates a server with all routes registered.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.L().Debug("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	s := &Server{ports: ports, echo: e}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	corpus := s.echo.Group("/corpus")
	corpus.POST("/build", s.handleBuild)
	corpus.GET("/status", s.handleStatus)
	corpus.POST("/retrieve", s.handleRetrieve)
	corpus.GET("/files", s.handleListFiles)
	corpus.GET("/files/:id", s.handleChunks)
	corpus.GET("/files/:id/meta", s.handleMeta)

	glossary := s.echo.Group("/glossary")
	glossary.GET("", s.handleGlossaryList)
	glossary.POST("/upload", s.handleGlossaryUpload)
	glossary.DELETE("/:filename", s.handleGlossaryDelete)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
