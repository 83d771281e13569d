// Package api exposes the biomarker analysis engine over HTTP. Request
// validation and transport concerns live here; the engine itself stays
// transport-free.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/biomarker-scoring-server/internal/catalog"
	"github.com/biomarker-scoring-server/internal/domain"
	"github.com/biomarker-scoring-server/internal/history"
	"github.com/biomarker-scoring-server/internal/middleware"
	"github.com/biomarker-scoring-server/internal/service"
)

// Server represents the HTTP server.
type Server struct {
	logger   *logrus.Logger
	config   *domain.Config
	analyzer *service.AnalyzerService
	catalog  *catalog.Store
	history  history.Store
	router   *gin.Engine
	server   *http.Server
}

// NewServer creates a new HTTP server instance. The history store may be
// nil, in which case analyses are not persisted.
func NewServer(
	logger *logrus.Logger,
	cfg *domain.Config,
	analyzer *service.AnalyzerService,
	catalogStore *catalog.Store,
	historyStore history.Store,
) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		router.Use(limiter.Handler())
	}

	server := &Server{
		logger:   logger,
		config:   cfg,
		analyzer: analyzer,
		catalog:  catalogStore,
		history:  historyStore,
		router:   router,
	}

	server.setupRoutes()

	return server
}

// Start starts the HTTP server and blocks until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/analyze", s.handleAnalyze)
		v1.GET("/biomarkers", s.handleListBiomarkers)
		v1.POST("/catalog/reload", s.handleReloadCatalog)
		v1.GET("/history", s.handleListHistory)
		v1.GET("/history/:id", s.handleGetHistory)
		v1.DELETE("/history/:id", s.handleDeleteHistory)
	}
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
