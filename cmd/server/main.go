package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/biomarker-scoring-server/internal/api"
	"github.com/biomarker-scoring-server/internal/catalog"
	"github.com/biomarker-scoring-server/internal/config"
	"github.com/biomarker-scoring-server/internal/history"
	"github.com/biomarker-scoring-server/internal/service"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

	catalogStore, err := catalog.NewStore(logger, cfg.Catalog.Dir)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load catalogs")
	}

	historyStore, err := newHistoryStore(cfg.History.Driver, cfg.History.SQLitePath, cfg.History.PostgresURL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open history store")
	}
	if historyStore != nil {
		defer historyStore.Close()
	}

	cacheSize := 0
	if cfg.Cache.Enabled {
		cacheSize = cfg.Cache.Size
	}
	analyzer, err := service.NewAnalyzerService(logger, catalogStore, cacheSize)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create analyzer")
	}

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting biomarker scoring server")

	server := api.NewServer(logger, cfg, analyzer, catalogStore, historyStore)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newLogger builds the service logger from configuration.
func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if strings.ToLower(format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// newHistoryStore opens the configured history backend. Driver "none"
// disables persistence.
func newHistoryStore(driver, sqlitePath, postgresURL string) (history.Store, error) {
	switch strings.ToLower(driver) {
	case "sqlite":
		return history.NewSQLiteStore(sqlitePath)
	case "postgres":
		return history.NewPostgresStoreFromURL(postgresURL)
	default:
		return nil, nil
	}
}
