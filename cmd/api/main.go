package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/config"
	httpapi "github.com/nandininema07/MacBuddies-HackSync2/internal/http"
	"github.com/nandininema07/MacBuddies-HackSync2/internal/observability"
	"github.com/nandininema07/MacBuddies-HackSync2/internal/risk"
	"github.com/nandininema07/MacBuddies-HackSync2/internal/storage"
)

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	params, err := risk.LoadParamsFromFile(cfg.Risk.ParamsPath)
	if err != nil {
		logger.Warn("Using default risk parameters",
			zap.String("path", cfg.Risk.ParamsPath), zap.Error(err))
	}

	matcher, err := risk.NewMatcher(cfg.Risk.Matcher, params.ToleranceDeg)
	if err != nil {
		return err
	}

	backend, err := storage.Open(ctx, storage.Options{
		Driver:         cfg.Store.Driver,
		SQLitePath:     cfg.Store.SQLitePath,
		PostgresURL:    cfg.Store.PostgresURL,
		MaxConnections: cfg.Store.MaxConnections,
		MigrationsPath: cfg.Store.MigrationsPath,
		ProjectsPath:   cfg.Store.ProjectsPath,
		ReportsPath:    cfg.Store.ReportsPath,
	}, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("Close store", zap.Error(err))
		}
	}()

	retryCfg := storage.DefaultRetryConfig()
	retryCfg.MaxRetries = cfg.Store.MaxRetries
	source := storage.RetryingSource{Source: backend.Source, Config: retryCfg, Logger: logger}

	var profiles risk.ProfileStore
	if backend.Profiles != nil {
		profiles = storage.RetryingProfiles{Store: backend.Profiles, Config: retryCfg, Logger: logger}
	}
	reputation, err := risk.NewReputationProvider(
		cfg.Risk.ReputationProvider, cfg.Risk.BlocklistNames(), profiles, cfg.Risk.ReputationThreshold)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	svc := &risk.Service{
		Source:     source,
		Reputation: reputation,
		Engine:     risk.NewEngine(params, matcher),
		Logger:     logger,
		Recorder:   metrics,
		Timeout:    cfg.Store.IngestTimeout,
	}

	api := httpapi.NewServer(svc, source, logger, metrics, cfg.AllowedOrigins())
	server := &http.Server{
		Addr:              cfg.Address,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API listening",
			zap.String("addr", cfg.Address),
			zap.String("store", cfg.Store.Driver),
			zap.String("matcher", cfg.Risk.Matcher),
			zap.String("reputation", cfg.Risk.ReputationProvider))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func configPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "config.yaml"
}
