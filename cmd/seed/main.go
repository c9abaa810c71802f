package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/config"
	"github.com/nandininema07/MacBuddies-HackSync2/internal/domain"
	"github.com/nandininema07/MacBuddies-HackSync2/internal/seed"
	"github.com/nandininema07/MacBuddies-HackSync2/internal/storage"
)

func main() {
	var (
		configPath  = flag.String("config", "config.yaml", "config file (optional)")
		projectsCSV = flag.String("projects", "Gov_project.csv", "generator projects CSV")
		reportsCSV  = flag.String("reports", "", "optional reports CSV")
		seedValue   = flag.Int64("seed", time.Now().UnixNano(), "random seed for generated start dates")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
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

	if err := run(cfg, logger, *projectsCSV, *reportsCSV, *seedValue); err != nil {
		logger.Fatal("Seed failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger, projectsPath, reportsPath string, seedValue int64) error {
	ctx := context.Background()

	projects, err := storage.LoadProjectsFromFile(projectsPath)
	if err != nil {
		return err
	}
	logger.Info("Parsed projects", zap.String("path", projectsPath), zap.Int("rows", len(projects)))

	var reports []domain.Report
	if reportsPath != "" {
		if reports, err = storage.LoadReportsFromFile(reportsPath); err != nil {
			return err
		}
	}

	backend, err := storage.Open(ctx, storage.Options{
		Driver:         cfg.Store.Driver,
		SQLitePath:     cfg.Store.SQLitePath,
		PostgresURL:    cfg.Store.PostgresURL,
		MaxConnections: cfg.Store.MaxConnections,
		MigrationsPath: cfg.Store.MigrationsPath,
	}, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = backend.Close() }()

	if backend.Writer == nil {
		return fmt.Errorf("store driver %q cannot be seeded", cfg.Store.Driver)
	}

	s := &seed.Seeder{
		Store:     backend.Writer,
		Logger:    logger,
		Rand:      rand.New(rand.NewSource(seedValue)),
		Blocklist: cfg.Risk.BlocklistNames(),
	}
	_, err = s.Run(ctx, projects, reports)
	return err
}
