package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/generator"
)

func main() {
	var (
		projects   = flag.Int("projects", 1000, "number of projects to generate")
		reports    = flag.Int("reports", 0, "number of citizen reports to generate")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		out        = flag.String("out", "Gov_project.csv", "projects CSV path")
		reportsOut = flag.String("reports-out", "reports.csv", "reports CSV path (used when -reports > 0)")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Generating dataset", zap.Int("projects", *projects), zap.Int("reports", *reports), zap.Int64("seed", *seed))

	ds, err := generator.Generate(generator.Options{Projects: *projects, Reports: *reports, Seed: *seed})
	if err != nil {
		logger.Fatal("Generate", zap.Error(err))
	}

	if err := writeFile(*out, func(f *os.File) error { return generator.WriteProjectsCSV(f, ds.Projects) }); err != nil {
		logger.Fatal("Write projects", zap.String("path", *out), zap.Error(err))
	}
	logger.Info("Saved projects", zap.String("path", *out), zap.Int("rows", len(ds.Projects)))

	if *reports > 0 {
		if err := writeFile(*reportsOut, func(f *os.File) error { return generator.WriteReportsCSV(f, ds.Reports) }); err != nil {
			logger.Fatal("Write reports", zap.String("path", *reportsOut), zap.Error(err))
		}
		logger.Info("Saved reports", zap.String("path", *reportsOut), zap.Int("rows", len(ds.Reports)))
	}
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
