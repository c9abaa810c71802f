package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/domain"
)

var ErrUnknownDriver = errors.New("unknown store driver")

// ProfileStore reads the contractor_risk_profiles table in one snapshot.
type ProfileStore interface {
	ListContractorProfiles(ctx context.Context) ([]domain.ContractorProfile, error)
}

type Options struct {
	Driver         string
	SQLitePath     string
	PostgresURL    string
	MaxConnections int32
	MigrationsPath string
	ProjectsPath   string
	ReportsPath    string
}

// Writer loads datasets into a database backend.
type Writer interface {
	UpsertProjects(ctx context.Context, items []domain.Project) error
	InsertReports(ctx context.Context, items []domain.Report) error
	UpsertContractorProfiles(ctx context.Context, items []domain.ContractorProfile) error
}

// Backend is an opened store. Profiles and Writer are nil for the file driver.
type Backend struct {
	Source   Source
	Profiles ProfileStore
	Writer   Writer
	Close    func() error
}

func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Backend, error) {
	switch opts.Driver {
	case "sqlite":
		if dir := filepath.Dir(opts.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		st, err := OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", opts.SQLitePath, err)
		}
		if err := st.EnsureSchema(); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return &Backend{Source: st, Profiles: st, Writer: st, Close: st.Close}, nil

	case "postgres":
		if opts.MigrationsPath != "" {
			if err := RunMigrations(opts.PostgresURL, opts.MigrationsPath, logger); err != nil {
				return nil, err
			}
		}
		st, err := OpenPostgres(ctx, PostgresConfig{URL: opts.PostgresURL, MaxConnections: opts.MaxConnections})
		if err != nil {
			return nil, err
		}
		return &Backend{Source: st, Profiles: st, Writer: st, Close: func() error { st.Close(); return nil }}, nil

	case "file":
		fs := FileSource{ProjectsPath: opts.ProjectsPath, ReportsPath: opts.ReportsPath}
		return &Backend{Source: fs, Close: func() error { return nil }}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
