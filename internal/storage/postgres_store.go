package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/domain"
)

// PostgresConfig holds connection settings for the live store.
type PostgresConfig struct {
	URL             string
	MaxConnections  int32
	MaxConnLifetime time.Duration
}

// PostgresStore is the shared, read-mostly handle to the live database. It is
// opened once at process start and injected wherever ingestion is needed.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 10
	}
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	if poolConfig.MaxConnLifetime == 0 {
		poolConfig.MaxConnLifetime = time.Hour
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

// RunMigrations applies pending migrations from migrationsPath. Safe to call
// on every start.
func RunMigrations(databaseURL, migrationsPath string, logger *zap.Logger) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("Failed to close migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("Failed to close migration database", zap.Error(dbErr))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No migrations to apply (database up-to-date)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, _, _ := m.Version()
	logger.Info("Applied migrations successfully", zap.Uint("version", version))
	return nil
}

func (s *PostgresStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, name, budget, contractor_name, project_type, status, expected_completion, start_date,
       latitude, longitude, city, department, is_verified
FROM government_projects
ORDER BY seq
`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Project, error) {
		var p domain.Project
		err := row.Scan(
			&p.ID, &p.Name, &p.Budget, &p.ContractorName, &p.ProjectType, &p.Status,
			&p.ExpectedCompletion, &p.StartDate, &p.Latitude, &p.Longitude,
			&p.City, &p.Department, &p.IsVerified,
		)
		return p, err
	})
}

func (s *PostgresStore) ListReports(ctx context.Context) ([]domain.Report, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id::text, latitude, longitude, severity, category, city
FROM reports
ORDER BY seq
`)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Report, error) {
		var r domain.Report
		err := row.Scan(&r.ID, &r.Latitude, &r.Longitude, &r.Severity, &r.Category, &r.City)
		return r, err
	})
}

func (s *PostgresStore) ListContractorProfiles(ctx context.Context) ([]domain.ContractorProfile, error) {
	rows, err := s.pool.Query(ctx, `
SELECT contractor_name, total_projects, flagged_projects, risk_score, is_blacklisted
FROM contractor_risk_profiles
ORDER BY contractor_name
`)
	if err != nil {
		return nil, fmt.Errorf("query contractor profiles: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ContractorProfile, error) {
		var c domain.ContractorProfile
		err := row.Scan(&c.ContractorName, &c.TotalProjects, &c.FlaggedProjects, &c.RiskScore, &c.IsBlacklisted)
		return c, err
	})
}

// UpsertProjects writes projects in one batch, skipping ids already present.
func (s *PostgresStore) UpsertProjects(ctx context.Context, items []domain.Project) error {
	batch := &pgx.Batch{}
	for _, p := range items {
		batch.Queue(`
INSERT INTO government_projects
(id, name, budget, contractor_name, project_type, status, expected_completion, start_date, latitude, longitude, city, department, is_verified)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name, p.Budget, p.ContractorName, p.ProjectType, p.Status,
			p.ExpectedCompletion, p.StartDate, p.Latitude, p.Longitude, p.City, p.Department, p.IsVerified)
	}
	return s.sendBatch(ctx, batch)
}

// InsertReports keeps ids that are valid UUIDs; the rest get a generated one.
func (s *PostgresStore) InsertReports(ctx context.Context, items []domain.Report) error {
	batch := &pgx.Batch{}
	for _, r := range items {
		batch.Queue(`
INSERT INTO reports (id, latitude, longitude, severity, category, city)
VALUES (COALESCE($1::uuid, gen_random_uuid()), $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`,
			reportID(r.ID), r.Latitude, r.Longitude, r.Severity, r.Category, r.City)
	}
	return s.sendBatch(ctx, batch)
}

func reportID(id string) *string {
	u, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	v := u.String()
	return &v
}

func (s *PostgresStore) UpsertContractorProfiles(ctx context.Context, items []domain.ContractorProfile) error {
	batch := &pgx.Batch{}
	for _, c := range items {
		batch.Queue(`
INSERT INTO contractor_risk_profiles (contractor_name, total_projects, flagged_projects, risk_score, is_blacklisted)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (contractor_name) DO UPDATE SET
  total_projects = EXCLUDED.total_projects,
  flagged_projects = EXCLUDED.flagged_projects,
  risk_score = EXCLUDED.risk_score,
  is_blacklisted = EXCLUDED.is_blacklisted,
  last_updated = now()`,
			c.ContractorName, c.TotalProjects, c.FlaggedProjects, c.RiskScore, c.IsBlacklisted)
	}
	return s.sendBatch(ctx, batch)
}

func (s *PostgresStore) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
