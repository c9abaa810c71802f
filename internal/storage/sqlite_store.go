package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// базовые настройки
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) EnsureSchema() error {
	stmts := []string{`
CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  budget INTEGER NOT NULL,
  contractor_name TEXT NOT NULL DEFAULT '',
  project_type TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'pending',
  expected_completion TEXT NOT NULL DEFAULT '',
  start_date TEXT NOT NULL DEFAULT '',
  latitude REAL,
  longitude REAL,
  city TEXT NOT NULL DEFAULT '',
  department TEXT NOT NULL DEFAULT '',
  is_verified INTEGER NOT NULL DEFAULT 0
);`, `
CREATE TABLE IF NOT EXISTS reports (
  id TEXT PRIMARY KEY,
  latitude REAL,
  longitude REAL,
  severity TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT ''
);`, `
CREATE TABLE IF NOT EXISTS contractor_risk_profiles (
  contractor_name TEXT PRIMARY KEY,
  total_projects INTEGER NOT NULL DEFAULT 0,
  flagged_projects INTEGER NOT NULL DEFAULT 0,
  risk_score INTEGER NOT NULL DEFAULT 0,
  is_blacklisted INTEGER NOT NULL DEFAULT 0
);`,
		`CREATE INDEX IF NOT EXISTS idx_projects_type ON projects(project_type);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_lat_lon ON reports(latitude, longitude);`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) CountProjects(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&n)
	return n, err
}

// UpsertProjects inserts the dataset without duplicating by id.
func (s *SQLiteStore) UpsertProjects(ctx context.Context, items []domain.Project) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO projects
(id, name, budget, contractor_name, project_type, status, expected_completion, start_date, latitude, longitude, city, department, is_verified)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range items {
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Name, p.Budget, p.ContractorName, p.ProjectType, p.Status,
			p.ExpectedCompletion, p.StartDate, p.Latitude, p.Longitude,
			p.City, p.Department, p.IsVerified,
		); err != nil {
			return fmt.Errorf("insert project %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// InsertReports stores reports, assigning ids to those without one.
func (s *SQLiteStore) InsertReports(ctx context.Context, items []domain.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO reports (id, latitude, longitude, severity, category, city)
VALUES (?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range items {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Latitude, r.Longitude, r.Severity, r.Category, r.City); err != nil {
			return fmt.Errorf("insert report %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpsertContractorProfiles(ctx context.Context, items []domain.ContractorProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO contractor_risk_profiles (contractor_name, total_projects, flagged_projects, risk_score, is_blacklisted)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(contractor_name) DO UPDATE SET
  total_projects = excluded.total_projects,
  flagged_projects = excluded.flagged_projects,
  risk_score = excluded.risk_score,
  is_blacklisted = excluded.is_blacklisted
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range items {
		if _, err := stmt.ExecContext(ctx, c.ContractorName, c.TotalProjects, c.FlaggedProjects, c.RiskScore, c.IsBlacklisted); err != nil {
			return fmt.Errorf("upsert contractor %q: %w", c.ContractorName, err)
		}
	}
	return tx.Commit()
}

// ListContractorProfiles returns the whole contractor_risk_profiles table.
func (s *SQLiteStore) ListContractorProfiles(ctx context.Context) ([]domain.ContractorProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT contractor_name, total_projects, flagged_projects, risk_score, is_blacklisted
FROM contractor_risk_profiles
ORDER BY contractor_name
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ContractorProfile
	for rows.Next() {
		var c domain.ContractorProfile
		if err := rows.Scan(&c.ContractorName, &c.TotalProjects, &c.FlaggedProjects, &c.RiskScore, &c.IsBlacklisted); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListProjects returns every project in insertion order.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, budget, contractor_name, project_type, status, expected_completion, start_date,
       latitude, longitude, city, department, is_verified
FROM projects
ORDER BY rowid
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Project
	for rows.Next() {
		var p domain.Project
		var lat, lon sql.NullFloat64
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Budget, &p.ContractorName, &p.ProjectType, &p.Status,
			&p.ExpectedCompletion, &p.StartDate, &lat, &lon, &p.City, &p.Department, &p.IsVerified,
		); err != nil {
			return nil, err
		}
		p.Latitude = nullFloat(lat)
		p.Longitude = nullFloat(lon)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListReports returns every report in insertion order.
func (s *SQLiteStore) ListReports(ctx context.Context) ([]domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, latitude, longitude, severity, category, city
FROM reports
ORDER BY rowid
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Report
	for rows.Next() {
		var r domain.Report
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&r.ID, &lat, &lon, &r.Severity, &r.Category, &r.City); err != nil {
			return nil, err
		}
		r.Latitude = nullFloat(lat)
		r.Longitude = nullFloat(lon)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
