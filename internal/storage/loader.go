package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/domain"
)

// ProjectColumns is the header the dataset generator writes.
var ProjectColumns = []string{
	"project_id", "project_name", "budget", "contractor_name",
	"location_latitude", "location_longitude", "project_type",
	"expected_completion_date", "current_status", "is_verified",
}

// ReportColumns is the minimal report file header; extra columns are optional.
var ReportColumns = []string{"latitude", "longitude", "severity", "category", "city"}

// LoadProjectsFromFile reads projects from a JSON array or a generator CSV,
// chosen by file extension.
func LoadProjectsFromFile(path string) ([]domain.Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read projects file: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var projects []domain.Project
		if err := json.NewDecoder(f).Decode(&projects); err != nil {
			return nil, fmt.Errorf("unmarshal projects: %w", err)
		}
		return projects, nil
	}
	return ReadProjectsCSV(f)
}

// ReadProjectsCSV parses the generator format. Coordinates that fail to parse
// are left nil so the scorer treats them as missing.
func ReadProjectsCSV(r io.Reader) ([]domain.Project, error) {
	rows, idx, err := readCSV(r, []string{"project_id", "project_name", "budget"})
	if err != nil {
		return nil, fmt.Errorf("projects csv: %w", err)
	}

	out := make([]domain.Project, 0, len(rows))
	for i, row := range rows {
		get := idx.getter(row)
		budget, err := strconv.ParseInt(get("budget"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("projects csv line %d: budget: %w", i+2, err)
		}
		out = append(out, domain.Project{
			ID:                 get("project_id"),
			Name:               get("project_name"),
			Budget:             budget,
			ContractorName:     get("contractor_name"),
			ProjectType:        get("project_type"),
			Status:             get("current_status"),
			ExpectedCompletion: get("expected_completion_date"),
			Latitude:           parseFloat(get("location_latitude")),
			Longitude:          parseFloat(get("location_longitude")),
			IsVerified:         strings.EqualFold(get("is_verified"), "true"),
		})
	}
	return out, nil
}

func LoadReportsFromFile(path string) ([]domain.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read reports file: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var reports []domain.Report
		if err := json.NewDecoder(f).Decode(&reports); err != nil {
			return nil, fmt.Errorf("unmarshal reports: %w", err)
		}
		return reports, nil
	}
	return ReadReportsCSV(f)
}

func ReadReportsCSV(r io.Reader) ([]domain.Report, error) {
	rows, idx, err := readCSV(r, []string{"latitude", "longitude"})
	if err != nil {
		return nil, fmt.Errorf("reports csv: %w", err)
	}
	out := make([]domain.Report, 0, len(rows))
	for _, row := range rows {
		get := idx.getter(row)
		out = append(out, domain.Report{
			ID:        get("id"),
			Latitude:  parseFloat(get("latitude")),
			Longitude: parseFloat(get("longitude")),
			Severity:  get("severity"),
			Category:  get("category"),
			City:      get("city"),
		})
	}
	return out, nil
}

type columnIndex map[string]int

func (c columnIndex) getter(row []string) func(string) string {
	return func(name string) string {
		i, ok := c[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
}

func readCSV(r io.Reader, required []string) ([][]string, columnIndex, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("empty file")
	}
	if err != nil {
		return nil, nil, err
	}
	idx := make(columnIndex, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", col)
		}
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return rows, idx, nil
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// FileSource serves the flat-file dataset. Files are re-read on every call so
// the source stays stateless.
type FileSource struct {
	ProjectsPath string
	ReportsPath  string
}

func (f FileSource) ListProjects(ctx context.Context) ([]domain.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadProjectsFromFile(f.ProjectsPath)
}

// ListReports returns no reports when ReportsPath is unset.
func (f FileSource) ListReports(ctx context.Context) ([]domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.ReportsPath == "" {
		return nil, nil
	}
	return LoadReportsFromFile(f.ReportsPath)
}
