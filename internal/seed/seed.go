// Package seed turns a raw generator dataset into store rows.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/domain"
)

const dateLayout = "2006-01-02"

// Store is what both the SQLite and Postgres backends expose for loading data.
type Store interface {
	UpsertProjects(ctx context.Context, items []domain.Project) error
	InsertReports(ctx context.Context, items []domain.Report) error
	UpsertContractorProfiles(ctx context.Context, items []domain.ContractorProfile) error
}

var statusMap = map[string]string{
	"pending":         "pending",
	"verified":        "verified",
	"disputed":        "disputed",
	"Ongoing":         "verified",
	"Near Completion": "verified",
	"Completed":       "verified",
	"In Progress":     "verified",
	"Delayed":         "disputed",
	"Pending":         "pending",
}

// NormalizeStatus maps a dataset status onto pending/verified/disputed.
// Already normalised values map to themselves.
func NormalizeStatus(raw string) string {
	if s, ok := statusMap[strings.TrimSpace(raw)]; ok {
		return s
	}
	return "pending"
}

var departments = map[string]string{
	"roads":        "Ministry of Road Transport & Highways",
	"sanitation":   "Department of Water & Sanitation",
	"public_works": "Public Works Department (CPWD)",
	"bridge":       "State Infrastructure Development Corp",
	"electrical":   "Department of Power & Energy",
}

func DepartmentFor(projectType string) string {
	if d, ok := departments[projectType]; ok {
		return d
	}
	return "General Infrastructure Dept"
}

// StartDate picks a start 365..1095 days before expected completion.
func StartDate(rnd *rand.Rand, expected string) (string, error) {
	end, err := time.Parse(dateLayout, expected)
	if err != nil {
		return "", fmt.Errorf("expected completion %q: %w", expected, err)
	}
	days := 365 + rnd.Intn(1095-365+1)
	return end.AddDate(0, 0, -days).Format(dateLayout), nil
}

type Seeder struct {
	Store  Store
	Logger *zap.Logger
	Rand   *rand.Rand
	// Blocklist contractors get is_blacklisted in their profile.
	Blocklist []string
}

// Result summarises one run.
type Result struct {
	Projects    int
	Skipped     int
	Reports     int
	Contractors int
}

// Prepare normalises raw rows. Rows that fail validation or carry an
// unparseable completion date are skipped and logged.
func (s *Seeder) Prepare(raw []domain.Project) ([]domain.Project, int) {
	out := make([]domain.Project, 0, len(raw))
	skipped := 0
	for i, p := range raw {
		if err := p.Validate(); err != nil {
			s.logger().Warn("Skipping invalid project row",
				zap.Int("row", i), zap.String("project_id", p.ID), zap.Error(err))
			skipped++
			continue
		}
		if p.ExpectedCompletion != "" {
			start, err := StartDate(s.Rand, p.ExpectedCompletion)
			if err != nil {
				s.logger().Warn("Skipping project with bad completion date",
					zap.Int("row", i), zap.String("project_id", p.ID), zap.Error(err))
				skipped++
				continue
			}
			p.StartDate = start
		}
		p.Status = NormalizeStatus(p.Status)
		p.Department = DepartmentFor(p.ProjectType)
		if p.City == "" {
			p.City = "Unknown"
		}
		out = append(out, p)
	}
	return out, skipped
}

// Profiles aggregates per-contractor delay history. Run passes the prepared
// rows, so skipped rows never count towards a profile. A delayed project
// counts as flagged and the risk score is the flagged percentage.
func Profiles(raw []domain.Project, blocklist []string) []domain.ContractorProfile {
	blocked := make(map[string]bool, len(blocklist))
	for _, n := range blocklist {
		blocked[strings.ToLower(strings.TrimSpace(n))] = true
	}

	byName := map[string]*domain.ContractorProfile{}
	for _, p := range raw {
		name := strings.TrimSpace(p.ContractorName)
		if name == "" {
			continue
		}
		prof, ok := byName[name]
		if !ok {
			prof = &domain.ContractorProfile{ContractorName: name, IsBlacklisted: blocked[strings.ToLower(name)]}
			byName[name] = prof
		}
		prof.TotalProjects++
		if NormalizeStatus(p.Status) == "disputed" {
			prof.FlaggedProjects++
		}
	}

	out := make([]domain.ContractorProfile, 0, len(byName))
	for _, prof := range byName {
		prof.RiskScore = prof.FlaggedProjects * 100 / prof.TotalProjects
		out = append(out, *prof)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContractorName < out[j].ContractorName })
	return out
}

// Run loads projects, contractor profiles and reports into the store.
func (s *Seeder) Run(ctx context.Context, projects []domain.Project, reports []domain.Report) (Result, error) {
	prepared, skipped := s.Prepare(projects)
	profiles := Profiles(prepared, s.Blocklist)

	if err := s.Store.UpsertProjects(ctx, prepared); err != nil {
		return Result{}, fmt.Errorf("upsert projects: %w", err)
	}
	if err := s.Store.UpsertContractorProfiles(ctx, profiles); err != nil {
		return Result{}, fmt.Errorf("upsert contractor profiles: %w", err)
	}
	if len(reports) > 0 {
		if err := s.Store.InsertReports(ctx, reports); err != nil {
			return Result{}, fmt.Errorf("insert reports: %w", err)
		}
	}

	res := Result{Projects: len(prepared), Skipped: skipped, Reports: len(reports), Contractors: len(profiles)}
	s.logger().Info("Seed complete",
		zap.Int("projects", res.Projects),
		zap.Int("skipped", res.Skipped),
		zap.Int("reports", res.Reports),
		zap.Int("contractors", res.Contractors))
	return res, nil
}

func (s *Seeder) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
