package risk

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/domain"
)

// Source is the ingestion capability: full, ordered snapshots of both tables.
type Source interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListReports(ctx context.Context) ([]domain.Report, error)
}

// Recorder receives one call per scored project. Optional.
type Recorder interface {
	ObservePrediction(label domain.Label)
}

type Service struct {
	Source     Source
	Reputation ReputationProvider
	Engine     *Engine
	Logger     *zap.Logger
	Recorder   Recorder
	// Timeout bounds ingestion, reputation lookup included. Zero means no
	// extra deadline.
	Timeout time.Duration
	Clock   func() time.Time
}

// Predict ingests a snapshot and scores it. Any ingestion or reputation
// failure fails the whole call; partial batches are never scored.
func (s *Service) Predict(ctx context.Context) ([]domain.ScoredProject, error) {
	projects, reports, reps, err := s.ingest(ctx)
	if err != nil {
		return nil, err
	}

	s.warnMalformed(projects, reports)

	out := s.Engine.Assess(projects, reports, reps, s.now())
	if s.Recorder != nil {
		for _, sp := range out {
			s.Recorder.ObservePrediction(sp.Prediction.Label)
		}
	}
	return out, nil
}

// PredictOne scores the full batch and returns the project with id.
func (s *Service) PredictOne(ctx context.Context, id string) (domain.ScoredProject, error) {
	all, err := s.Predict(ctx)
	if err != nil {
		return domain.ScoredProject{}, err
	}
	for _, sp := range all {
		if sp.ID == id {
			return sp, nil
		}
	}
	return domain.ScoredProject{}, fmt.Errorf("project %q: %w", id, domain.ErrNotFound)
}

func (s *Service) ingest(ctx context.Context) ([]domain.Project, []domain.Report, []domain.Reputation, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	projects, err := s.Source.ListProjects(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch projects: %w", err)
	}
	reports, err := s.Source.ListReports(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch reports: %w", err)
	}

	refs := make([]ContractorRef, len(projects))
	for i, p := range projects {
		refs[i] = ContractorRef{Name: p.ContractorName, Position: i}
	}
	reps, err := s.Reputation.Reputations(ctx, refs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolve reputation: %w", err)
	}
	if len(reps) != len(projects) {
		return nil, nil, nil, fmt.Errorf("resolve reputation: got %d results for %d projects", len(reps), len(projects))
	}
	return projects, reports, reps, nil
}

func (s *Service) warnMalformed(projects []domain.Project, reports []domain.Report) {
	if s.Logger == nil {
		return
	}
	for _, p := range projects {
		if _, ok := p.Location(); !ok {
			s.Logger.Warn("Project has no usable location, density contribution is 0",
				zap.String("project_id", p.ID))
		}
	}
	bad := 0
	for _, r := range reports {
		if _, ok := r.Location(); !ok {
			bad++
		}
	}
	if bad > 0 {
		s.Logger.Warn("Skipping reports without usable location",
			zap.Int("skipped", bad),
			zap.Int("total", len(reports)))
	}
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}
