package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/domain"
)

type stubSource struct {
	projects    []domain.Project
	reports     []domain.Report
	projectsErr error
	reportsErr  error
	block       bool
}

func (s stubSource) ListProjects(ctx context.Context) ([]domain.Project, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.projects, s.projectsErr
}

func (s stubSource) ListReports(context.Context) ([]domain.Report, error) {
	return s.reports, s.reportsErr
}

type labelCounter map[domain.Label]int

func (l labelCounter) ObservePrediction(label domain.Label) { l[label]++ }

func newService(src Source) *Service {
	return &Service{
		Source:     src,
		Reputation: NewPositionalProvider(),
		Engine:     NewEngine(DefaultParams(), nil),
		Logger:     zap.NewNop(),
		Clock:      func() time.Time { return january },
	}
}

func TestServicePredict(t *testing.T) {
	rec := labelCounter{}
	svc := newService(stubSource{
		projects: []domain.Project{mumbai("a"), mumbai("b")},
		reports:  reportsNear(19.0760, 72.8777, 6),
	})
	svc.Recorder = rec

	got, err := svc.Predict(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	// position 0 is flagged by the positional provider
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, 100, got[0].Prediction.Score)
	assert.Equal(t, "Shiv Shakti Infra", got[0].Prediction.Contractor)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, 70, got[1].Prediction.Score)
	assert.Equal(t, "Reliable Build Co", got[1].Prediction.Contractor)

	assert.Equal(t, labelCounter{domain.LabelCritical: 1, domain.LabelModerate: 1}, rec)
}

func TestServicePredict_IngestionFailure(t *testing.T) {
	boom := errors.New("store unreachable")

	_, err := newService(stubSource{projectsErr: boom}).Predict(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = newService(stubSource{projects: []domain.Project{mumbai("a")}, reportsErr: boom}).Predict(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestServicePredict_Timeout(t *testing.T) {
	svc := newService(stubSource{block: true})
	svc.Timeout = 10 * time.Millisecond

	_, err := svc.Predict(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServicePredict_ReputationFailure(t *testing.T) {
	boom := errors.New("connection reset")
	svc := newService(stubSource{projects: []domain.Project{{ID: "x", ContractorName: "NCC Ltd"}}})
	svc.Reputation = TableProvider{Store: &fakeProfiles{err: boom}, Threshold: 50}

	_, err := svc.Predict(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestServicePredict_OneProfileFetchPerCall(t *testing.T) {
	apex := mumbai("c")
	apex.ContractorName = "Apex Roadways"
	store := &fakeProfiles{rows: []domain.ContractorProfile{
		{ContractorName: "Apex Roadways", IsBlacklisted: true},
		{ContractorName: "Tata Projects", RiskScore: 10},
	}}
	svc := newService(stubSource{projects: []domain.Project{mumbai("a"), mumbai("b"), apex}})
	svc.Reputation = TableProvider{Store: store, Threshold: 50}

	got, err := svc.Predict(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, 30, got[0].Prediction.Score)
	assert.Equal(t, 30, got[1].Prediction.Score)
	assert.Equal(t, 60, got[2].Prediction.Score)
	assert.Equal(t, "Apex Roadways", got[2].Prediction.Contractor)

	_, err = svc.Predict(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
}

// blockingProfiles never answers until the caller gives up.
type blockingProfiles struct{}

func (blockingProfiles) ListContractorProfiles(ctx context.Context) ([]domain.ContractorProfile, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestServicePredict_TimeoutCoversReputation(t *testing.T) {
	svc := newService(stubSource{projects: []domain.Project{mumbai("a")}})
	svc.Reputation = TableProvider{Store: blockingProfiles{}, Threshold: 50}
	svc.Timeout = 10 * time.Millisecond

	_, err := svc.Predict(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServicePredict_LogsMalformed(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	noLoc := mumbai("no-loc")
	noLoc.Latitude = nil

	svc := newService(stubSource{
		projects: []domain.Project{noLoc},
		reports:  []domain.Report{{Latitude: domain.Float(1)}},
	})
	svc.Logger = zap.New(core)

	got, err := svc.Predict(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, "no-loc", logs.FilterField(zap.String("project_id", "no-loc")).All()[0].ContextMap()["project_id"])
}

func TestServicePredictOne(t *testing.T) {
	svc := newService(stubSource{projects: []domain.Project{mumbai("a"), mumbai("b")}})

	sp, err := svc.PredictOne(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "b", sp.ID)
	assert.Equal(t, 30, sp.Prediction.Score)

	_, err = svc.PredictOne(context.Background(), "zzz")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
