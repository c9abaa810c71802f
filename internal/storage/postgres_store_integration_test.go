//go:build integration

package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/domain"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations", "postgres")
}

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "risk",
				"POSTGRES_USER":     "risk",
				"POSTGRES_PASSWORD": "risk",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("warning: failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://risk:risk@%s:%s/risk?sslmode=disable", host, port.Port())
}

func TestPostgresStore_Integration(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()
	logger := zap.NewNop()

	require.NoError(t, RunMigrations(dsn, migrationsDir(t), logger))
	// idempotent
	require.NoError(t, RunMigrations(dsn, migrationsDir(t), logger))

	st, err := OpenPostgres(ctx, PostgresConfig{URL: dsn})
	require.NoError(t, err)
	defer st.Close()

	projects := []domain.Project{
		{ID: "p2", Name: "Flyover at Chennai Junction B", Budget: 70_000_000, ProjectType: "bridge", Status: "verified",
			Latitude: domain.Float(13.0827), Longitude: domain.Float(80.2707)},
		{ID: "p1", Name: "Chennai Water Pipeline Ward 12", Budget: 3_000_000, ProjectType: "water", Status: "pending"},
	}
	require.NoError(t, st.UpsertProjects(ctx, projects))
	const keptID = "5b0f6f44-3c1e-4c55-9d7a-2f4a8f0e9b11"
	reports := []domain.Report{
		{ID: keptID, Latitude: domain.Float(13.083), Longitude: domain.Float(80.271), Severity: "critical"},
		{ID: "r-not-a-uuid", Latitude: domain.Float(13.084), Longitude: domain.Float(80.272)},
	}
	require.NoError(t, st.InsertReports(ctx, reports))
	// re-inserting a kept id is a no-op
	require.NoError(t, st.InsertReports(ctx, reports[:1]))
	require.NoError(t, st.UpsertContractorProfiles(ctx, []domain.ContractorProfile{
		{ContractorName: "Apex Roadways", RiskScore: 90, IsBlacklisted: true},
	}))

	gotProjects, err := st.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, gotProjects, 2)
	assert.Equal(t, "p2", gotProjects[0].ID)
	assert.Equal(t, 13.0827, *gotProjects[0].Latitude)
	assert.Nil(t, gotProjects[1].Latitude)

	gotReports, err := st.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, gotReports, 2)
	assert.Equal(t, keptID, gotReports[0].ID)
	assert.NotEqual(t, "r-not-a-uuid", gotReports[1].ID)
	assert.NotEmpty(t, gotReports[1].ID)

	profiles, err := st.ListContractorProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.True(t, profiles[0].IsBlacklisted)
}
