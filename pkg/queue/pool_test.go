package queue

import (
	"context"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/ent/pipelinerun"
	"github.com/feedforward/feedforward/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestEntClient spins up a disposable Postgres container and an ent
// client with schema created via auto-migration, mirroring
// pkg/database/client_test.go's newTestClient helper.
func newTestEntClient(t *testing.T) *ent.Client {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	drv, err := sql.Open(dialect.Postgres, connStr)
	require.NoError(t, err)

	client := ent.NewClient(ent.Driver(drv))
	require.NoError(t, client.Schema.Create(ctx))
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func testRunnerConfig() *config.RunnerConfig {
	cfg := config.DefaultRunnerConfig()
	cfg.WorkerCount = 1
	cfg.PollInterval = 20 * time.Millisecond
	cfg.PollIntervalJitter = 5 * time.Millisecond
	cfg.OrphanThreshold = 200 * time.Millisecond
	cfg.OrphanDetectionInterval = 50 * time.Millisecond
	return cfg
}

// blockingExecutor holds the run until release is closed, then returns status.
type blockingExecutor struct {
	release chan struct{}
	status  pipelinerun.Status
	started chan string
}

func (e *blockingExecutor) Execute(ctx context.Context, run *ent.PipelineRun) *ExecutionResult {
	if e.started != nil {
		e.started <- run.ID
	}
	select {
	case <-e.release:
	case <-ctx.Done():
		return &ExecutionResult{Status: pipelinerun.StatusStopped}
	}
	return &ExecutionResult{Status: e.status}
}

func TestWorkerPool_ClaimsAndCompletesRun(t *testing.T) {
	client := newTestEntClient(t)
	ctx := context.Background()

	run, err := client.PipelineRun.Create().
		SetID("run-claim-1").
		SetWindowStart(time.Now().Add(-24 * time.Hour)).
		SetWindowEnd(time.Now()).
		Save(ctx)
	require.NoError(t, err)

	executor := &blockingExecutor{release: make(chan struct{}), status: pipelinerun.StatusCompleted}
	close(executor.release) // let the executor return immediately

	pool := NewWorkerPool("pod-1", client, testRunnerConfig(), executor)
	require.NoError(t, pool.Start(ctx))
	t.Cleanup(pool.Stop)

	require.Eventually(t, func() bool {
		got, err := client.PipelineRun.Get(ctx, run.ID)
		return err == nil && got.Status == pipelinerun.StatusCompleted
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWorkerPool_CancelRunPersistsFlag(t *testing.T) {
	client := newTestEntClient(t)
	ctx := context.Background()

	run, err := client.PipelineRun.Create().
		SetID("run-cancel-1").
		SetWindowStart(time.Now().Add(-24 * time.Hour)).
		SetWindowEnd(time.Now()).
		Save(ctx)
	require.NoError(t, err)

	started := make(chan string, 1)
	executor := &blockingExecutor{release: make(chan struct{}), status: pipelinerun.StatusStopped, started: started}

	pool := NewWorkerPool("pod-1", client, testRunnerConfig(), executor)
	require.NoError(t, pool.Start(ctx))
	t.Cleanup(pool.Stop)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("executor was never started")
	}

	localHit, err := pool.CancelRun(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, localHit, "cancel should hit the local registry for a run this pod is executing")

	got, err := client.PipelineRun.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, got.CancelRequested)

	close(executor.release)
}

func TestWorkerPool_CancelRunUnknownStillPersists(t *testing.T) {
	client := newTestEntClient(t)
	ctx := context.Background()

	run, err := client.PipelineRun.Create().
		SetID("run-cancel-2").
		SetWindowStart(time.Now().Add(-24 * time.Hour)).
		SetWindowEnd(time.Now()).
		Save(ctx)
	require.NoError(t, err)

	executor := &blockingExecutor{release: make(chan struct{}), status: pipelinerun.StatusCompleted}
	pool := NewWorkerPool("pod-1", client, testRunnerConfig(), executor)

	localHit, err := pool.CancelRun(ctx, run.ID)
	require.NoError(t, err)
	assert.False(t, localHit, "run was never claimed by this pod, so there is no local registry entry")

	got, err := client.PipelineRun.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, got.CancelRequested)
}

func TestCleanupStartupOrphans_MarksOwnedRunningRunsFailed(t *testing.T) {
	client := newTestEntClient(t)
	ctx := context.Background()

	podID := "pod-crashed"
	run, err := client.PipelineRun.Create().
		SetID("run-orphan-1").
		SetWindowStart(time.Now().Add(-24 * time.Hour)).
		SetWindowEnd(time.Now()).
		SetStatus(pipelinerun.StatusRunning).
		SetPodID(podID).
		SetStartedAt(time.Now()).
		SetLastHeartbeatAt(time.Now().Add(-time.Hour)).
		Save(ctx)
	require.NoError(t, err)

	require.NoError(t, CleanupStartupOrphans(ctx, client, podID))

	got, err := client.PipelineRun.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, pipelinerun.StatusFailed, got.Status)
	assert.NotNil(t, got.CompletedAt)
}
