package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/ent/pipelinerun"
	"github.com/feedforward/feedforward/ent/runphaseevent"
	"github.com/feedforward/feedforward/ent/schema"
)

// orphanState tracks orphan detection metrics (thread-safe).
type orphanState struct {
	mu               sync.Mutex
	lastOrphanScan   time.Time
	orphansRecovered int
}

// runOrphanDetection periodically scans for orphaned runs.
// All pods run this independently — operations are idempotent.
func (p *WorkerPool) runOrphanDetection(ctx context.Context) {
	ticker := time.NewTicker(p.config.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.detectAndRecoverOrphans(ctx); err != nil {
				slog.Error("orphan detection failed", "error", err)
			}
		}
	}
}

// detectAndRecoverOrphans finds running pipeline runs with stale heartbeats
// and marks them failed (terminal state).
func (p *WorkerPool) detectAndRecoverOrphans(ctx context.Context) error {
	threshold := time.Now().Add(-p.config.OrphanThreshold)

	orphans, err := p.client.PipelineRun.Query().
		Where(
			pipelinerun.StatusEQ(pipelinerun.StatusRunning),
			pipelinerun.LastHeartbeatAtNotNil(),
			pipelinerun.LastHeartbeatAtLT(threshold),
			pipelinerun.DeletedAtIsNil(),
		).
		All(ctx)
	if err != nil {
		return fmt.Errorf("failed to query orphaned runs: %w", err)
	}

	if len(orphans) == 0 {
		p.orphans.mu.Lock()
		p.orphans.lastOrphanScan = time.Now()
		p.orphans.mu.Unlock()
		return nil
	}

	slog.Warn("detected orphaned runs", "count", len(orphans))

	recovered, failed := 0, 0
	for _, run := range orphans {
		if err := recoverOrphanedRun(ctx, p.client, run); err != nil {
			slog.Error("failed to recover orphaned run", "run_id", run.ID, "error", err)
			failed++
			continue
		}
		recovered++
	}

	p.orphans.mu.Lock()
	p.orphans.lastOrphanScan = time.Now()
	p.orphans.orphansRecovered += recovered
	p.orphans.mu.Unlock()

	if failed > 0 {
		slog.Warn("orphan recovery completed with failures",
			"total_orphans", len(orphans), "recovered", recovered, "failed", failed)
	}

	return nil
}

// recoverOrphanedRun marks a single orphaned run as failed.
func recoverOrphanedRun(ctx context.Context, client *ent.Client, run *ent.PipelineRun) error {
	log := slog.With("run_id", run.ID)

	lastHeartbeat := "unknown"
	if run.LastHeartbeatAt != nil {
		lastHeartbeat = run.LastHeartbeatAt.Format(time.RFC3339)
	}
	podID := "unknown"
	if run.PodID != nil {
		podID = *run.PodID
	}

	errorMsg := fmt.Sprintf("orphaned: no heartbeat from pod %s since %s", podID, lastHeartbeat)
	if err := markRunFailed(ctx, client, run, errorMsg); err != nil {
		return err
	}

	log.Warn("orphaned run marked failed", "last_heartbeat", lastHeartbeat, "old_pod_id", podID)
	return nil
}

// CleanupStartupOrphans performs a one-time cleanup of runs owned by this
// pod that were running or stopping when the pod previously crashed. Called
// once during startup, before the worker pool begins processing.
func CleanupStartupOrphans(ctx context.Context, client *ent.Client, podID string) error {
	orphans, err := client.PipelineRun.Query().
		Where(
			pipelinerun.StatusIn(pipelinerun.StatusRunning, pipelinerun.StatusStopping),
			pipelinerun.PodIDEQ(podID),
			pipelinerun.DeletedAtIsNil(),
		).
		All(ctx)
	if err != nil {
		return fmt.Errorf("failed to query startup orphans: %w", err)
	}

	if len(orphans) == 0 {
		return nil
	}

	slog.Warn("found startup orphans from previous run", "pod_id", podID, "count", len(orphans))

	for _, run := range orphans {
		errorMsg := fmt.Sprintf("abandoned: pod %s restarted while run was in progress", podID)
		if err := markRunFailed(ctx, client, run, errorMsg); err != nil {
			slog.Error("failed to mark startup orphan", "run_id", run.ID, "error", err)
			continue
		}
		slog.Info("startup orphan recovered", "run_id", run.ID)
	}

	return nil
}

// markRunFailed marks a run as failed and, if it had reached a phase,
// records a cancelled phase event for the observability trail. Uses a
// transaction for atomicity.
func markRunFailed(ctx context.Context, client *ent.Client, run *ent.PipelineRun, errorMsg string) error {
	now := time.Now()

	tx, err := client.Tx(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.PipelineRun.UpdateOneID(run.ID).
		SetStatus(pipelinerun.StatusFailed).
		SetCompletedAt(now).
		SetErrorSummary([]schema.ErrorSummaryEntry{{
			Category:      "orphaned",
			Count:         1,
			SampleMessage: errorMsg,
		}}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark run as failed: %w", err)
	}

	if run.Phase != nil {
		if err := tx.RunPhaseEvent.Create().
			SetID(fmt.Sprintf("%s-orphan-%d", run.ID, now.UnixNano())).
			SetRunID(run.ID).
			SetPhase(runphaseevent.Phase(*run.Phase)).
			SetEventType(runphaseevent.EventTypeCancelled).
			SetMessage(errorMsg).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to record orphan phase event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
