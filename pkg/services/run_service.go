package services

import (
	"context"
	"fmt"
	"time"

	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/ent/pipelinerun"
	"github.com/feedforward/feedforward/ent/schema"
	"github.com/google/uuid"
)

// RunService manages pipeline run lifecycle.
type RunService struct {
	client *ent.Client
}

// NewRunService creates a new RunService.
func NewRunService(client *ent.Client) *RunService {
	return &RunService{client: client}
}

// CreateRunRequest describes a new pipeline run.
type CreateRunRequest struct {
	WindowStart       time.Time
	WindowEnd         time.Time
	MaxConversations  *int
	DryRun            bool
	AutoCreateStories bool
	Concurrency       int
}

// CreateRun creates a new pending pipeline run.
func (s *RunService) CreateRun(ctx context.Context, req CreateRunRequest) (*ent.PipelineRun, error) {
	if !req.WindowStart.Before(req.WindowEnd) {
		return nil, NewValidationError("window", "window_start must be before window_end")
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	builder := s.client.PipelineRun.Create().
		SetID(uuid.New().String()).
		SetWindowStart(req.WindowStart).
		SetWindowEnd(req.WindowEnd).
		SetDryRun(req.DryRun).
		SetAutoCreateStories(req.AutoCreateStories)

	if req.Concurrency > 0 {
		builder = builder.SetConcurrency(req.Concurrency)
	}
	if req.MaxConversations != nil {
		builder = builder.SetMaxConversations(*req.MaxConversations)
	}

	run, err := builder.Save(writeCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *RunService) GetRun(ctx context.Context, runID string) (*ent.PipelineRun, error) {
	run, err := s.client.PipelineRun.Query().
		Where(pipelinerun.IDEQ(runID), pipelinerun.DeletedAtIsNil()).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// RunFilters narrows ListRuns results.
type RunFilters struct {
	Status pipelinerun.Status
	Limit  int
	Offset int
}

// RunListResult is a page of pipeline runs.
type RunListResult struct {
	Runs       []*ent.PipelineRun
	TotalCount int
	Limit      int
	Offset     int
}

// ListRuns lists runs with filtering and pagination.
func (s *RunService) ListRuns(ctx context.Context, filters RunFilters) (*RunListResult, error) {
	query := s.client.PipelineRun.Query().Where(pipelinerun.DeletedAtIsNil())
	if filters.Status != "" {
		query = query.Where(pipelinerun.StatusEQ(filters.Status))
	}

	totalCount, err := query.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	runs, err := query.
		Limit(limit).
		Offset(offset).
		Order(ent.Desc(pipelinerun.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return &RunListResult{Runs: runs, TotalCount: totalCount, Limit: limit, Offset: offset}, nil
}

// RequestCancel sets the persisted cancel_requested flag. The executor
// driving the run (possibly on another pod) polls this flag between
// phases and batches.
func (s *RunService) RequestCancel(ctx context.Context, runID string) error {
	err := s.client.PipelineRun.UpdateOneID(runID).
		SetCancelRequested(true).
		Exec(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to request cancellation: %w", err)
	}
	return nil
}

// UpdatePhase records which phase a run has entered. Phase counters are
// left as they are.
func (s *RunService) UpdatePhase(ctx context.Context, runID string, phase pipelinerun.Phase) error {
	err := s.client.PipelineRun.UpdateOneID(runID).
		SetPhase(phase).
		Exec(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update run phase: %w", err)
	}
	return nil
}

// RecordPhaseCounters merges processed/failed counts for one phase into the
// run's phase_counters map.
func (s *RunService) RecordPhaseCounters(ctx context.Context, runID string, phase string, processed, failed int) error {
	run, err := s.client.PipelineRun.Get(ctx, runID)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load run for phase counters: %w", err)
	}

	counters := run.PhaseCounters
	if counters == nil {
		counters = map[string]schema.PhaseCounters{}
	}
	existing := counters[phase]
	existing.Processed += processed
	existing.Failed += failed
	counters[phase] = existing

	if err := s.client.PipelineRun.UpdateOneID(runID).
		SetPhaseCounters(counters).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to record phase counters: %w", err)
	}
	return nil
}

// MarkStoriesReady flips stories_ready once at least one story has been
// created during the run.
func (s *RunService) MarkStoriesReady(ctx context.Context, runID string) error {
	err := s.client.PipelineRun.UpdateOneID(runID).
		SetStoriesReady(true).
		Exec(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to mark stories ready: %w", err)
	}
	return nil
}

// UpdateErrorSummary overwrites a run's category-keyed error_summary. The
// orchestrator accumulates entries across every phase and calls this once
// at the end of a run; the worker pool separately overwrites this field
// with a single "run_failure" entry only when Execute itself returns a
// hard error, so this call is what surfaces per-category rejection counts
// for a run that otherwise completes normally.
func (s *RunService) UpdateErrorSummary(ctx context.Context, runID string, entries []schema.ErrorSummaryEntry) error {
	err := s.client.PipelineRun.UpdateOneID(runID).
		SetErrorSummary(entries).
		Exec(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update run error summary: %w", err)
	}
	return nil
}

// SoftDeleteOldRuns soft-deletes completed runs older than the retention
// period, leaving their output rows (stories, orphans) untouched.
func (s *RunService) SoftDeleteOldRuns(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention_days must be positive, got %d", retentionDays)
	}

	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	deleteCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := s.client.PipelineRun.Update().
		Where(
			pipelinerun.CompletedAtLT(cutoff),
			pipelinerun.DeletedAtIsNil(),
		).
		SetDeletedAt(time.Now()).
		Save(deleteCtx)
	if err != nil {
		return 0, fmt.Errorf("failed to soft delete runs: %w", err)
	}
	return count, nil
}
