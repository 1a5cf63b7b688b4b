package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/ent/pipelinerun"
	"github.com/feedforward/feedforward/ent/runphaseevent"
	"github.com/feedforward/feedforward/pkg/queue"
	"github.com/feedforward/feedforward/pkg/services"
)

// errCancelled is returned internally by a phase when cancel_requested was
// observed; Execute turns it into a "stopped" ExecutionResult rather than a
// "failed" one.
var errCancelled = fmt.Errorf("run cancelled")

// defaultWriteTimeout bounds the final error_summary write, which happens
// outside the per-phase context so it still completes on a cancelled run.
const defaultWriteTimeout = 10 * time.Second

// Run drives a single pipeline run through its eight phases. One Run is
// constructed per call to Execute; it holds no state across runs.
type Run struct {
	deps *Dependencies
	log  *slog.Logger

	run            *ent.PipelineRun
	tally          *errorTally
	excerptCache   map[string]string
	sourceURLCache map[string]string
}

// NewRun constructs an executor ready to drive runs against deps.
func NewRun(deps *Dependencies) *Run {
	return &Run{deps: deps, log: slog.Default().With("component", "orchestrator")}
}

var _ queue.RunExecutor = (*Run)(nil)

// Execute drives run through fetching, classifying, embedding, faceting,
// clustering, pm_review, quality_gate and story_creation in order. Every
// phase persists its own output as it completes; Execute's only remaining
// responsibility on return is the terminal ExecutionResult the worker pool
// uses to set status/completed_at.
func (r *Run) Execute(ctx context.Context, run *ent.PipelineRun) *queue.ExecutionResult {
	r = &Run{deps: r.deps, log: r.log}
	r.run = run
	r.tally = newErrorTally()
	r.excerptCache = make(map[string]string)
	r.sourceURLCache = make(map[string]string)
	log := r.log.With("run_id", run.ID, "dry_run", run.DryRun)

	conversations, err := r.runFetchPhase(ctx, log)
	if err != nil {
		return r.terminal(ctx, log, err)
	}

	classifications, err := r.runClassifyPhase(ctx, log, conversations)
	if err != nil {
		return r.terminal(ctx, log, err)
	}

	if run.DryRun {
		// Dry-run previews classification_breakdown/samples/top_themes only;
		// it persists no conversation, classification, embedding or facet
		// rows (phase progress, phase events and error_summary are still
		// written) and never reaches clustering or stories.
		if _, err := r.runExtractPhase(ctx, log, conversations, classifications); err != nil {
			return r.terminal(ctx, log, err)
		}
		return r.terminal(ctx, log, nil)
	}

	extracted, insights, err := r.runExtractPhase(ctx, log, conversations, classifications)
	if err != nil {
		return r.terminal(ctx, log, err)
	}

	if err := r.persistClassifications(ctx, log, classifications, insights); err != nil {
		return r.terminal(ctx, log, err)
	}

	clusters, err := r.runClusterPhase(ctx, log, extracted)
	if err != nil {
		return r.terminal(ctx, log, err)
	}

	groups, err := r.runReviewPhase(ctx, log, clusters)
	if err != nil {
		return r.terminal(ctx, log, err)
	}

	if err := r.runStoryPhase(ctx, log, groups, classifications); err != nil {
		return r.terminal(ctx, log, err)
	}

	return r.terminal(ctx, log, nil)
}

// terminal writes the accumulated error_summary (if any entries were
// tallied) and maps the phase error, if any, to an ExecutionResult.
func (r *Run) terminal(ctx context.Context, log *slog.Logger, err error) *queue.ExecutionResult {
	if entries := r.tally.entries(); entries != nil {
		writeCtx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
		defer cancel()
		if werr := r.deps.Runs.UpdateErrorSummary(writeCtx, r.run.ID, entries); werr != nil {
			log.Error("failed to persist error summary", "error", werr)
		}
	}
	if r.deps.Preview != nil {
		r.deps.Preview.Evict(r.run.ID)
	}

	switch {
	case err == nil:
		return &queue.ExecutionResult{Status: pipelinerun.StatusCompleted}
	case err == errCancelled:
		return &queue.ExecutionResult{Status: pipelinerun.StatusStopped}
	default:
		return &queue.ExecutionResult{Status: pipelinerun.StatusFailed, Error: err}
	}
}

// Phase names, matching the pipelinerun/runphaseevent schema enums verbatim
// so they can be cast directly into the generated enum types at the
// persistence boundary instead of guessing at generated constant names.
const (
	phaseFetching      = "fetching"
	phaseClassifying   = "classifying"
	phaseEmbedding     = "embedding"
	phaseFaceting      = "faceting"
	phaseClustering    = "clustering"
	phasePMReview      = "pm_review"
	phaseQualityGate   = "quality_gate"
	phaseStoryCreation = "story_creation"
)

// beginPhase advances the run's persisted phase and emits a "started" event.
func (r *Run) beginPhase(ctx context.Context, phase string) error {
	if err := r.deps.Runs.UpdatePhase(ctx, r.run.ID, pipelinerun.Phase(phase)); err != nil {
		return fmt.Errorf("advancing to phase %s: %w", phase, err)
	}
	_, err := r.deps.PhaseEvents.Record(ctx, services.RecordEventRequest{
		RunID:     r.run.ID,
		Phase:     runphaseevent.Phase(phase),
		EventType: runphaseevent.EventTypeStarted,
	})
	return err
}

// endPhase records the phase's processed/failed counters and a "completed"
// event.
func (r *Run) endPhase(ctx context.Context, phase string, processed, failed int) error {
	if err := r.deps.Runs.RecordPhaseCounters(ctx, r.run.ID, phase, processed, failed); err != nil {
		return fmt.Errorf("recording counters for phase %s: %w", phase, err)
	}
	_, err := r.deps.PhaseEvents.Record(ctx, services.RecordEventRequest{
		RunID:          r.run.ID,
		Phase:          runphaseevent.Phase(phase),
		EventType:      runphaseevent.EventTypeCompleted,
		ProcessedCount: &processed,
		FailedCount:    &failed,
	})
	return err
}

// failPhase records a "failed" phase event with a short diagnostic message.
// It never returns an error itself: a failure to log a failure must not
// shadow the original cause.
func (r *Run) failPhase(ctx context.Context, log *slog.Logger, phase string, cause error) {
	msg := cause.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	if _, err := r.deps.PhaseEvents.Record(ctx, services.RecordEventRequest{
		RunID:     r.run.ID,
		Phase:     runphaseevent.Phase(phase),
		EventType: runphaseevent.EventTypeFailed,
		Message:   msg,
	}); err != nil {
		log.Error("failed to record phase failure event", "phase", phase, "error", err)
	}
}

// checkCancelled re-reads the run's persisted cancel_requested flag so a
// cancellation requested against a different pod than the one executing
// still takes effect between phases and batches.
func (r *Run) checkCancelled(ctx context.Context) error {
	current, err := r.deps.Runs.GetRun(ctx, r.run.ID)
	if err != nil {
		return fmt.Errorf("checking cancellation: %w", err)
	}
	if current.CancelRequested {
		if current.Phase != nil {
			_, _ = r.deps.PhaseEvents.Record(ctx, services.RecordEventRequest{
				RunID:     r.run.ID,
				Phase:     runphaseevent.Phase(*current.Phase),
				EventType: runphaseevent.EventTypeCancelled,
			})
		}
		return errCancelled
	}
	return nil
}
