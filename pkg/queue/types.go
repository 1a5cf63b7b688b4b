// Package queue provides pipeline run queue management and worker pool
// infrastructure: claiming pending runs, heartbeating in-progress ones, and
// recovering runs orphaned by a crashed or restarted pod.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/ent/pipelinerun"
)

// Sentinel errors for queue operations.
var (
	// ErrNoRunsAvailable indicates no pending runs are in the queue.
	ErrNoRunsAvailable = errors.New("no runs available")

	// ErrAtCapacity indicates the global concurrent run limit has been reached.
	ErrAtCapacity = errors.New("at capacity")
)

// RunExecutor is the interface for pipeline run processing.
//
// The executor owns the entire run lifecycle internally: it drives every
// phase (fetch, classify, embed, facet, cluster, PM review, quality gate,
// story creation) in order, writing RunPhaseEvent rows and phase output
// (classifications, embeddings, facets, clusters, stories) progressively as
// it goes rather than buffering until the end. It must poll ctx and the
// run's persisted cancel_requested flag between phases and batches so that
// a cancellation requested against a different pod than the one executing
// the run still takes effect.
//
// The worker only handles: claiming, heartbeat, and terminal status update.
type RunExecutor interface {
	Execute(ctx context.Context, run *ent.PipelineRun) *ExecutionResult
}

// ExecutionResult is the terminal state of a run. Intermediate state was
// already written to the database by the executor during processing.
type ExecutionResult struct {
	Status pipelinerun.Status // completed, failed, stopped
	Error  error               // populated if Status is failed
}

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy        bool           `json:"is_healthy"`
	DBReachable      bool           `json:"db_reachable"`
	DBError          string         `json:"db_error,omitempty"`
	PodID            string         `json:"pod_id"`
	ActiveWorkers    int            `json:"active_workers"`
	TotalWorkers     int            `json:"total_workers"`
	ActiveRuns       int            `json:"active_runs"`
	MaxConcurrent    int            `json:"max_concurrent"`
	QueueDepth       int            `json:"queue_depth"`
	WorkerStats      []WorkerHealth `json:"worker_stats"`
	LastOrphanScan   time.Time      `json:"last_orphan_scan"`
	OrphansRecovered int            `json:"orphans_recovered"`
}

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"` // "idle" or "working"
	CurrentRunID   string    `json:"current_run_id,omitempty"`
	RunsProcessed  int       `json:"runs_processed"`
	LastActivity   time.Time `json:"last_activity"`
}
