package config

import "time"

// RunnerConfig contains worker-pool and pipeline-concurrency configuration.
// These values control how pipeline runs are polled, claimed, processed,
// and how aggressively each phase fans out to the LLM and embedding
// providers.
type RunnerConfig struct {
	// WorkerCount is the number of worker goroutines per replica/pod.
	// Each worker independently polls and claims pending runs.
	WorkerCount int `yaml:"worker_count"`

	// MaxConcurrentRuns is the global limit of concurrent pipeline runs
	// being processed across ALL replicas/pods. Enforced by a database
	// COUNT(*) check against pipeline_runs in status running.
	MaxConcurrentRuns int `yaml:"max_concurrent_runs"`

	// PollInterval is the base interval for checking pending runs.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollIntervalJitter is the random jitter applied to PollInterval: each
	// wait is drawn from [PollInterval-jitter, PollInterval+jitter).
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// RunTimeout is the maximum wall-clock time a single run can execute.
	RunTimeout time.Duration `yaml:"run_timeout"`

	// GracefulShutdownTimeout is the max time to wait for an in-flight run
	// to reach a checkpoint during shutdown.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// OrphanDetectionInterval is how often to scan for orphaned runs.
	OrphanDetectionInterval time.Duration `yaml:"orphan_detection_interval"`

	// OrphanThreshold is how long a run can go without a heartbeat before
	// it is considered orphaned and marked failed.
	OrphanThreshold time.Duration `yaml:"orphan_threshold"`

	// ClassifierConcurrency bounds concurrent Stage 1/Stage 2 LLM calls.
	ClassifierConcurrency int `yaml:"classifier_concurrency"`

	// EmbeddingConcurrency bounds concurrent embedding + facet-extraction calls.
	EmbeddingConcurrency int `yaml:"embedding_concurrency"`

	// PMReviewConcurrency bounds concurrent PM-review-gate LLM calls.
	PMReviewConcurrency int `yaml:"pm_review_concurrency"`

	// StoryConcurrency bounds concurrent story-description LLM calls.
	StoryConcurrency int `yaml:"story_concurrency"`

	// PMReviewTimeout bounds a single PM-review-gate call before the
	// fail-safe path (keep the original partition) takes over.
	PMReviewTimeout time.Duration `yaml:"pm_review_timeout"`
}

// DefaultRunnerConfig returns the built-in runner defaults.
func DefaultRunnerConfig() *RunnerConfig {
	return &RunnerConfig{
		WorkerCount:             3,
		MaxConcurrentRuns:       3,
		PollInterval:            2 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		RunTimeout:              2 * time.Hour,
		GracefulShutdownTimeout: 5 * time.Minute,
		OrphanDetectionInterval: 5 * time.Minute,
		OrphanThreshold:         10 * time.Minute,
		ClassifierConcurrency:  20,
		EmbeddingConcurrency:   10,
		PMReviewConcurrency:    5,
		StoryConcurrency:       5,
		PMReviewTimeout:        30 * time.Second,
	}
}
