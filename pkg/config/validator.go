package config

import "fmt"

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error).
func (v *Validator) ValidateAll() error {
	if err := v.validateRunner(); err != nil {
		return fmt.Errorf("runner validation failed: %w", err)
	}
	if err := v.validateLLMProviders(); err != nil {
		return fmt.Errorf("LLM provider validation failed: %w", err)
	}
	if err := v.validateEmbeddingProviders(); err != nil {
		return fmt.Errorf("embedding provider validation failed: %w", err)
	}
	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}
	if err := v.validateQualityGate(); err != nil {
		return fmt.Errorf("quality gate validation failed: %w", err)
	}
	if err := v.validateTicketing(); err != nil {
		return fmt.Errorf("ticketing validation failed: %w", err)
	}
	if err := v.validateCluster(); err != nil {
		return fmt.Errorf("cluster validation failed: %w", err)
	}

	return nil
}

func (v *Validator) validateRunner() error {
	r := v.cfg.Runner
	if r == nil {
		return fmt.Errorf("runner configuration is nil")
	}

	if r.WorkerCount < 1 || r.WorkerCount > 50 {
		return fmt.Errorf("worker_count must be between 1 and 50, got %d", r.WorkerCount)
	}
	if r.MaxConcurrentRuns < 1 {
		return fmt.Errorf("max_concurrent_runs must be at least 1, got %d", r.MaxConcurrentRuns)
	}
	if r.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", r.PollInterval)
	}
	if r.PollIntervalJitter < 0 {
		return fmt.Errorf("poll_interval_jitter must be non-negative, got %v", r.PollIntervalJitter)
	}
	if r.PollIntervalJitter >= r.PollInterval {
		return fmt.Errorf("poll_interval_jitter must be less than poll_interval, got jitter=%v interval=%v", r.PollIntervalJitter, r.PollInterval)
	}
	if r.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout must be positive, got %v", r.RunTimeout)
	}
	if r.GracefulShutdownTimeout <= 0 {
		return fmt.Errorf("graceful_shutdown_timeout must be positive, got %v", r.GracefulShutdownTimeout)
	}
	if r.OrphanDetectionInterval <= 0 {
		return fmt.Errorf("orphan_detection_interval must be positive, got %v", r.OrphanDetectionInterval)
	}
	if r.OrphanThreshold <= 0 {
		return fmt.Errorf("orphan_threshold must be positive, got %v", r.OrphanThreshold)
	}
	if r.ClassifierConcurrency < 1 {
		return fmt.Errorf("classifier_concurrency must be at least 1, got %d", r.ClassifierConcurrency)
	}
	if r.EmbeddingConcurrency < 1 {
		return fmt.Errorf("embedding_concurrency must be at least 1, got %d", r.EmbeddingConcurrency)
	}
	if r.PMReviewConcurrency < 1 {
		return fmt.Errorf("pm_review_concurrency must be at least 1, got %d", r.PMReviewConcurrency)
	}
	if r.StoryConcurrency < 1 {
		return fmt.Errorf("story_concurrency must be at least 1, got %d", r.StoryConcurrency)
	}
	if r.PMReviewTimeout <= 0 {
		return fmt.Errorf("pm_review_timeout must be positive, got %v", r.PMReviewTimeout)
	}

	return nil
}

func (v *Validator) validateLLMProviders() error {
	providers := v.cfg.LLMProviderRegistry.GetAll()
	if len(providers) == 0 {
		return fmt.Errorf("at least one LLM provider must be configured")
	}

	for name, p := range providers {
		if !p.Type.IsValid() {
			return NewValidationError("llm_provider", name, "type", fmt.Errorf("%w: %s", ErrInvalidValue, p.Type))
		}
		if p.Model == "" {
			return NewValidationError("llm_provider", name, "model", ErrMissingRequiredField)
		}
		if p.MaxOutputTokens < 256 {
			return NewValidationError("llm_provider", name, "max_output_tokens", fmt.Errorf("%w: must be at least 256", ErrInvalidValue))
		}
		if p.Type == LLMProviderTypeVertexAI && (p.ProjectEnv == "" || p.LocationEnv == "") {
			return NewValidationError("llm_provider", name, "project_env/location_env", fmt.Errorf("%w: required for vertexai", ErrMissingRequiredField))
		}
	}

	if _, ok := providers[v.cfg.Defaults.LLMProvider]; !ok {
		return fmt.Errorf("%w: defaults.llm_provider %q", ErrInvalidReference, v.cfg.Defaults.LLMProvider)
	}

	return nil
}

func (v *Validator) validateEmbeddingProviders() error {
	providers := v.cfg.EmbeddingProviderRegistry.GetAll()
	if len(providers) == 0 {
		return fmt.Errorf("at least one embedding provider must be configured")
	}

	for name, p := range providers {
		if !p.Type.IsValid() {
			return NewValidationError("embedding_provider", name, "type", fmt.Errorf("%w: %s", ErrInvalidValue, p.Type))
		}
		if p.Model == "" {
			return NewValidationError("embedding_provider", name, "model", ErrMissingRequiredField)
		}
		if p.Dimensions < 1 {
			return NewValidationError("embedding_provider", name, "dimensions", fmt.Errorf("%w: must be positive", ErrInvalidValue))
		}
	}

	if _, ok := providers[v.cfg.Defaults.EmbeddingProvider]; !ok {
		return fmt.Errorf("%w: defaults.embedding_provider %q", ErrInvalidReference, v.cfg.Defaults.EmbeddingProvider)
	}

	return nil
}

func (v *Validator) validateDefaults() error {
	d := v.cfg.Defaults
	switch d.Stage1ConfidenceFloor {
	case "high", "medium", "low":
	default:
		return NewValidationError("defaults", "", "stage1_confidence_floor", fmt.Errorf("%w: %s", ErrInvalidValue, d.Stage1ConfidenceFloor))
	}
	if d.MaxConversationsPerRun < 1 {
		return NewValidationError("defaults", "", "max_conversations_per_run", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateQualityGate() error {
	q := v.cfg.QualityGate
	if q.AutoCreateThreshold <= q.ManualReviewThreshold {
		return fmt.Errorf("quality_gate.auto_create_threshold must exceed manual_review_threshold, got auto=%.2f manual=%.2f", q.AutoCreateThreshold, q.ManualReviewThreshold)
	}
	if q.EvidenceSaturationCount < 1 {
		return fmt.Errorf("quality_gate.evidence_saturation_count must be positive, got %d", q.EvidenceSaturationCount)
	}
	return nil
}

func (v *Validator) validateCluster() error {
	c := v.cfg.Cluster
	if c == nil {
		return fmt.Errorf("cluster configuration is nil")
	}
	if c.MaxLinkageDistance <= 0 || c.MaxLinkageDistance > 2 {
		return fmt.Errorf("cluster.max_linkage_distance must be in (0, 2], got %.2f", c.MaxLinkageDistance)
	}
	if c.MinClusterSize < 1 {
		return fmt.Errorf("cluster.min_cluster_size must be at least 1, got %d", c.MinClusterSize)
	}
	return nil
}

func (v *Validator) validateTicketing() error {
	t := v.cfg.Ticketing
	if t == nil {
		return fmt.Errorf("ticketing configuration is required")
	}
	if !t.Source.IsValid() {
		return NewValidationError("ticketing", "", "source", fmt.Errorf("%w: %s", ErrInvalidValue, t.Source))
	}
	if t.BaseURL == "" {
		return NewValidationError("ticketing", "", "base_url", ErrMissingRequiredField)
	}
	return nil
}
