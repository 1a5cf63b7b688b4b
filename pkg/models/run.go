// Package models contains request/response DTOs shared between the
// pipeline's internal components and the thin API surface, mirroring how
// the underlying entities are wrapped for external consumption.
package models

import "time"

// StartRunRequest contains fields for starting a new pipeline run.
type StartRunRequest struct {
	WindowStart       time.Time `json:"window_start"`
	WindowEnd         time.Time `json:"window_end"`
	MaxConversations  *int      `json:"max_conversations,omitempty"`
	DryRun            bool      `json:"dry_run,omitempty"`
	Concurrency       int       `json:"concurrency,omitempty"`
	AutoCreateStories bool      `json:"auto_create_stories"`
}

// RunStatus is the response shape for get_run_status.
type RunStatus struct {
	RunID         string                   `json:"run_id"`
	Status        string                   `json:"status"`
	Phase         string                   `json:"phase,omitempty"`
	StoriesReady  bool                     `json:"stories_ready"`
	PhaseCounters map[string]PhaseCounters `json:"phase_counters,omitempty"`
	ErrorSummary  []ErrorSummaryEntry      `json:"error_summary,omitempty"`
	StartedAt     *time.Time               `json:"started_at,omitempty"`
	CompletedAt   *time.Time               `json:"completed_at,omitempty"`
}

// PhaseCounters tracks processed/failed counts for a single phase.
type PhaseCounters struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// ErrorSummaryEntry is one category-keyed rejection/error bucket, so a user
// never sees "0 stories created" without at least one explanation.
type ErrorSummaryEntry struct {
	Category      string `json:"category"`
	Count         int    `json:"count"`
	SampleMessage string `json:"sample_message,omitempty"`
}

// Error summary categories (§6 observability contract).
const (
	ErrorCategoryEvidenceInvalid    = "evidence_invalid"
	ErrorCategoryPMTimeout          = "pm_timeout"
	ErrorCategoryLLMError           = "llm_error"
	ErrorCategoryRateLimited        = "rate_limited"
	ErrorCategoryCancelled          = "cancelled"
	ErrorCategoryQualityGateReject  = "quality_gate_rejection"
	ErrorCategoryDescriptionFailure = "description_generation_failed"
	ErrorCategoryFetchFailure       = "fetch_failure"
)

// DryRunPreview is the response shape for get_dry_run_preview: an in-memory,
// bounded snapshot of what a run would produce, evicted on terminal
// completion.
type DryRunPreview struct {
	RunID                  string             `json:"run_id"`
	ClassificationBreakdown map[string]int    `json:"classification_breakdown"`
	Samples                []ConversationPeek `json:"samples"`
	TopThemes              []string           `json:"top_themes"`
}

// ConversationPeek is a minimal, sample-sized view of one conversation for
// the dry-run preview.
type ConversationPeek struct {
	ConversationID string `json:"conversation_id"`
	Stage1Type     string `json:"stage1_type"`
	Excerpt        string `json:"excerpt"`
}
