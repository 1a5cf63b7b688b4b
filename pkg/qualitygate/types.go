// Package qualitygate implements the quality gate and orphan router (C6):
// scoring a PM-reviewed cluster candidate and deciding whether it becomes a
// Story, accumulates in the orphan pool, or is rejected outright.
package qualitygate

// RoutingDecision is the gate's terminal destination for one candidate.
type RoutingDecision string

const (
	RouteStory  RoutingDecision = "story"
	RouteOrphan RoutingDecision = "orphan"
	RouteReject RoutingDecision = "reject"
)

// EvidenceSample is one conversation's contribution to a candidate, the
// unit the evidence-validity check inspects.
type EvidenceSample struct {
	ConversationID string
	Excerpt        string
}

// ScoreInput carries the signals the composite confidence score is built
// from, computed by the caller (orchestrator) from the classification,
// embedding, and PM-review phases.
type ScoreInput struct {
	// ConversationCount is the candidate's size after PM review splits.
	ConversationCount int
	// MeanConfidence is the mean Stage1/Stage2 classification confidence
	// across the candidate's conversations, already mapped to [0,1].
	MeanConfidence float64
	// PMDecision is the gate's decision for this candidate
	// (pmreview.DecisionKeepTogether/Split/Reject).
	PMDecision string
	// PMFailSafe reports whether PMDecision was a fail-safe default rather
	// than an actual LLM verdict.
	PMFailSafe bool
}

// RouteResult is the router's terminal decision plus the reason code that
// feeds the run's error_summary.
type RouteResult struct {
	Decision RoutingDecision
	Reason   string
	Score    float64
}
