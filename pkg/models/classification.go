package models

import "time"

// Classification result types (Stage 1 and Stage 2 share a vocabulary).
const (
	TypeBilling        = "billing"
	TypeAccountIssue   = "account_issue"
	TypeFeatureRequest = "feature_request"
	TypeProductIssue   = "product_issue"
	TypeHowToQuestion  = "how_to_question"
	TypeChurnRisk      = "churn_risk"
	TypeFeedback       = "feedback"
	TypeOther          = "other"
)

// Confidence levels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// ActionableTypes are the stage-2 classifications eligible for facet
// extraction, per the "Actionable classification" glossary entry.
var ActionableTypes = map[string]bool{
	TypeProductIssue:   true,
	TypeFeatureRequest: true,
	TypeHowToQuestion:  true,
}

// Stage1Result is the fast-routing classifier's output.
type Stage1Result struct {
	Type         string `json:"type"`
	Confidence   string `json:"confidence"`
	Urgency      string `json:"urgency,omitempty"`
	RoutingTeam  string `json:"routing_team,omitempty"`
}

// Stage2Result is the refined-analysis classifier's output, only produced
// when the conversation has a support response.
type Stage2Result struct {
	Type                string          `json:"type"`
	Confidence          string          `json:"confidence"`
	DisambiguationLevel string          `json:"disambiguation_level,omitempty"`
	Reasoning           string          `json:"reasoning,omitempty"`
	SupportInsights     SupportInsights `json:"support_insights"`
}

// SupportInsights carries the single LLM-extracted resolution path (the
// theme-extraction call), replacing the redundant regex-based detector.
type SupportInsights struct {
	ResolutionAction   string `json:"resolution_action,omitempty"`
	RootCause          string `json:"root_cause,omitempty"`
	SolutionProvided   string `json:"solution_provided,omitempty"`
	ResolutionCategory string `json:"resolution_category,omitempty"`
}

// Classification is the persisted, merged view of Stage 1 + Stage 2 for one
// conversation within one run.
type Classification struct {
	ID                     string
	ConversationID         string
	RunID                  string
	Stage1                 Stage1Result
	HasSupportResponse     bool
	Stage2                 *Stage2Result
	ClassificationChanged  bool
	Unclassified           bool
	ClassifiedAt           time.Time
}

// EffectiveType returns the Stage 2 type when present, else Stage 1's.
func (c Classification) EffectiveType() string {
	if c.Stage2 != nil {
		return c.Stage2.Type
	}
	return c.Stage1.Type
}

// IsActionable reports whether this classification is eligible for facet
// extraction and clustering.
func (c Classification) IsActionable() bool {
	if c.Unclassified {
		return false
	}
	return ActionableTypes[c.EffectiveType()]
}
