package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Classification holds the schema definition for the two-stage classifier's
// output: one row per (conversation_id, run_id).
type Classification struct {
	ent.Schema
}

// Fields of the Classification.
func (Classification) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("conversation_id").
			Immutable(),
		field.String("run_id").
			Immutable(),
		field.Enum("stage1_type").
			Values("billing", "account_issue", "feature_request", "product_issue",
				"how_to_question", "churn_risk", "feedback", "other"),
		field.Enum("stage1_confidence").
			Values("high", "medium", "low"),
		field.String("urgency").
			Optional().
			Nillable(),
		field.String("routing_team").
			Optional().
			Nillable(),
		field.Bool("has_support_response").
			Default(false),
		field.Enum("stage2_type").
			Values("billing", "account_issue", "feature_request", "product_issue",
				"how_to_question", "churn_risk", "feedback", "other").
			Optional().
			Nillable(),
		field.Enum("stage2_confidence").
			Values("high", "medium", "low").
			Optional().
			Nillable(),
		field.String("disambiguation_level").
			Optional().
			Nillable(),
		field.Text("reasoning").
			Optional().
			Nillable(),
		field.Bool("classification_changed").
			Default(false),
		field.JSON("support_insights", SupportInsights{}).
			Optional(),
		field.Bool("unclassified").
			Default(false).
			Comment("Set when stage 1 failed after retry; conversation is excluded downstream"),
		field.Time("classified_at").
			Default(time.Now),
	}
}

// SupportInsights carries the single LLM-extracted resolution path per the
// redesign flag that removes the separate regex-based resolution detector.
type SupportInsights struct {
	ResolutionAction   string `json:"resolution_action,omitempty"`
	RootCause          string `json:"root_cause,omitempty"`
	SolutionProvided   string `json:"solution_provided,omitempty"`
	ResolutionCategory string `json:"resolution_category,omitempty"`
}

// ActionableStage2Types lists the stage-2 classifications eligible for facet
// extraction and, eventually, story creation.
var ActionableStage2Types = []string{"product_issue", "feature_request", "how_to_question"}

// Edges of the Classification.
func (Classification) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("run", PipelineRun.Type).
			Ref("classifications").
			Field("run_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Classification.
func (Classification) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("run_id"),
		index.Fields("conversation_id", "run_id").
			Unique(),
	}
}
