package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Facet holds the schema definition for the small enumerated attributes
// extracted per conversation, used to sub-cluster semantically similar
// conversations into actionable groups. Only extracted for conversations
// classified into an actionable stage-2 type.
type Facet struct {
	ent.Schema
}

// Fields of the Facet.
func (Facet) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("conversation_id").
			Immutable(),
		field.String("run_id").
			Immutable(),
		field.String("model_version").
			Immutable(),
		field.Enum("action_type").
			Values("inquiry", "complaint", "bug_report", "how_to", "feature_request", "other"),
		field.Enum("direction").
			Values("excess", "deficit", "creation", "deletion", "modification", "performance", "neutral"),
		field.String("symptom").
			Optional(),
		field.String("user_goal").
			Optional(),
		field.String("product_area_raw").
			Optional(),
		field.String("component_raw").
			Optional(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Facet.
func (Facet) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("run", PipelineRun.Type).
			Ref("facets").
			Field("run_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Facet.
func (Facet) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("run_id"),
		index.Fields("conversation_id", "run_id", "model_version").
			Unique(),
	}
}
