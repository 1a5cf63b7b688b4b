package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Story holds the schema definition for an assembled story: a work item that
// maps to a single engineering fix, with a signature stable across runs.
type Story struct {
	ent.Schema
}

// Fields of the Story.
func (Story) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("run_id").
			Comment("Run that most recently touched (created or appended to) this story"),
		field.String("signature").
			Comment("Stable across runs; see pkg/canon for construction"),
		field.String("title"),
		field.Text("description").
			Optional().
			Comment("LLM-generated structured description; minimal when generation failed"),
		field.Bool("description_generation_failed").
			Default(false),
		field.String("component_raw").
			Optional(),
		field.Bool("component_raw_inferred").
			Default(false),
		field.String("component_canonical").
			Optional(),
		field.String("product_area_raw").
			Optional(),
		field.String("product_area_canonical").
			Optional(),
		field.Enum("action_type").
			Values("inquiry", "complaint", "bug_report", "how_to", "feature_request", "other"),
		field.Enum("direction").
			Values("excess", "deficit", "creation", "deletion", "modification", "performance", "neutral"),
		field.Int("conversation_count"),
		field.Float("confidence_score"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the Story.
func (Story) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("run", PipelineRun.Type).
			Ref("stories").
			Field("run_id").
			Unique().
			Required(),
		edge.To("evidence", StoryEvidence.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Story.
func (Story) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("run_id"),
		index.Fields("signature").
			Unique(),
	}
}
