package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// RunPhaseEvent records a structured start/end/error event for one phase of
// one run. This is the observability contract from the persisted-state
// layout: a durable, queryable trail independent of in-process logging.
type RunPhaseEvent struct {
	ent.Schema
}

// Fields of the RunPhaseEvent.
func (RunPhaseEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("run_id").
			Immutable(),
		field.Enum("phase").
			Values("fetching", "classifying", "embedding", "faceting", "clustering",
				"pm_review", "quality_gate", "story_creation"),
		field.Enum("event_type").
			Values("started", "completed", "failed", "cancelled"),
		field.Time("occurred_at").
			Default(time.Now).
			Immutable(),
		field.Int("processed_count").
			Optional().
			Nillable(),
		field.Int("failed_count").
			Optional().
			Nillable(),
		field.String("message").
			Optional().
			Nillable(),
	}
}

// Edges of the RunPhaseEvent.
func (RunPhaseEvent) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("run", PipelineRun.Type).
			Ref("phase_events").
			Field("run_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the RunPhaseEvent.
func (RunPhaseEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("run_id"),
		index.Fields("run_id", "phase"),
	}
}
