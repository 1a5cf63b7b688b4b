package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// PipelineRun holds the schema definition for a single orchestrated execution
// of the classification-to-story pipeline over a date window.
type PipelineRun struct {
	ent.Schema
}

// Fields of the PipelineRun.
func (PipelineRun) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("run_id").
			Unique().
			Immutable(),
		field.Enum("status").
			Values("pending", "running", "stopping", "completed", "failed", "stopped").
			Default("pending"),
		field.Enum("phase").
			Values("fetching", "classifying", "embedding", "faceting", "clustering",
				"pm_review", "quality_gate", "story_creation").
			Optional().
			Nillable(),
		field.Time("window_start").
			Comment("Start of the date window searched against the ticketing source"),
		field.Time("window_end").
			Comment("End of the date window searched against the ticketing source"),
		field.Int("max_conversations").
			Optional().
			Nillable(),
		field.Bool("dry_run").
			Default(false),
		field.Bool("auto_create_stories").
			Default(true),
		field.Int("concurrency").
			Default(20),
		field.Bool("stories_ready").
			Default(false).
			Comment("True only once at least one Story has been created in this run"),
		field.Bool("cancel_requested").
			Default(false).
			Comment("Persisted cancellation flag polled between phases and batches"),
		field.String("pod_id").
			Optional().
			Nillable().
			Comment("Pod currently driving this run, for orphan detection across restarts"),
		field.Time("last_heartbeat_at").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("started_at").
			Optional().
			Nillable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
		field.JSON("phase_counters", map[string]PhaseCounters{}).
			Optional().
			Comment("Processed/failed counts per phase"),
		field.JSON("error_summary", []ErrorSummaryEntry{}).
			Optional().
			Comment("Category-keyed rejection/error counts surfaced to users"),
		field.Time("deleted_at").
			Optional().
			Nillable().
			Comment("Soft delete for retention policy"),
	}
}

// PhaseCounters tracks processed/failed counts for a single phase.
type PhaseCounters struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// ErrorSummaryEntry is one category-keyed rejection/error bucket.
type ErrorSummaryEntry struct {
	Category      string `json:"category"`
	Count         int    `json:"count"`
	SampleMessage string `json:"sample_message,omitempty"`
}

// Edges of the PipelineRun.
func (PipelineRun) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("phase_events", RunPhaseEvent.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("classifications", Classification.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("embeddings", Embedding.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("facets", Facet.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("clusters", Cluster.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("pm_verdicts", PMVerdict.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("stories", Story.Type),
	}
}

// Indexes of the PipelineRun.
func (PipelineRun) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("status", "last_heartbeat_at"),
		index.Fields("deleted_at").
			Annotations(entsql.IndexWhere("deleted_at IS NOT NULL")),
	}
}
