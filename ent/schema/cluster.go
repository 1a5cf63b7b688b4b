package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Cluster holds the schema definition for one ClusterCandidate emitted by the
// hybrid clusterer for a run. cluster_id is stable within the run (sorted by
// size desc, then smallest conversation_id) but is not a cross-run identity.
type Cluster struct {
	ent.Schema
}

// Fields of the Cluster.
func (Cluster) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("run_id").
			Immutable(),
		field.Int("cluster_index").
			Comment("Deterministic intra-run ordinal, see Indexes"),
		field.Strings("conversation_ids").
			Comment("Disjoint over conversations within a run"),
		field.Enum("action_type").
			Values("inquiry", "complaint", "bug_report", "how_to", "feature_request", "other"),
		field.Enum("direction").
			Values("excess", "deficit", "creation", "deletion", "modification", "performance", "neutral"),
		field.String("product_area_raw").
			Optional(),
		field.String("component_raw").
			Optional(),
		field.Bool("fallback_path").
			Default(false).
			Comment("True when produced by legacy signature grouping due to missing embeddings/facets"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Cluster.
func (Cluster) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("run", PipelineRun.Type).
			Ref("clusters").
			Field("run_id").
			Unique().
			Required().
			Immutable(),
		edge.To("pm_verdict", PMVerdict.Type).
			Unique(),
	}
}

// Indexes of the Cluster.
func (Cluster) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("run_id"),
		index.Fields("run_id", "cluster_index").
			Unique(),
	}
}
