package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// PMVerdict holds the schema definition for the PM-review coherence gate's
// decision for one ClusterCandidate.
type PMVerdict struct {
	ent.Schema
}

// Fields of the PMVerdict.
func (PMVerdict) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("run_id").
			Immutable(),
		field.String("cluster_id").
			Immutable(),
		field.Enum("decision").
			Values("keep_together", "split", "reject"),
		field.JSON("subgroups", [][]string{}).
			Optional().
			Comment("Populated only when decision = split; partitions the input"),
		field.Bool("fail_safe").
			Default(false).
			Comment("True when the decision was coerced to keep_together after a timeout, LLM error, or validation failure"),
		field.Int("duplicate_assignments").
			Default(0).
			Comment("Count of conversation_ids the LLM placed in more than one subgroup; resolved first-wins"),
		field.Text("reasoning").
			Optional(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the PMVerdict.
func (PMVerdict) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("run", PipelineRun.Type).
			Ref("pm_verdicts").
			Field("run_id").
			Unique().
			Required().
			Immutable(),
		edge.From("cluster", Cluster.Type).
			Ref("pm_verdict").
			Field("cluster_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the PMVerdict.
func (PMVerdict) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("run_id"),
		index.Fields("cluster_id").Unique(),
	}
}
