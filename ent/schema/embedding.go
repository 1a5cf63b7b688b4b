package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Embedding holds the schema definition for a dense vector representation of
// a conversation, scoped to (conversation_id, run_id, model_version).
type Embedding struct {
	ent.Schema
}

// Fields of the Embedding.
func (Embedding) Fields() []ent.Field {
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
		field.JSON("vector", []float32{}).
			Comment("Dense embedding, dimensionality fixed per model_version"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Embedding.
func (Embedding) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("run", PipelineRun.Type).
			Ref("embeddings").
			Field("run_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Embedding.
func (Embedding) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("run_id"),
		index.Fields("conversation_id", "run_id", "model_version").
			Unique(),
	}
}
