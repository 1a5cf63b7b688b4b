package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// StoryEvidence holds the schema definition for one conversation's
// contribution to a Story's evidence bundle: an excerpt plus a reference
// back to the conversation and the run that supplied it, so evidence
// accumulated across multiple runs (orphan promotion) stays auditable.
type StoryEvidence struct {
	ent.Schema
}

// Fields of the StoryEvidence.
func (StoryEvidence) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("story_id").
			Immutable(),
		field.String("conversation_id").
			Immutable(),
		field.String("run_id").
			Immutable().
			Comment("Run that supplied this evidence, for cross-run audit"),
		field.Text("excerpt"),
		field.String("source_url").
			Optional(),
		field.Time("added_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the StoryEvidence.
func (StoryEvidence) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("story", Story.Type).
			Ref("evidence").
			Field("story_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the StoryEvidence.
func (StoryEvidence) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("story_id"),
		index.Fields("story_id", "conversation_id").
			Unique(),
	}
}
