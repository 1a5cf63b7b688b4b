package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Orphan holds the schema definition for a signature-keyed accumulator of
// evidence that has not yet reached MIN_GROUP_SIZE. Orphans are shared
// across runs — unlike every other entity in this schema they are not
// owned by a single run_id, since their entire purpose is to persist
// sub-threshold evidence until a future run's contribution crosses the
// threshold (see Story Assembler, orphan promotion).
type Orphan struct {
	ent.Schema
}

// Fields of the Orphan.
func (Orphan) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("signature").
			Unique(),
		field.Enum("action_type").
			Values("inquiry", "complaint", "bug_report", "how_to", "feature_request", "other"),
		field.Enum("direction").
			Values("excess", "deficit", "creation", "deletion", "modification", "performance", "neutral"),
		field.String("product_area_canonical").
			Optional(),
		field.String("component_canonical").
			Optional(),
		field.Strings("conversation_ids").
			Comment("Accumulated across every run that has contributed to this signature"),
		field.Strings("contributing_run_ids").
			Comment("Every run_id that has appended evidence, for audit"),
		field.Time("first_seen_at").
			Default(time.Now).
			Immutable(),
		field.Time("last_updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the Orphan.
func (Orphan) Edges() []ent.Edge { return nil }

// Indexes of the Orphan.
func (Orphan) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("signature").Unique(),
	}
}
