package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// SignatureAlias holds the schema definition for a PM-approved mapping from a
// raw, format-normalized value (component or product area) to its canonical
// form. Shared across runs; last-writer-wins on conflicting updates, with
// the conflicting write logged for human review (see pkg/canon).
type SignatureAlias struct {
	ent.Schema
}

// Fields of the SignatureAlias.
func (SignatureAlias) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.Enum("kind").
			Values("component", "product_area"),
		field.String("normalized_raw").
			Comment("Format-normalized form: lowercase, separators underscored, stripped of non-alphanumerics"),
		field.String("canonical"),
		field.Int("version").
			Default(1).
			Comment("Incremented on every update; used for optimistic concurrency"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the SignatureAlias.
func (SignatureAlias) Edges() []ent.Edge { return nil }

// Indexes of the SignatureAlias.
func (SignatureAlias) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("kind", "normalized_raw").Unique(),
	}
}
