package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Conversation holds the schema definition for a single customer-support
// conversation fetched from the external ticketing system. A conversation
// is re-associated with the current run on every re-classification: there is
// exactly one owning run_id at a time for pipeline-scoped work, per the
// "no cross-run dedup" non-goal.
type Conversation struct {
	ent.Schema
}

// Fields of the Conversation.
func (Conversation) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("conversation_id").
			Unique().
			Immutable().
			Comment("Identity from the external ticketing system"),
		field.String("run_id").
			Comment("Owning run for pipeline-scoped work; updated on re-classification"),
		field.Time("source_created_at").
			Comment("created_at as reported by the ticketing source"),
		field.JSON("customer_messages", []Message{}).
			Comment("Ordered customer-facing messages"),
		field.JSON("support_messages", []Message{}).
			Optional().
			Comment("Ordered support-agent messages"),
		field.String("source_url").
			Optional().
			Nillable(),
		field.JSON("raw_metadata", map[string]any{}).
			Optional(),
		field.Time("fetched_at").
			Default(time.Now),
		field.Time("deleted_at").
			Optional().
			Nillable(),
	}
}

// Message is one customer or support message within a conversation.
type Message struct {
	SentAt  time.Time `json:"sent_at"`
	Author  string    `json:"author,omitempty"`
	Content string    `json:"content"`
}

// Edges of the Conversation.
func (Conversation) Edges() []ent.Edge { return nil }

// Indexes of the Conversation.
func (Conversation) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("run_id"),
		index.Fields("deleted_at").
			Annotations(entsql.IndexWhere("deleted_at IS NOT NULL")),
	}
}
