package models

import "time"

// Conversation is the normalized record returned by the Conversation Fetcher
// (C1), independent of the ticketing system's wire format.
type Conversation struct {
	ConversationID   string            `json:"conversation_id"`
	CreatedAt        time.Time         `json:"created_at"`
	CustomerMessages []ConversationMsg `json:"customer_messages"`
	SupportMessages  []ConversationMsg `json:"support_messages,omitempty"`
	SourceURL        string            `json:"source_url,omitempty"`
	RawMetadata      map[string]any    `json:"raw_metadata,omitempty"`
}

// ConversationMsg is a single message within a conversation.
type ConversationMsg struct {
	SentAt  time.Time `json:"sent_at"`
	Author  string    `json:"author,omitempty"`
	Content string    `json:"content"`
}

// HasSupportResponse reports whether the conversation has any support-side
// message, the trigger for Stage 2 classification.
func (c Conversation) HasSupportResponse() bool {
	return len(c.SupportMessages) > 0
}

// CustomerText concatenates customer-facing content only, the Stage 1 input.
func (c Conversation) CustomerText() string {
	return joinMessages(c.CustomerMessages)
}

// FullText concatenates customer and support content, the Stage 2 and
// embedding input.
func (c Conversation) FullText() string {
	return joinMessages(c.CustomerMessages) + "\n" + joinMessages(c.SupportMessages)
}

func joinMessages(msgs []ConversationMsg) string {
	out := ""
	for i, m := range msgs {
		if i > 0 {
			out += "\n"
		}
		out += m.Content
	}
	return out
}
