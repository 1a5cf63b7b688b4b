// Package embedding implements the embedding + facet extractor (C3): a
// dense vector per conversation for clustering, plus a single combined LLM
// call that extracts both the facet attributes and the resolution theme
// (no separate regex-based resolution detector; see DESIGN.md).
package embedding

import "github.com/feedforward/feedforward/pkg/models"

// Result wraps one conversation's extraction outcome so a single failure
// never cancels the rest of the batch.
type Result[T any] struct {
	Value T
	Err   error
}

// ExtractionResult is one conversation's embedding vector, facets, and
// resolution-theme insights, ready for persistence.
type ExtractionResult struct {
	ConversationID  string
	Embedding       models.Embedding
	Facets          models.Facets
	SupportInsights models.SupportInsights
}
