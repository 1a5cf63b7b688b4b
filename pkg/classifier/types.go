// Package classifier implements the two-stage classifier (C2): a fast
// routing pass (Stage 1) over every conversation, followed by a refined
// analysis pass (Stage 2) for conversations with a support response.
package classifier

import "github.com/feedforward/feedforward/pkg/models"

// Result wraps one conversation's classification outcome so a single
// failure never cancels the rest of the batch — the caller tallies Ok/Err
// instead of the whole run aborting.
type Result[T any] struct {
	Value T
	Err   error
}

// ClassificationResult is one conversation's merged Stage 1 + Stage 2
// output, ready for persistence via services.ClassificationService.
type ClassificationResult struct {
	ConversationID     string
	Stage1             models.Stage1Result
	HasSupportResponse bool
	Stage2             *models.Stage2Result
	Unclassified       bool
}

// EffectiveType returns the Stage 2 type when present, else Stage 1's.
func (r ClassificationResult) EffectiveType() string {
	if r.Stage2 != nil {
		return r.Stage2.Type
	}
	return r.Stage1.Type
}
