package orchestrator

import (
	"strings"

	"github.com/feedforward/feedforward/ent/schema"
	"github.com/feedforward/feedforward/pkg/classifier"
	"github.com/feedforward/feedforward/pkg/models"
	"github.com/feedforward/feedforward/pkg/qualitygate"
)

const excerptMaxLen = 240

// excerpt truncates text to a prompt- and evidence-sized sample.
func excerpt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= excerptMaxLen {
		return text
	}
	return strings.TrimRight(text[:excerptMaxLen], " \t\n") + "…"
}

// effectiveConfidence returns a classification's stage-2 confidence when
// present, else stage-1's — the same precedence as EffectiveType.
func effectiveConfidence(cr *classifier.ClassificationResult) string {
	if cr.Stage2 != nil {
		return cr.Stage2.Confidence
	}
	return cr.Stage1.Confidence
}

// meanConfidence averages qualitygate.ConfidenceValue over a group's member
// conversations, the MeanConfidence signal the composite score is built
// from.
func meanConfidence(conversationIDs []string, byID map[string]*classifier.ClassificationResult) float64 {
	if len(conversationIDs) == 0 {
		return 0
	}
	var sum float64
	n := 0
	for _, id := range conversationIDs {
		cr, ok := byID[id]
		if !ok {
			continue
		}
		sum += qualitygate.ConfidenceValue(effectiveConfidence(cr))
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// isActionable mirrors models.Classification.IsActionable for the in-memory
// classifier.ClassificationResult held during a run, before it has been
// persisted as an ent.Classification.
func isActionable(cr *classifier.ClassificationResult) bool {
	if cr.Unclassified {
		return false
	}
	return models.ActionableTypes[cr.EffectiveType()]
}

// toMessages converts the fetcher's wire-independent message shape into the
// persisted schema.Message shape; both share the same fields so this is a
// plain element-wise copy.
func toMessages(msgs []models.ConversationMsg) []schema.Message {
	if msgs == nil {
		return nil
	}
	out := make([]schema.Message, len(msgs))
	for i, m := range msgs {
		out[i] = schema.Message{SentAt: m.SentAt, Author: m.Author, Content: m.Content}
	}
	return out
}

// titleFor derives a human-readable story title from a group's dominant
// symptom, falling back to its action type and component when no symptom
// text is available.
func titleFor(symptom, actionType, componentRaw string) string {
	if symptom != "" {
		return symptom
	}
	if componentRaw != "" {
		return actionType + ": " + componentRaw
	}
	return actionType
}

// errorTally accumulates category-keyed error_summary entries across every
// phase of a run, written once at the end via RunService.UpdateErrorSummary.
type errorTally struct {
	counts  map[string]int
	samples map[string]string
}

func newErrorTally() *errorTally {
	return &errorTally{counts: map[string]int{}, samples: map[string]string{}}
}

func (t *errorTally) add(category, sampleMessage string) {
	t.counts[category]++
	if _, ok := t.samples[category]; !ok && sampleMessage != "" {
		t.samples[category] = sampleMessage
	}
}

func (t *errorTally) entries() []schema.ErrorSummaryEntry {
	if len(t.counts) == 0 {
		return nil
	}
	entries := make([]schema.ErrorSummaryEntry, 0, len(t.counts))
	for category, count := range t.counts {
		entries = append(entries, schema.ErrorSummaryEntry{
			Category:      category,
			Count:         count,
			SampleMessage: t.samples[category],
		})
	}
	return entries
}
