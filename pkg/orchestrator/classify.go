package orchestrator

import (
	"context"
	"log/slog"

	"github.com/feedforward/feedforward/pkg/classifier"
	"github.com/feedforward/feedforward/pkg/models"
	"github.com/feedforward/feedforward/pkg/qualitygate"
)

// runClassifyPhase runs Stage 1 (and, where applicable, Stage 2)
// classification over every fetched conversation, enforcing the
// configured Stage 1 confidence floor and, in dry-run, feeding the preview
// store's classification breakdown and sample excerpts.
func (r *Run) runClassifyPhase(ctx context.Context, log *slog.Logger, conversations []models.Conversation) ([]*classifier.ClassificationResult, error) {
	if err := r.beginPhase(ctx, phaseClassifying); err != nil {
		return nil, err
	}

	raw := r.deps.Classifier.ClassifyAll(ctx, conversations)

	floor := 0.0
	if f := r.deps.Config.Defaults.Stage1ConfidenceFloor; f != "" {
		floor = qualitygate.ConfidenceValue(f)
	}

	results := make([]*classifier.ClassificationResult, 0, len(raw))
	processed, failed := 0, 0

	for i, res := range raw {
		if err := r.checkCancelled(ctx); err != nil {
			return nil, err
		}

		if res.Err != nil {
			failed++
			r.tally.add("classification_error", res.Err.Error())
			continue
		}

		cr := res.Value
		if !cr.Unclassified && floor > 0 && qualitygate.ConfidenceValue(cr.Stage1.Confidence) < floor {
			cr.Unclassified = true
			r.tally.add("below_confidence_floor", "stage1 confidence below configured floor")
		}

		r.excerptCache[cr.ConversationID] = excerpt(conversations[i].CustomerText())
		r.sourceURLCache[cr.ConversationID] = conversations[i].SourceURL

		if r.run.DryRun && r.deps.Preview != nil {
			r.deps.Preview.RecordClassification(r.run.ID, cr.EffectiveType())
			r.deps.Preview.AddSample(r.run.ID, models.ConversationPeek{
				ConversationID: cr.ConversationID,
				Stage1Type:     cr.Stage1.Type,
				Excerpt:        excerpt(conversations[i].CustomerText()),
			})
		}

		copyCR := cr
		results = append(results, &copyCR)
		processed++
	}

	if err := r.endPhase(ctx, phaseClassifying, processed, failed); err != nil {
		log.Error("failed to record classify phase counters", "error", err)
	}
	log.Info("classify phase complete", "processed", processed, "failed", failed)

	return results, nil
}
