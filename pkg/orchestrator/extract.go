package orchestrator

import (
	"context"
	"log/slog"

	"github.com/feedforward/feedforward/ent/classification"
	"github.com/feedforward/feedforward/ent/facet"
	"github.com/feedforward/feedforward/ent/schema"
	"github.com/feedforward/feedforward/pkg/classifier"
	"github.com/feedforward/feedforward/pkg/embedding"
	"github.com/feedforward/feedforward/pkg/models"
	"github.com/feedforward/feedforward/pkg/services"
)

// extracted pairs one conversation's embedding/facet output with the
// conversation itself, the unit clustering works over.
type extracted struct {
	Conversation models.Conversation
	Facets       models.Facets
	Embedding    models.Embedding
}

// runExtractPhase runs combined embedding + facet extraction over every
// actionable classification, persists embeddings and facets as they
// complete (skipped in dry_run), and returns both the extraction set
// clustering consumes and a conversation-ID-keyed map of support insights —
// kept separate from classifications because an actionable Stage 1-only
// result (no Stage 2 object) still needs its insights recorded.
func (r *Run) runExtractPhase(ctx context.Context, log *slog.Logger, conversations []models.Conversation, classifications []*classifier.ClassificationResult) ([]extracted, map[string]models.SupportInsights, error) {
	if err := r.beginPhase(ctx, phaseEmbedding); err != nil {
		return nil, nil, err
	}

	byID := make(map[string]models.Conversation, len(conversations))
	for _, c := range conversations {
		byID[c.ConversationID] = c
	}

	var actionable []models.Conversation
	for _, cr := range classifications {
		if !isActionable(cr) {
			continue
		}
		if conv, ok := byID[cr.ConversationID]; ok {
			actionable = append(actionable, conv)
		}
	}

	raw := r.deps.Extractor.ExtractAll(ctx, r.run.ID, actionable)

	var results []extracted
	insights := make(map[string]models.SupportInsights, len(raw))
	processed, failed := 0, 0

	for _, res := range raw {
		if err := r.checkCancelled(ctx); err != nil {
			return nil, nil, err
		}

		if res.Err != nil {
			failed++
			r.tally.add(models.ErrorCategoryLLMError, res.Err.Error())
			continue
		}

		ext := res.Value
		insights[ext.ConversationID] = ext.SupportInsights

		if r.run.DryRun && r.deps.Preview != nil && ext.SupportInsights.ResolutionCategory != "" {
			r.deps.Preview.RecordTheme(r.run.ID, ext.SupportInsights.ResolutionCategory)
		}

		if !r.run.DryRun {
			if _, err := r.deps.Embeddings.Record(ctx, services.RecordEmbeddingRequest{
				ConversationID: ext.ConversationID,
				RunID:          r.run.ID,
				ModelVersion:   r.deps.ModelVersion,
				Vector:         ext.Embedding.Vector,
			}); err != nil {
				failed++
				r.tally.add(errCategoryPersistence, err.Error())
				continue
			}

			if _, err := r.deps.Facets.Record(ctx, services.RecordFacetRequest{
				ConversationID: ext.ConversationID,
				RunID:          r.run.ID,
				ModelVersion:   r.deps.ModelVersion,
				ActionType:     facet.ActionType(ext.Facets.ActionType),
				Direction:      facet.Direction(ext.Facets.Direction),
				Symptom:        ext.Facets.Symptom,
				UserGoal:       ext.Facets.UserGoal,
				ProductAreaRaw: ext.Facets.ProductAreaRaw,
				ComponentRaw:   ext.Facets.ComponentRaw,
			}); err != nil {
				failed++
				r.tally.add(errCategoryPersistence, err.Error())
				continue
			}
		}

		if conv, ok := byID[ext.ConversationID]; ok {
			results = append(results, extracted{Conversation: conv, Facets: ext.Facets, Embedding: ext.Embedding})
		}
		processed++
	}

	if err := r.endPhase(ctx, phaseEmbedding, processed, failed); err != nil {
		log.Error("failed to record embedding phase counters", "error", err)
	}
	if err := r.beginPhase(ctx, phaseFaceting); err != nil {
		return nil, nil, err
	}
	if err := r.endPhase(ctx, phaseFaceting, processed, failed); err != nil {
		log.Error("failed to record faceting phase counters", "error", err)
	}
	log.Info("embedding/faceting phase complete", "processed", processed, "failed", failed)

	return results, insights, nil
}

// persistClassifications performs the deferred Classification.Record write
// for every conversation (not only actionable ones), merging in any support
// insights extracted for it. This single persistence pass exists because
// Classification is create-only and unique per (conversation_id, run_id),
// so it cannot be written twice across the classify and extract phases.
func (r *Run) persistClassifications(ctx context.Context, log *slog.Logger, classifications []*classifier.ClassificationResult, insights map[string]models.SupportInsights) error {
	for _, cr := range classifications {
		if err := r.checkCancelled(ctx); err != nil {
			return err
		}

		req := services.RecordClassificationRequest{
			ConversationID:     cr.ConversationID,
			RunID:              r.run.ID,
			Stage1Type:         classification.Stage1Type(cr.Stage1.Type),
			Stage1Confidence:   classification.Stage1Confidence(cr.Stage1.Confidence),
			Urgency:            cr.Stage1.Urgency,
			RoutingTeam:        cr.Stage1.RoutingTeam,
			HasSupportResponse: cr.HasSupportResponse,
			Unclassified:       cr.Unclassified,
		}

		if cr.Stage2 != nil {
			stage2Type := classification.Stage2Type(cr.Stage2.Type)
			stage2Confidence := classification.Stage2Confidence(cr.Stage2.Confidence)
			req.Stage2Type = &stage2Type
			req.Stage2Confidence = &stage2Confidence
			req.DisambiguationLevel = cr.Stage2.DisambiguationLevel
			req.Reasoning = cr.Stage2.Reasoning
		}

		if si, ok := insights[cr.ConversationID]; ok {
			req.SupportInsights = &schema.SupportInsights{
				ResolutionAction:   si.ResolutionAction,
				RootCause:          si.RootCause,
				SolutionProvided:   si.SolutionProvided,
				ResolutionCategory: si.ResolutionCategory,
			}
		}

		if _, err := r.deps.Classifications.Record(ctx, req); err != nil {
			r.tally.add(errCategoryPersistence, err.Error())
			log.Error("failed to persist classification", "conversation_id", cr.ConversationID, "error", err)
		}
	}
	return nil
}
