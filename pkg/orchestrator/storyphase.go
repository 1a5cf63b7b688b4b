package orchestrator

import (
	"context"
	"log/slog"

	entorphan "github.com/feedforward/feedforward/ent/orphan"
	entstory "github.com/feedforward/feedforward/ent/story"
	"github.com/feedforward/feedforward/pkg/canon"
	"github.com/feedforward/feedforward/pkg/classifier"
	"github.com/feedforward/feedforward/pkg/models"
	"github.com/feedforward/feedforward/pkg/qualitygate"
	"github.com/feedforward/feedforward/pkg/services"
	"github.com/feedforward/feedforward/pkg/story"
)

// runStoryPhase scores every reviewed group, routes it to story/orphan/
// reject via the quality gate, and persists the outcome. It covers both the
// quality_gate and story_creation phases reported in run status — one pass
// over the groups produces both sets of counters, mirroring the single
// extraction pass that reports embedding and faceting separately.
func (r *Run) runStoryPhase(ctx context.Context, log *slog.Logger, groups []reviewedGroup, classifications []*classifier.ClassificationResult) error {
	if err := r.deps.Canon.Load(ctx); err != nil {
		return err
	}

	if err := r.beginPhase(ctx, phaseQualityGate); err != nil {
		return err
	}

	byID := make(map[string]*classifier.ClassificationResult, len(classifications))
	for _, cr := range classifications {
		byID[cr.ConversationID] = cr
	}

	gateProcessed, gateFailed := 0, 0
	storyProcessed, storyFailed := 0, 0
	storiesCreated := false

	for _, g := range groups {
		if err := r.checkCancelled(ctx); err != nil {
			return err
		}

		samples := r.evidenceSamplesFor(g.ConversationIDs)
		score := r.deps.Scorer.Score(qualitygate.ScoreInput{
			ConversationCount: len(g.ConversationIDs),
			MeanConfidence:    meanConfidence(g.ConversationIDs, byID),
			PMDecision:        g.PMDecision,
			PMFailSafe:        g.PMFailSafe,
		})
		route := qualitygate.Route(r.deps.Config.QualityGate, samples, score, len(g.ConversationIDs), r.deps.Config.Cluster.MinClusterSize)
		gateProcessed++

		decision := route.Decision
		// auto_create_stories=false holds any would-be story in the orphan
		// pool instead of creating it outright, so a human stays in the
		// loop before work items are opened.
		if decision == qualitygate.RouteStory && !r.run.AutoCreateStories {
			decision = qualitygate.RouteOrphan
		}

		switch decision {
		case qualitygate.RouteReject:
			r.tally.add(route.Reason, "quality gate rejected group from cluster "+g.SourceClusterID)
			continue

		case qualitygate.RouteOrphan:
			if err := r.routeToOrphan(ctx, log, g, byID); err != nil {
				storyFailed++
				r.tally.add(errCategoryPersistence, err.Error())
			} else {
				storyProcessed++
			}

		case qualitygate.RouteStory:
			created, err := r.routeToStory(ctx, log, g, byID)
			if err != nil {
				storyFailed++
				r.tally.add(errCategoryPersistence, err.Error())
				continue
			}
			storyProcessed++
			if created {
				storiesCreated = true
			}
		}
	}

	if storiesCreated {
		if err := r.deps.Runs.MarkStoriesReady(ctx, r.run.ID); err != nil {
			log.Error("failed to mark stories ready", "error", err)
		}
	}

	if conflicts, err := r.deps.Canon.Commit(ctx); err != nil {
		log.Error("failed to commit canon registry", "error", err)
	} else {
		for _, c := range conflicts {
			log.Warn("canon alias conflict", "kind", c.Kind, "normalized_raw", c.NormalizedRaw, "resolved_to", c.ResolvedTo)
		}
	}

	if err := r.endPhase(ctx, phaseQualityGate, gateProcessed, gateFailed); err != nil {
		log.Error("failed to record quality_gate phase counters", "error", err)
	}
	if err := r.beginPhase(ctx, phaseStoryCreation); err != nil {
		return err
	}
	if err := r.endPhase(ctx, phaseStoryCreation, storyProcessed, storyFailed); err != nil {
		log.Error("failed to record story_creation phase counters", "error", err)
	}
	log.Info("quality gate / story creation phase complete", "groups", gateProcessed, "story_outcomes", storyProcessed, "failed", storyFailed)

	return nil
}

// evidenceSamplesFor builds the quality gate's evidence-coverage samples
// from the run's cached excerpts.
func (r *Run) evidenceSamplesFor(conversationIDs []string) []qualitygate.EvidenceSample {
	samples := make([]qualitygate.EvidenceSample, len(conversationIDs))
	for i, id := range conversationIDs {
		samples[i] = qualitygate.EvidenceSample{ConversationID: id, Excerpt: r.excerptCache[id]}
	}
	return samples
}

// routeToOrphan accumulates a group's evidence in the shared orphan pool and
// promotes it to a Story if the merge crosses MinClusterSize.
func (r *Run) routeToOrphan(ctx context.Context, log *slog.Logger, g reviewedGroup, byID map[string]*classifier.ClassificationResult) error {
	productCanonical, _ := r.deps.Canon.Canonicalize(canon.KindProductArea, g.ProductAreaRaw)
	componentCanonical, _ := r.deps.Canon.Canonicalize(canon.KindComponent, g.ComponentRaw)
	signature := r.signatureFor(g, productCanonical, componentCanonical)

	updated, err := r.deps.Orphans.CreateOrAppend(ctx, services.CreateOrAppendRequest{
		Signature:            signature,
		ActionType:           entorphan.ActionType(g.ActionType),
		Direction:            entorphan.Direction(g.Direction),
		ProductAreaCanonical: productCanonical,
		ComponentCanonical:   componentCanonical,
		ConversationIDs:      g.ConversationIDs,
		ContributingRunID:    r.run.ID,
	})
	if err != nil {
		return err
	}

	if !story.ShouldPromote(len(updated.ConversationIds), r.deps.Config.Cluster.MinClusterSize) {
		return nil
	}

	created, err := r.createStory(ctx, g, updated.ConversationIds, signature, productCanonical, componentCanonical, byID)
	if err != nil {
		return err
	}
	if created {
		if err := r.deps.Orphans.Delete(ctx, updated.ID); err != nil {
			log.Error("failed to delete promoted orphan", "orphan_id", updated.ID, "error", err)
		}
	}
	return nil
}

// routeToStory creates a new story for g's signature or appends to an
// existing one, reports whether a brand-new story row was created (the
// signal MarkStoriesReady keys on).
func (r *Run) routeToStory(ctx context.Context, log *slog.Logger, g reviewedGroup, byID map[string]*classifier.ClassificationResult) (bool, error) {
	productCanonical, _ := r.deps.Canon.Canonicalize(canon.KindProductArea, g.ProductAreaRaw)
	componentCanonical, _ := r.deps.Canon.Canonicalize(canon.KindComponent, g.ComponentRaw)
	signature := r.signatureFor(g, productCanonical, componentCanonical)

	return r.createStory(ctx, g, g.ConversationIDs, signature, productCanonical, componentCanonical, byID)
}

// createStory appends to an existing story at signature, or creates one,
// then (re)generates its description and canonical fields. conversationIDs
// is the full evidence set the story should reflect — for an orphan
// promotion this is the merged accumulator, not just g's own contribution.
func (r *Run) createStory(ctx context.Context, g reviewedGroup, conversationIDs []string, signature, productCanonical, componentCanonical string, byID map[string]*classifier.ClassificationResult) (bool, error) {
	evidence := make([]services.EvidenceItem, len(conversationIDs))
	excerpts := make([]string, len(conversationIDs))
	for i, id := range conversationIDs {
		evidence[i] = services.EvidenceItem{
			ConversationID: id,
			RunID:          r.run.ID,
			Excerpt:        r.excerptCache[id],
			SourceURL:      r.sourceURLCache[id],
		}
		excerpts[i] = r.excerptCache[id]
	}

	score := r.deps.Scorer.Score(qualitygate.ScoreInput{
		ConversationCount: len(conversationIDs),
		MeanConfidence:    meanConfidence(conversationIDs, byID),
		PMDecision:        g.PMDecision,
		PMFailSafe:        g.PMFailSafe,
	})

	title := titleFor("", g.ActionType, g.ComponentRaw)

	existing, err := r.deps.Stories.GetBySignature(ctx, signature)
	created := false
	var storyID string

	switch {
	case err == services.ErrNotFound:
		newStory, err := r.deps.Stories.CreateWithEvidence(ctx, services.CreateStoryRequest{
			RunID:                r.run.ID,
			Signature:            signature,
			Title:                title,
			ActionType:           entstory.ActionType(g.ActionType),
			Direction:            entstory.Direction(g.Direction),
			ComponentRaw:         g.ComponentRaw,
			ComponentRawInferred: g.ComponentRaw == "",
			ProductAreaRaw:       g.ProductAreaRaw,
			ConversationCount:    len(conversationIDs),
			ConfidenceScore:      score,
		}, evidence)
		if err != nil {
			return false, err
		}
		storyID = newStory.ID
		created = true
	case err != nil:
		return false, err
	default:
		if err := r.deps.Stories.AppendEvidence(ctx, existing.ID, r.run.ID, evidence); err != nil {
			return false, err
		}
		storyID = existing.ID
	}

	desc, descErr := r.deps.Assembler.Describe(ctx, story.DescribeInput{
		Title:          title,
		ActionType:     g.ActionType,
		Direction:      g.Direction,
		ProductAreaRaw: g.ProductAreaRaw,
		ComponentRaw:   g.ComponentRaw,
		Excerpts:       excerpts,
	})
	if descErr != nil {
		r.tally.add(models.ErrorCategoryDescriptionFailure, descErr.Error())
		if err := r.deps.Stories.UpdateDescription(ctx, storyID, story.Minimal(story.DescribeInput{Excerpts: excerpts}), true); err != nil {
			return created, err
		}
	} else if err := r.deps.Stories.UpdateDescription(ctx, storyID, desc.Render(), false); err != nil {
		return created, err
	}

	if err := r.deps.Stories.SetCanonical(ctx, storyID, componentCanonical, productCanonical); err != nil {
		return created, err
	}

	return created, nil
}

// signatureFor builds the cross-run-stable signature for g. The issue slug
// falls back to component/action type: facet symptoms are per-conversation
// and a group's members may disagree, so the signature keys on the
// attributes clustering already agreed on rather than picking one member's
// symptom arbitrarily.
func (r *Run) signatureFor(g reviewedGroup, productCanonical, componentCanonical string) string {
	slug := story.Slug(titleFor("", g.ActionType, g.ComponentRaw))
	return story.BuildSignature(g.ActionType, g.Direction, productCanonical, componentCanonical, slug)
}
