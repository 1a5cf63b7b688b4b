package orchestrator

import (
	"context"
	"log/slog"

	"github.com/feedforward/feedforward/ent/pmverdict"
	"github.com/feedforward/feedforward/pkg/models"
	"github.com/feedforward/feedforward/pkg/pmreview"
	"github.com/feedforward/feedforward/pkg/services"
)

// reviewedGroup is one group of conversations ready for quality-gate
// scoring: either a whole cluster (keep_together, or a singleton that
// bypassed the gate) or one PM-proposed subgroup (split). A rejected
// cluster never produces a group.
type reviewedGroup struct {
	SourceClusterID string
	ConversationIDs []string
	ActionType      string
	Direction       string
	ProductAreaRaw  string
	ComponentRaw    string
	PMDecision      string
	PMFailSafe      bool
}

// runReviewPhase sends every cluster with at least two conversations
// through the PM-review coherence gate, persists the verdict, and expands
// keep_together/split verdicts into reviewedGroups. Singleton clusters
// bypass the gate entirely — nothing to adjudicate for a single
// conversation — and default to keep_together, not fail-safe.
func (r *Run) runReviewPhase(ctx context.Context, log *slog.Logger, clusters []persistedCandidate) ([]reviewedGroup, error) {
	if err := r.beginPhase(ctx, phasePMReview); err != nil {
		return nil, err
	}

	var groups []reviewedGroup
	processed, failed := 0, 0

	for _, pc := range clusters {
		if err := r.checkCancelled(ctx); err != nil {
			return nil, err
		}

		c := pc.Candidate

		if len(c.ConversationIDs) < 2 {
			groups = append(groups, reviewedGroup{
				SourceClusterID: pc.ID,
				ConversationIDs: c.ConversationIDs,
				ActionType:      c.ActionType,
				Direction:       c.Direction,
				ProductAreaRaw:  c.ProductAreaRaw,
				ComponentRaw:    c.ComponentRaw,
				PMDecision:      pmreview.DecisionKeepTogether,
			})
			processed++
			continue
		}

		verdict := r.deps.PMGate.Review(ctx, pmreview.Candidate{
			ClusterID:       pc.ID,
			ConversationIDs: c.ConversationIDs,
			Excerpts:        r.excerptsFor(c.ConversationIDs),
		})
		if verdict.FailSafe {
			r.tally.add(models.ErrorCategoryPMTimeout, "pm review fell back to keep_together for cluster "+pc.ID)
		}

		if _, err := r.deps.PMVerdicts.Record(ctx, services.RecordVerdictRequest{
			RunID:                r.run.ID,
			ClusterID:            pc.ID,
			Decision:             pmverdict.Decision(verdict.Decision),
			Subgroups:            verdict.Subgroups,
			FailSafe:             verdict.FailSafe,
			DuplicateAssignments: verdict.DuplicateAssignments,
			Reasoning:            verdict.Reasoning,
		}); err != nil {
			failed++
			r.tally.add(errCategoryPersistence, err.Error())
			continue
		}

		switch verdict.Decision {
		case pmreview.DecisionReject:
			r.tally.add(models.ErrorCategoryQualityGateReject, "pm review rejected cluster "+pc.ID)
		case pmreview.DecisionSplit:
			// Sub-clustering already grouped strictly by (action_type,
			// direction) before linkage, so every PM-proposed subgroup can
			// safely reuse the parent cluster's attributes without
			// recomputing a per-subgroup mode.
			for _, sub := range verdict.Subgroups {
				groups = append(groups, reviewedGroup{
					SourceClusterID: pc.ID,
					ConversationIDs: sub,
					ActionType:      c.ActionType,
					Direction:       c.Direction,
					ProductAreaRaw:  c.ProductAreaRaw,
					ComponentRaw:    c.ComponentRaw,
					PMDecision:      verdict.Decision,
					PMFailSafe:      verdict.FailSafe,
				})
			}
		default: // keep_together
			groups = append(groups, reviewedGroup{
				SourceClusterID: pc.ID,
				ConversationIDs: c.ConversationIDs,
				ActionType:      c.ActionType,
				Direction:       c.Direction,
				ProductAreaRaw:  c.ProductAreaRaw,
				ComponentRaw:    c.ComponentRaw,
				PMDecision:      verdict.Decision,
				PMFailSafe:      verdict.FailSafe,
			})
		}
		processed++
	}

	if err := r.endPhase(ctx, phasePMReview, processed, failed); err != nil {
		log.Error("failed to record pm_review phase counters", "error", err)
	}
	log.Info("pm review phase complete", "clusters", processed, "failed", failed, "groups", len(groups))

	return groups, nil
}

// excerptsFor returns the cached excerpts (filled in by runClassifyPhase in
// r.excerptCache) for the given conversation IDs, skipping IDs with none.
func (r *Run) excerptsFor(conversationIDs []string) map[string]string {
	out := make(map[string]string, len(conversationIDs))
	for _, id := range conversationIDs {
		if text, ok := r.excerptCache[id]; ok {
			out[id] = text
		}
	}
	return out
}
