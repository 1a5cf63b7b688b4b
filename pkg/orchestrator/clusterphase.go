package orchestrator

import (
	"context"
	"log/slog"

	entcluster "github.com/feedforward/feedforward/ent/cluster"
	clusterer "github.com/feedforward/feedforward/pkg/cluster"
	"github.com/feedforward/feedforward/pkg/services"
)

// persistedCandidate pairs a cluster candidate with the row ID it was
// persisted under, the handle the PM-review phase uses to attach verdicts.
type persistedCandidate struct {
	ID        string
	Candidate clusterer.Candidate
}

// runClusterPhase builds clustering points from every extracted
// conversation and runs the hybrid clusterer over them, persisting each
// resulting candidate.
func (r *Run) runClusterPhase(ctx context.Context, log *slog.Logger, extractedConvs []extracted) ([]persistedCandidate, error) {
	if err := r.beginPhase(ctx, phaseClustering); err != nil {
		return nil, err
	}

	points := make([]clusterer.Point, len(extractedConvs))
	for i, e := range extractedConvs {
		points[i] = clusterer.Point{
			ConversationID: e.Conversation.ConversationID,
			Vector:         e.Embedding.Vector,
			ActionType:     e.Facets.ActionType,
			Direction:      e.Facets.Direction,
			ProductAreaRaw: e.Facets.ProductAreaRaw,
			ComponentRaw:   e.Facets.ComponentRaw,
		}
	}

	candidates := clusterer.Cluster(points, r.deps.Config.Cluster)

	persisted := make([]persistedCandidate, 0, len(candidates))
	processed, failed := 0, 0

	for _, c := range candidates {
		if err := r.checkCancelled(ctx); err != nil {
			return nil, err
		}

		rec, err := r.deps.Clusters.Record(ctx, services.RecordClusterRequest{
			RunID:           r.run.ID,
			ClusterIndex:    c.ClusterIndex,
			ConversationIDs: c.ConversationIDs,
			ActionType:      entcluster.ActionType(c.ActionType),
			Direction:       entcluster.Direction(c.Direction),
			ProductAreaRaw:  c.ProductAreaRaw,
			ComponentRaw:    c.ComponentRaw,
			FallbackPath:    c.FallbackPath,
		})
		if err != nil {
			failed++
			r.tally.add(errCategoryPersistence, err.Error())
			continue
		}

		persisted = append(persisted, persistedCandidate{ID: rec.ID, Candidate: c})
		processed++
	}

	if err := r.endPhase(ctx, phaseClustering, processed, failed); err != nil {
		log.Error("failed to record clustering phase counters", "error", err)
	}
	log.Info("clustering phase complete", "clusters", processed, "failed", failed)

	return persisted, nil
}
