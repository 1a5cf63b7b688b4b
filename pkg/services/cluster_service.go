package services

import (
	"context"
	"fmt"

	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/ent/cluster"
	"github.com/google/uuid"
)

// ClusterService persists cluster candidates emitted by the clusterer.
type ClusterService struct {
	client *ent.Client
}

// NewClusterService creates a new ClusterService.
func NewClusterService(client *ent.Client) *ClusterService {
	return &ClusterService{client: client}
}

// RecordClusterRequest is one ClusterCandidate assigned a deterministic
// cluster_index for the run.
type RecordClusterRequest struct {
	RunID           string
	ClusterIndex    int
	ConversationIDs []string
	ActionType      cluster.ActionType
	Direction       cluster.Direction
	ProductAreaRaw  string
	ComponentRaw    string
	FallbackPath    bool
}

// Record stores a cluster, failing on a duplicate (run_id, cluster_index)
// pair since cluster_index must be a dense, deterministic intra-run ordinal.
func (s *ClusterService) Record(ctx context.Context, req RecordClusterRequest) (*ent.Cluster, error) {
	builder := s.client.Cluster.Create().
		SetID(uuid.New().String()).
		SetRunID(req.RunID).
		SetClusterIndex(req.ClusterIndex).
		SetConversationIds(req.ConversationIDs).
		SetActionType(req.ActionType).
		SetDirection(req.Direction).
		SetFallbackPath(req.FallbackPath)

	if req.ProductAreaRaw != "" {
		builder = builder.SetProductAreaRaw(req.ProductAreaRaw)
	}
	if req.ComponentRaw != "" {
		builder = builder.SetComponentRaw(req.ComponentRaw)
	}

	rec, err := builder.Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to record cluster: %w", err)
	}
	return rec, nil
}

// ListForRun returns every cluster candidate for a run, ordered by
// cluster_index, the input to the PM review gate.
func (s *ClusterService) ListForRun(ctx context.Context, runID string) ([]*ent.Cluster, error) {
	recs, err := s.client.Cluster.Query().
		Where(cluster.RunIDEQ(runID)).
		Order(ent.Asc(cluster.FieldClusterIndex)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clusters for run: %w", err)
	}
	return recs, nil
}

// Get retrieves a single cluster by ID.
func (s *ClusterService) Get(ctx context.Context, clusterID string) (*ent.Cluster, error) {
	rec, err := s.client.Cluster.Get(ctx, clusterID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cluster: %w", err)
	}
	return rec, nil
}
