package services

import (
	"context"
	"fmt"

	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/ent/facet"
	"github.com/google/uuid"
)

// FacetService persists per-conversation facet extraction output.
type FacetService struct {
	client *ent.Client
}

// NewFacetService creates a new FacetService.
func NewFacetService(client *ent.Client) *FacetService {
	return &FacetService{client: client}
}

// RecordFacetRequest is one facet extraction result, already coerced into
// the closed vocabularies via models.CoerceActionType/CoerceDirection by
// the caller.
type RecordFacetRequest struct {
	ConversationID string
	RunID          string
	ModelVersion   string
	ActionType     facet.ActionType
	Direction      facet.Direction
	Symptom        string
	UserGoal       string
	ProductAreaRaw string
	ComponentRaw   string
}

// Record stores a facet row, failing on a duplicate
// (conversation_id, run_id, model_version) triple.
func (s *FacetService) Record(ctx context.Context, req RecordFacetRequest) (*ent.Facet, error) {
	builder := s.client.Facet.Create().
		SetID(uuid.New().String()).
		SetConversationID(req.ConversationID).
		SetRunID(req.RunID).
		SetModelVersion(req.ModelVersion).
		SetActionType(req.ActionType).
		SetDirection(req.Direction)

	if req.Symptom != "" {
		builder = builder.SetSymptom(req.Symptom)
	}
	if req.UserGoal != "" {
		builder = builder.SetUserGoal(req.UserGoal)
	}
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
		return nil, fmt.Errorf("failed to record facet: %w", err)
	}
	return rec, nil
}

// ListForRun returns every facet extracted for a run, the input to
// sub-clustering.
func (s *FacetService) ListForRun(ctx context.Context, runID string) ([]*ent.Facet, error) {
	recs, err := s.client.Facet.Query().
		Where(facet.RunIDEQ(runID)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list facets for run: %w", err)
	}
	return recs, nil
}
