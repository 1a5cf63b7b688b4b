package services

import (
	"context"
	"fmt"
	"time"

	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/ent/orphan"
	"github.com/google/uuid"
)

// OrphanService manages signature-keyed sub-threshold evidence
// accumulators, shared across runs (see ent/schema/orphan.go).
type OrphanService struct {
	client *ent.Client
}

// NewOrphanService creates a new OrphanService.
func NewOrphanService(client *ent.Client) *OrphanService {
	return &OrphanService{client: client}
}

// GetBySignature looks up an orphan accumulator by its signature.
func (s *OrphanService) GetBySignature(ctx context.Context, signature string) (*ent.Orphan, error) {
	o, err := s.client.Orphan.Query().
		Where(orphan.SignatureEQ(signature)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get orphan by signature: %w", err)
	}
	return o, nil
}

// CreateOrAppendRequest is one run's contribution of sub-threshold evidence
// to a signature.
type CreateOrAppendRequest struct {
	Signature            string
	ActionType           orphan.ActionType
	Direction            orphan.Direction
	ProductAreaCanonical string
	ComponentCanonical   string
	ConversationIDs      []string
	ContributingRunID    string
}

// CreateOrAppend creates a new orphan accumulator, or merges new
// conversation IDs and the contributing run ID into an existing one.
// Conversation IDs already present are not duplicated.
func (s *OrphanService) CreateOrAppend(ctx context.Context, req CreateOrAppendRequest) (*ent.Orphan, error) {
	existing, err := s.GetBySignature(ctx, req.Signature)
	if err != nil && err != ErrNotFound {
		return nil, err
	}

	if err == ErrNotFound {
		builder := s.client.Orphan.Create().
			SetID(uuid.New().String()).
			SetSignature(req.Signature).
			SetActionType(req.ActionType).
			SetDirection(req.Direction).
			SetConversationIds(req.ConversationIDs).
			SetContributingRunIds([]string{req.ContributingRunID})
		if req.ProductAreaCanonical != "" {
			builder = builder.SetProductAreaCanonical(req.ProductAreaCanonical)
		}
		if req.ComponentCanonical != "" {
			builder = builder.SetComponentCanonical(req.ComponentCanonical)
		}
		created, err := builder.Save(ctx)
		if err != nil {
			if ent.IsConstraintError(err) {
				// Lost a create race; fall through to append against the winner.
				existing, err = s.GetBySignature(ctx, req.Signature)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, fmt.Errorf("failed to create orphan: %w", err)
			}
		} else {
			return created, nil
		}
	}

	mergedConvs := mergeUnique(existing.ConversationIds, req.ConversationIDs)
	mergedRuns := mergeUnique(existing.ContributingRunIds, []string{req.ContributingRunID})

	updated, err := s.client.Orphan.UpdateOneID(existing.ID).
		SetConversationIds(mergedConvs).
		SetContributingRunIds(mergedRuns).
		SetLastUpdatedAt(time.Now()).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to append to orphan: %w", err)
	}
	return updated, nil
}

// Delete removes an orphan accumulator, called once its evidence has been
// promoted into a Story.
func (s *OrphanService) Delete(ctx context.Context, orphanID string) error {
	if err := s.client.Orphan.DeleteOneID(orphanID).Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete orphan: %w", err)
	}
	return nil
}

func mergeUnique(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	merged := make([]string, 0, len(base)+len(extra))
	for _, v := range base {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			merged = append(merged, v)
		}
	}
	for _, v := range extra {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			merged = append(merged, v)
		}
	}
	return merged
}
