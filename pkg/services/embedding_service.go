package services

import (
	"context"
	"fmt"

	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/ent/embedding"
	"github.com/google/uuid"
)

// EmbeddingService persists conversation embeddings.
type EmbeddingService struct {
	client *ent.Client
}

// NewEmbeddingService creates a new EmbeddingService.
func NewEmbeddingService(client *ent.Client) *EmbeddingService {
	return &EmbeddingService{client: client}
}

// RecordEmbeddingRequest is one embedding vector for one conversation within
// one run, scoped additionally by model_version so a provider migration
// never mixes incompatible vector spaces.
type RecordEmbeddingRequest struct {
	ConversationID string
	RunID          string
	ModelVersion   string
	Vector         []float32
}

// Record stores an embedding, failing on a duplicate
// (conversation_id, run_id, model_version) triple — this is the
// idempotency key the embedding stage enforces to avoid double-billing a
// retried batch.
func (s *EmbeddingService) Record(ctx context.Context, req RecordEmbeddingRequest) (*ent.Embedding, error) {
	rec, err := s.client.Embedding.Create().
		SetID(uuid.New().String()).
		SetConversationID(req.ConversationID).
		SetRunID(req.RunID).
		SetModelVersion(req.ModelVersion).
		SetVector(req.Vector).
		Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to record embedding: %w", err)
	}
	return rec, nil
}

// ListForRun returns every embedding for a run, the working set the
// clustering stage loads into memory.
func (s *EmbeddingService) ListForRun(ctx context.Context, runID string) ([]*ent.Embedding, error) {
	recs, err := s.client.Embedding.Query().
		Where(embedding.RunIDEQ(runID)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list embeddings for run: %w", err)
	}
	return recs, nil
}

// Exists reports whether an embedding already exists for the given
// idempotency key, so a resumed batch can skip conversations already done.
func (s *EmbeddingService) Exists(ctx context.Context, conversationID, runID, modelVersion string) (bool, error) {
	exists, err := s.client.Embedding.Query().
		Where(
			embedding.ConversationIDEQ(conversationID),
			embedding.RunIDEQ(runID),
			embedding.ModelVersionEQ(modelVersion),
		).
		Exist(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check embedding existence: %w", err)
	}
	return exists, nil
}
