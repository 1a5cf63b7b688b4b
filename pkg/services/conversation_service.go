package services

import (
	"context"
	"fmt"
	"time"

	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/ent/conversation"
	"github.com/feedforward/feedforward/ent/schema"
)

// ConversationService persists fetched conversations.
type ConversationService struct {
	client *ent.Client
}

// NewConversationService creates a new ConversationService.
func NewConversationService(client *ent.Client) *ConversationService {
	return &ConversationService{client: client}
}

// UpsertConversationRequest is one conversation fetched from the ticketing
// source, keyed by its external identity.
type UpsertConversationRequest struct {
	ID               string
	RunID            string
	SourceCreatedAt  time.Time
	CustomerMessages []schema.Message
	SupportMessages  []schema.Message
	SourceURL        string
	RawMetadata      map[string]any
}

// Upsert creates the conversation if it has never been seen, or
// re-associates it with the current run if it has — there is no cross-run
// dedup; a conversation fetched again is simply reattached.
func (s *ConversationService) Upsert(ctx context.Context, req UpsertConversationRequest) (*ent.Conversation, error) {
	if req.ID == "" {
		return nil, NewValidationError("id", "required")
	}
	if req.RunID == "" {
		return nil, NewValidationError("run_id", "required")
	}

	existing, err := s.client.Conversation.Get(ctx, req.ID)
	switch {
	case err == nil:
		update := existing.Update().
			SetRunID(req.RunID).
			SetCustomerMessages(req.CustomerMessages)
		if req.SupportMessages != nil {
			update = update.SetSupportMessages(req.SupportMessages)
		}
		if req.RawMetadata != nil {
			update = update.SetRawMetadata(req.RawMetadata)
		}
		conv, err := update.Save(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to re-associate conversation: %w", err)
		}
		return conv, nil
	case ent.IsNotFound(err):
		builder := s.client.Conversation.Create().
			SetID(req.ID).
			SetRunID(req.RunID).
			SetSourceCreatedAt(req.SourceCreatedAt).
			SetCustomerMessages(req.CustomerMessages)
		if req.SupportMessages != nil {
			builder = builder.SetSupportMessages(req.SupportMessages)
		}
		if req.SourceURL != "" {
			builder = builder.SetSourceURL(req.SourceURL)
		}
		if req.RawMetadata != nil {
			builder = builder.SetRawMetadata(req.RawMetadata)
		}
		conv, err := builder.Save(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
		return conv, nil
	default:
		return nil, fmt.Errorf("failed to look up conversation: %w", err)
	}
}

// ListForRun returns every conversation currently attached to a run.
func (s *ConversationService) ListForRun(ctx context.Context, runID string) ([]*ent.Conversation, error) {
	convs, err := s.client.Conversation.Query().
		Where(
			conversation.RunIDEQ(runID),
			conversation.DeletedAtIsNil(),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations for run: %w", err)
	}
	return convs, nil
}

// Get retrieves a single conversation by ID.
func (s *ConversationService) Get(ctx context.Context, conversationID string) (*ent.Conversation, error) {
	conv, err := s.client.Conversation.Get(ctx, conversationID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}
