package services

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/ent/story"
	"github.com/google/uuid"
)

// StoryService manages story assembly: creation, evidence accumulation, and
// description updates.
type StoryService struct {
	client *ent.Client
}

// NewStoryService creates a new StoryService.
func NewStoryService(client *ent.Client) *StoryService {
	return &StoryService{client: client}
}

// CreateStoryRequest is a brand-new story, keyed by a signature stable
// across runs (see pkg/canon).
type CreateStoryRequest struct {
	RunID                string
	Signature            string
	Title                string
	ActionType           story.ActionType
	Direction            story.Direction
	ComponentRaw         string
	ComponentRawInferred bool
	ProductAreaRaw       string
	ConversationCount    int
	ConfidenceScore      float64
}

// EvidenceItem is one conversation's contribution to a story's evidence
// bundle.
type EvidenceItem struct {
	ConversationID string
	RunID          string
	Excerpt        string
	SourceURL      string
}

// CreateWithEvidence creates a story and its initial evidence rows in a
// single transaction, failing on a duplicate signature (the caller should
// have already checked GetBySignature and gone down the append path
// instead).
func (s *StoryService) CreateWithEvidence(ctx context.Context, req CreateStoryRequest, evidence []EvidenceItem) (*ent.Story, error) {
	tx, err := s.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	builder := tx.Story.Create().
		SetID(uuid.New().String()).
		SetRunID(req.RunID).
		SetSignature(req.Signature).
		SetTitle(req.Title).
		SetActionType(req.ActionType).
		SetDirection(req.Direction).
		SetConversationCount(req.ConversationCount).
		SetConfidenceScore(req.ConfidenceScore).
		SetComponentRawInferred(req.ComponentRawInferred)

	if req.ComponentRaw != "" {
		builder = builder.SetComponentRaw(req.ComponentRaw)
	}
	if req.ProductAreaRaw != "" {
		builder = builder.SetProductAreaRaw(req.ProductAreaRaw)
	}

	newStory, err := builder.Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create story: %w", err)
	}

	for _, ev := range evidence {
		evBuilder := tx.StoryEvidence.Create().
			SetID(uuid.New().String()).
			SetStoryID(newStory.ID).
			SetConversationID(ev.ConversationID).
			SetRunID(ev.RunID).
			SetExcerpt(ev.Excerpt)
		if ev.SourceURL != "" {
			evBuilder = evBuilder.SetSourceURL(ev.SourceURL)
		}
		if err := evBuilder.Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to record story evidence: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit story creation: %w", err)
	}
	return newStory, nil
}

// AppendEvidence adds evidence to an existing story (orphan promotion or a
// later run re-contributing to the same signature) and bumps its
// conversation_count and run_id to the contributing run, all within one
// transaction.
func (s *StoryService) AppendEvidence(ctx context.Context, storyID string, runID string, evidence []EvidenceItem) error {
	tx, err := s.client.Tx(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	added := 0
	for _, ev := range evidence {
		evBuilder := tx.StoryEvidence.Create().
			SetID(uuid.New().String()).
			SetStoryID(storyID).
			SetConversationID(ev.ConversationID).
			SetRunID(ev.RunID).
			SetExcerpt(ev.Excerpt)
		if ev.SourceURL != "" {
			evBuilder = evBuilder.SetSourceURL(ev.SourceURL)
		}
		if err := evBuilder.Exec(ctx); err != nil {
			if ent.IsConstraintError(err) {
				// Already have evidence from this conversation; skip, not fatal.
				continue
			}
			return fmt.Errorf("failed to append story evidence: %w", err)
		}
		added++
	}

	if added > 0 {
		st, err := tx.Story.Get(ctx, storyID)
		if err != nil {
			return fmt.Errorf("failed to load story for evidence append: %w", err)
		}
		if err := tx.Story.UpdateOneID(storyID).
			SetRunID(runID).
			SetConversationCount(st.ConversationCount + added).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to update story conversation count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit evidence append: %w", err)
	}
	return nil
}

// UpdateDescription sets a story's LLM-generated description, or records
// that generation failed so the story still ships with a minimal
// description rather than blocking on it.
func (s *StoryService) UpdateDescription(ctx context.Context, storyID string, description string, generationFailed bool) error {
	update := s.client.Story.UpdateOneID(storyID).
		SetDescriptionGenerationFailed(generationFailed)
	if description != "" {
		update = update.SetDescription(description)
	}
	if err := update.Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update story description: %w", err)
	}
	return nil
}

// SetCanonical records the canonicalized component/product-area values once
// pkg/canon has resolved them.
func (s *StoryService) SetCanonical(ctx context.Context, storyID string, componentCanonical, productAreaCanonical string) error {
	update := s.client.Story.UpdateOneID(storyID)
	if componentCanonical != "" {
		update = update.SetComponentCanonical(componentCanonical)
	}
	if productAreaCanonical != "" {
		update = update.SetProductAreaCanonical(productAreaCanonical)
	}
	if err := update.Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to set canonical story fields: %w", err)
	}
	return nil
}

// GetBySignature looks up a story by its cross-run-stable signature.
func (s *StoryService) GetBySignature(ctx context.Context, signature string) (*ent.Story, error) {
	st, err := s.client.Story.Query().
		Where(story.SignatureEQ(signature)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get story by signature: %w", err)
	}
	return st, nil
}

// ListForRun returns every story touched (created or appended to) by a run.
func (s *StoryService) ListForRun(ctx context.Context, runID string) ([]*ent.Story, error) {
	stories, err := s.client.Story.Query().
		Where(story.RunIDEQ(runID)).
		WithEvidence().
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories for run: %w", err)
	}
	return stories, nil
}

// Search performs full-text search over story descriptions.
func (s *StoryService) Search(ctx context.Context, query string, limit int) ([]*ent.Story, error) {
	if limit <= 0 {
		limit = 20
	}
	stories, err := s.client.Story.Query().
		Where(func(sel *sql.Selector) {
			sel.Where(sql.ExprP("to_tsvector('english', description) @@ plainto_tsquery($1)", query))
		}).
		Limit(limit).
		Order(ent.Desc(story.FieldUpdatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search stories: %w", err)
	}
	return stories, nil
}
