package services

import (
	"context"
	"fmt"

	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/ent/classification"
	"github.com/feedforward/feedforward/ent/schema"
	"github.com/google/uuid"
)

// ClassificationService persists two-stage classifier output.
type ClassificationService struct {
	client *ent.Client
}

// NewClassificationService creates a new ClassificationService.
func NewClassificationService(client *ent.Client) *ClassificationService {
	return &ClassificationService{client: client}
}

// RecordClassificationRequest is one classifier result for one conversation
// within one run.
type RecordClassificationRequest struct {
	ConversationID        string
	RunID                 string
	Stage1Type            classification.Stage1Type
	Stage1Confidence      classification.Stage1Confidence
	Urgency               string
	RoutingTeam           string
	HasSupportResponse    bool
	Stage2Type            *classification.Stage2Type
	Stage2Confidence      *classification.Stage2Confidence
	DisambiguationLevel   string
	Reasoning             string
	ClassificationChanged bool
	SupportInsights       *schema.SupportInsights
	Unclassified          bool
}

// Record stores a classification, failing on a duplicate
// (conversation_id, run_id) pair since each run classifies a conversation
// exactly once.
func (s *ClassificationService) Record(ctx context.Context, req RecordClassificationRequest) (*ent.Classification, error) {
	builder := s.client.Classification.Create().
		SetID(uuid.New().String()).
		SetConversationID(req.ConversationID).
		SetRunID(req.RunID).
		SetStage1Type(req.Stage1Type).
		SetStage1Confidence(req.Stage1Confidence).
		SetHasSupportResponse(req.HasSupportResponse).
		SetClassificationChanged(req.ClassificationChanged).
		SetUnclassified(req.Unclassified)

	if req.Urgency != "" {
		builder = builder.SetUrgency(req.Urgency)
	}
	if req.RoutingTeam != "" {
		builder = builder.SetRoutingTeam(req.RoutingTeam)
	}
	if req.Stage2Type != nil {
		builder = builder.SetStage2Type(*req.Stage2Type)
	}
	if req.Stage2Confidence != nil {
		builder = builder.SetStage2Confidence(*req.Stage2Confidence)
	}
	if req.DisambiguationLevel != "" {
		builder = builder.SetDisambiguationLevel(req.DisambiguationLevel)
	}
	if req.Reasoning != "" {
		builder = builder.SetReasoning(req.Reasoning)
	}
	if req.SupportInsights != nil {
		builder = builder.SetSupportInsights(*req.SupportInsights)
	}

	rec, err := builder.Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to record classification: %w", err)
	}
	return rec, nil
}

// ListActionableForRun returns every classification for a run whose stage-2
// type is eligible for facet extraction, per
// schema.ActionableStage2Types, excluding anything marked unclassified.
func (s *ClassificationService) ListActionableForRun(ctx context.Context, runID string) ([]*ent.Classification, error) {
	actionable := make([]classification.Stage2Type, 0, len(schema.ActionableStage2Types))
	for _, t := range schema.ActionableStage2Types {
		actionable = append(actionable, classification.Stage2Type(t))
	}

	recs, err := s.client.Classification.Query().
		Where(
			classification.RunIDEQ(runID),
			classification.UnclassifiedEQ(false),
			classification.Stage2TypeIn(actionable...),
		).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list actionable classifications: %w", err)
	}
	return recs, nil
}

// CountUnclassified counts conversations whose stage-1 classification
// failed after retry within a run, for run-summary reporting.
func (s *ClassificationService) CountUnclassified(ctx context.Context, runID string) (int, error) {
	count, err := s.client.Classification.Query().
		Where(
			classification.RunIDEQ(runID),
			classification.UnclassifiedEQ(true),
		).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count unclassified conversations: %w", err)
	}
	return count, nil
}
