package services

import (
	"context"
	"fmt"
	"time"

	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/ent/runphaseevent"
	"github.com/google/uuid"
)

// PhaseEventService records the durable, queryable phase event trail for a
// run — the persisted-state analog of in-process logging.
type PhaseEventService struct {
	client *ent.Client
}

// NewPhaseEventService creates a new PhaseEventService.
func NewPhaseEventService(client *ent.Client) *PhaseEventService {
	return &PhaseEventService{client: client}
}

// RecordEventRequest is one phase lifecycle event.
type RecordEventRequest struct {
	RunID          string
	Phase          runphaseevent.Phase
	EventType      runphaseevent.EventType
	ProcessedCount *int
	FailedCount    *int
	Message        string
}

// Record appends a phase event; the table has no unique constraint per
// phase, since a phase may legitimately emit both a "started" and a
// "completed" (or "failed") row.
func (s *PhaseEventService) Record(ctx context.Context, req RecordEventRequest) (*ent.RunPhaseEvent, error) {
	builder := s.client.RunPhaseEvent.Create().
		SetID(uuid.New().String()).
		SetRunID(req.RunID).
		SetPhase(req.Phase).
		SetEventType(req.EventType).
		SetOccurredAt(time.Now())

	if req.ProcessedCount != nil {
		builder = builder.SetProcessedCount(*req.ProcessedCount)
	}
	if req.FailedCount != nil {
		builder = builder.SetFailedCount(*req.FailedCount)
	}
	if req.Message != "" {
		builder = builder.SetMessage(req.Message)
	}

	rec, err := builder.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to record phase event: %w", err)
	}
	return rec, nil
}

// ListForRun returns the full phase event trail for a run in chronological
// order.
func (s *PhaseEventService) ListForRun(ctx context.Context, runID string) ([]*ent.RunPhaseEvent, error) {
	events, err := s.client.RunPhaseEvent.Query().
		Where(runphaseevent.RunIDEQ(runID)).
		Order(ent.Asc(runphaseevent.FieldOccurredAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list phase events for run: %w", err)
	}
	return events, nil
}
