package services

import (
	"context"
	"fmt"

	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/ent/pmverdict"
	"github.com/google/uuid"
)

// PMVerdictService persists PM-review coherence gate decisions.
type PMVerdictService struct {
	client *ent.Client
}

// NewPMVerdictService creates a new PMVerdictService.
func NewPMVerdictService(client *ent.Client) *PMVerdictService {
	return &PMVerdictService{client: client}
}

// RecordVerdictRequest is one PM-review decision for one cluster.
type RecordVerdictRequest struct {
	RunID                 string
	ClusterID             string
	Decision              pmverdict.Decision
	Subgroups             [][]string
	FailSafe              bool
	DuplicateAssignments  int
	Reasoning             string
}

// Record stores a PM verdict, failing on a duplicate cluster_id since each
// cluster is reviewed exactly once per run.
func (s *PMVerdictService) Record(ctx context.Context, req RecordVerdictRequest) (*ent.PMVerdict, error) {
	builder := s.client.PMVerdict.Create().
		SetID(uuid.New().String()).
		SetRunID(req.RunID).
		SetClusterID(req.ClusterID).
		SetDecision(req.Decision).
		SetFailSafe(req.FailSafe).
		SetDuplicateAssignments(req.DuplicateAssignments)

	if req.Subgroups != nil {
		builder = builder.SetSubgroups(req.Subgroups)
	}
	if req.Reasoning != "" {
		builder = builder.SetReasoning(req.Reasoning)
	}

	rec, err := builder.Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to record PM verdict: %w", err)
	}
	return rec, nil
}

// ListForRun returns every PM verdict for a run.
func (s *PMVerdictService) ListForRun(ctx context.Context, runID string) ([]*ent.PMVerdict, error) {
	recs, err := s.client.PMVerdict.Query().
		Where(pmverdict.RunIDEQ(runID)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list PM verdicts for run: %w", err)
	}
	return recs, nil
}
