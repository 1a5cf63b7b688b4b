package orchestrator

import (
	"context"
	"log/slog"

	"github.com/feedforward/feedforward/pkg/fetcher"
	"github.com/feedforward/feedforward/pkg/models"
	"github.com/feedforward/feedforward/pkg/services"
)

const errCategoryPersistence = "persistence_error"

// runFetchPhase streams every conversation touched within the run's window,
// persisting each one as it arrives (unless dry_run, where conversations
// stay in memory only). A single conversation's fetch failure is tallied
// and dropped; it never aborts the phase.
func (r *Run) runFetchPhase(ctx context.Context, log *slog.Logger) ([]models.Conversation, error) {
	if err := r.beginPhase(ctx, phaseFetching); err != nil {
		return nil, err
	}

	window := fetcher.TimeWindow{Start: r.run.WindowStart, End: r.run.WindowEnd}
	maxConversations := 0
	if r.run.MaxConversations != nil {
		maxConversations = *r.run.MaxConversations
	}

	stream, err := r.deps.Fetcher.Stream(ctx, window, maxConversations)
	if err != nil {
		r.failPhase(ctx, log, phaseFetching, err)
		return nil, err
	}

	var conversations []models.Conversation
	processed, failed := 0, 0

	for result := range stream {
		if err := r.checkCancelled(ctx); err != nil {
			return nil, err
		}

		if result.Err != nil {
			failed++
			r.tally.add(models.ErrorCategoryFetchFailure, result.Err.Error())
			continue
		}

		if !r.run.DryRun {
			if _, err := r.deps.Conversations.Upsert(ctx, services.UpsertConversationRequest{
				ID:               result.Conversation.ConversationID,
				RunID:            r.run.ID,
				SourceCreatedAt:  result.Conversation.CreatedAt,
				CustomerMessages: toMessages(result.Conversation.CustomerMessages),
				SupportMessages:  toMessages(result.Conversation.SupportMessages),
				SourceURL:        result.Conversation.SourceURL,
				RawMetadata:      result.Conversation.RawMetadata,
			}); err != nil {
				failed++
				r.tally.add(errCategoryPersistence, err.Error())
				continue
			}
		}

		conversations = append(conversations, result.Conversation)
		processed++
	}

	if err := r.endPhase(ctx, phaseFetching, processed, failed); err != nil {
		log.Error("failed to record fetch phase counters", "error", err)
	}
	log.Info("fetch phase complete", "processed", processed, "failed", failed)

	return conversations, nil
}
