// Package fetcher implements the Conversation Fetcher (C1): pulling
// conversations created or updated within a run's time window from the
// configured ticketing source, normalizing them, and fetching per-ticket
// detail with bounded parallelism.
package fetcher

import (
	"context"
	"time"

	"github.com/feedforward/feedforward/pkg/models"
)

// TimeWindow bounds a fetch by source-side creation time.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// FetchResult is one item on the Stream channel: either a normalized
// conversation or the error encountered fetching/parsing it. A single
// failed conversation never aborts the stream.
type FetchResult struct {
	Conversation models.Conversation
	Err          error
}

// TicketingClient abstracts the ticketing backend's paginated list and
// per-ticket detail endpoints, so Zendesk/Intercom/generic-HTTP sources
// share one Fetcher implementation.
type TicketingClient interface {
	// ListPage returns a page of conversation IDs touched within window,
	// plus an opaque token for the next page (empty when exhausted).
	ListPage(ctx context.Context, window TimeWindow, pageToken string) (ids []string, nextPageToken string, err error)

	// FetchDetail retrieves and normalizes a single conversation's full
	// message history.
	FetchDetail(ctx context.Context, id string) (models.Conversation, error)
}
