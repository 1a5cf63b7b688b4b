package fetcher

import (
	"context"
	"log/slog"

	"github.com/feedforward/feedforward/pkg/config"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Fetcher drives a TicketingClient through a run's time window: paginated
// listing followed by bounded-parallel detail fetch, emitted as a stream so
// downstream phases can start classifying before the full window is listed.
type Fetcher struct {
	client      TicketingClient
	parallelism int64
}

// New constructs a Fetcher. parallelism bounds concurrent detail-fetch
// calls against the ticketing source.
func New(client TicketingClient, cfg *config.TicketingConfig) *Fetcher {
	parallelism := int64(cfg.FetchParallel)
	if parallelism <= 0 {
		parallelism = 5
	}
	return &Fetcher{client: client, parallelism: parallelism}
}

// Stream lists every conversation touched within window and fetches their
// detail with bounded parallelism, publishing each as it completes.
// maxConversations caps the total fetched, 0 meaning unbounded. The
// returned channel is closed once the window is exhausted, the cap is
// reached, or ctx is cancelled.
func (f *Fetcher) Stream(ctx context.Context, window TimeWindow, maxConversations int) (<-chan FetchResult, error) {
	out := make(chan FetchResult)

	go func() {
		defer close(out)
		f.run(ctx, window, maxConversations, out)
	}()

	return out, nil
}

func (f *Fetcher) run(ctx context.Context, window TimeWindow, maxConversations int, out chan<- FetchResult) {
	sem := semaphore.NewWeighted(f.parallelism)
	g, gctx := errgroup.WithContext(ctx)

	fetched := 0
	pageToken := ""
	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return
		default:
		}

		ids, nextToken, err := f.client.ListPage(ctx, window, pageToken)
		if err != nil {
			select {
			case out <- FetchResult{Err: err}:
			case <-ctx.Done():
			}
			_ = g.Wait()
			return
		}

		for _, id := range ids {
			if maxConversations > 0 && fetched >= maxConversations {
				break
			}
			fetched++
			id := id

			if err := sem.Acquire(gctx, 1); err != nil {
				break
			}
			g.Go(func() error {
				defer sem.Release(1)
				conv, err := f.client.FetchDetail(gctx, id)
				result := FetchResult{Conversation: conv, Err: err}
				if err != nil {
					slog.Warn("failed to fetch conversation detail", "conversation_id", id, "error", err)
				}
				select {
				case out <- result:
				case <-gctx.Done():
				}
				return nil
			})
		}

		if nextToken == "" || (maxConversations > 0 && fetched >= maxConversations) {
			break
		}
		pageToken = nextToken
	}

	if err := g.Wait(); err != nil {
		slog.Error("fetch group exited with error", "error", err)
	}
}
