package fetcher

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/feedforward/feedforward/pkg/config"
	"github.com/feedforward/feedforward/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTicketingClient struct {
	mu      sync.Mutex
	pages   [][]string
	fetched []string
	failID  string
}

func (f *fakeTicketingClient) ListPage(ctx context.Context, window TimeWindow, pageToken string) ([]string, string, error) {
	idx := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "%d", &idx)
	}
	if idx >= len(f.pages) {
		return nil, "", nil
	}
	next := ""
	if idx+1 < len(f.pages) {
		next = fmt.Sprintf("%d", idx+1)
	}
	return f.pages[idx], next, nil
}

func (f *fakeTicketingClient) FetchDetail(ctx context.Context, id string) (models.Conversation, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, id)
	f.mu.Unlock()

	if id == f.failID {
		return models.Conversation{}, fmt.Errorf("boom")
	}
	return models.Conversation{ConversationID: id, CreatedAt: time.Now()}, nil
}

func TestFetcher_Stream_FetchesAllPages(t *testing.T) {
	client := &fakeTicketingClient{pages: [][]string{{"a", "b"}, {"c"}}}
	f := New(client, &config.TicketingConfig{FetchParallel: 2})

	ch, err := f.Stream(context.Background(), TimeWindow{Start: time.Now().Add(-time.Hour), End: time.Now()}, 0)
	require.NoError(t, err)

	var got []string
	for r := range ch {
		require.NoError(t, r.Err)
		got = append(got, r.Conversation.ConversationID)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, got)
}

func TestFetcher_Stream_RespectsMaxConversations(t *testing.T) {
	client := &fakeTicketingClient{pages: [][]string{{"a", "b", "c", "d"}}}
	f := New(client, &config.TicketingConfig{FetchParallel: 2})

	ch, err := f.Stream(context.Background(), TimeWindow{Start: time.Now().Add(-time.Hour), End: time.Now()}, 2)
	require.NoError(t, err)

	var got []string
	for r := range ch {
		require.NoError(t, r.Err)
		got = append(got, r.Conversation.ConversationID)
	}
	assert.Len(t, got, 2)
}

func TestFetcher_Stream_PerConversationFailureDoesNotAbortStream(t *testing.T) {
	client := &fakeTicketingClient{pages: [][]string{{"a", "b", "c"}}, failID: "b"}
	f := New(client, &config.TicketingConfig{FetchParallel: 3})

	ch, err := f.Stream(context.Background(), TimeWindow{Start: time.Now().Add(-time.Hour), End: time.Now()}, 0)
	require.NoError(t, err)

	var ok, failed int
	for r := range ch {
		if r.Err != nil {
			failed++
			continue
		}
		ok++
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, failed)
}
