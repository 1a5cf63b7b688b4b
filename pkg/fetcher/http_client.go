package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/feedforward/feedforward/pkg/config"
	"github.com/feedforward/feedforward/pkg/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPTicketingClient implements TicketingClient against a configured
// ticketing source's REST API.
type HTTPTicketingClient struct {
	cfg        *config.TicketingConfig
	httpClient *http.Client
	apiKey     string
}

// NewHTTPTicketingClient constructs a client for the configured ticketing
// source.
func NewHTTPTicketingClient(cfg *config.TicketingConfig) (*HTTPTicketingClient, error) {
	var apiKey string
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
	}

	timeout := 15 * time.Second
	if cfg.FetchTimeout > 0 {
		timeout = time.Duration(cfg.FetchTimeout) * time.Second
	}

	return &HTTPTicketingClient{
		cfg:    cfg,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

func (c *HTTPTicketingClient) authenticate(req *http.Request) {
	if c.apiKey == "" {
		return
	}
	switch c.cfg.Source {
	case config.TicketingSourceZendesk:
		req.SetBasicAuth(c.apiKey, "")
	default:
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *HTTPTicketingClient) doJSON(ctx context.Context, endpoint string, out any) error {
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		c.authenticate(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			if secs, perr := strconv.Atoi(resp.Header.Get("Retry-After")); perr == nil && secs > 0 {
				select {
				case <-time.After(time.Duration(secs) * time.Second):
				case <-ctx.Done():
					return backoff.Permanent(ctx.Err())
				}
			}
			return fmt.Errorf("ticketing source returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("ticketing source returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("ticketing source returned %d", resp.StatusCode))
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(operation, bo)
}

// ListPage returns one page of ticket IDs updated within window.
func (c *HTTPTicketingClient) ListPage(ctx context.Context, window TimeWindow, pageToken string) ([]string, string, error) {
	pageSize := c.cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	endpoint := fmt.Sprintf("%s/conversations?start=%s&end=%s&page_size=%d",
		c.cfg.BaseURL,
		url.QueryEscape(window.Start.Format(time.RFC3339)),
		url.QueryEscape(window.End.Format(time.RFC3339)),
		pageSize)
	if pageToken != "" {
		endpoint += "&page_token=" + url.QueryEscape(pageToken)
	}

	var page struct {
		IDs           []string `json:"ids"`
		NextPageToken string   `json:"next_page_token"`
	}
	if err := c.doJSON(ctx, endpoint, &page); err != nil {
		return nil, "", fmt.Errorf("failed to list conversation page: %w", err)
	}
	return page.IDs, page.NextPageToken, nil
}

// FetchDetail retrieves and normalizes a single conversation.
func (c *HTTPTicketingClient) FetchDetail(ctx context.Context, id string) (models.Conversation, error) {
	endpoint := fmt.Sprintf("%s/conversations/%s", c.cfg.BaseURL, url.PathEscape(id))

	var raw rawConversation
	if err := c.doJSON(ctx, endpoint, &raw); err != nil {
		return models.Conversation{}, fmt.Errorf("failed to fetch conversation detail %s: %w", id, err)
	}
	return raw.normalize(id), nil
}

// rawConversation is the wire shape common to the generic_http source
// (Zendesk/Intercom adapters differ in field naming but share this
// structure, normalized here rather than in per-source types, since the
// ticketing backend is configured, not compiled, per deployment).
type rawConversation struct {
	CreatedAt string `json:"created_at"`
	SourceURL string `json:"source_url"`
	Messages  []struct {
		SentAt  string `json:"sent_at"`
		Author  string `json:"author"`
		Role    string `json:"role"` // "customer" or "support"
		Content string `json:"content"`
	} `json:"messages"`
	Metadata map[string]any `json:"metadata"`
}

func (r rawConversation) normalize(id string) models.Conversation {
	conv := models.Conversation{
		ConversationID: id,
		SourceURL:      r.SourceURL,
		RawMetadata:    r.Metadata,
	}
	if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
		conv.CreatedAt = t
	}
	for _, m := range r.Messages {
		sentAt, _ := time.Parse(time.RFC3339, m.SentAt)
		msg := models.ConversationMsg{SentAt: sentAt, Author: m.Author, Content: m.Content}
		if m.Role == "support" {
			conv.SupportMessages = append(conv.SupportMessages, msg)
		} else {
			conv.CustomerMessages = append(conv.CustomerMessages, msg)
		}
	}
	return conv
}
