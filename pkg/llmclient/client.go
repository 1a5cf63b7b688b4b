// Package llmclient provides the shared HTTP transport used by every
// pipeline component that calls out to an LLM: the classifier (C2), the
// facet extractor (C3), the PM review gate (C5), and the story assembler
// (C7). It centralizes provider selection, structured-output enforcement,
// and retry/backoff so those components stay free of transport concerns.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/feedforward/feedforward/pkg/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// CompletionRequest is one structured-output request to an LLM provider.
type CompletionRequest struct {
	// SystemPrompt sets the model's role and output contract.
	SystemPrompt string
	// UserPrompt carries the task-specific content (conversation text,
	// candidate cluster, etc).
	UserPrompt string
	// Schema describes the required top-level shape of the JSON response,
	// keyed by field name. A non-nil value may itself be a nested
	// map[string]any for shallow shape checking; a nil value only asserts
	// the key's presence.
	Schema map[string]any
}

// Client issues structured-output completions against a configured LLM
// provider, enforcing the requested JSON schema with one retry.
type Client struct {
	providerName string
	cfg          *config.LLMProviderConfig
	httpClient   *http.Client
	apiKey       string
}

// New constructs a Client for the named provider configuration. apiKeyEnv
// resolution happens here so callers never handle raw credentials.
func New(providerName string, cfg *config.LLMProviderConfig) (*Client, error) {
	var apiKey string
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, cfg.APIKeyEnv)
		}
	}

	timeout := 30 * time.Second
	if cfg.RequestTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	}

	return &Client{
		providerName: providerName,
		cfg:          cfg,
		apiKey:       apiKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// CompleteJSON issues a completion request and returns the parsed response
// validated against req.Schema. On a schema violation, it retries once with
// an appended correction instruction before giving up with
// ErrSchemaViolation.
func (c *Client) CompleteJSON(ctx context.Context, req CompletionRequest) (map[string]any, error) {
	result, err := c.completeOnce(ctx, req)
	if err == nil {
		if verr := validateShape(result, req.Schema); verr == nil {
			return result, nil
		}
		slog.Warn("llm response failed schema validation, retrying once",
			"provider", c.providerName, "model", c.cfg.Model)
		retryReq := req
		retryReq.SystemPrompt = req.SystemPrompt + "\n\nYour previous response did not match the required JSON shape. Respond with ONLY valid JSON containing exactly the required fields."
		result, err = c.completeOnce(ctx, retryReq)
		if err == nil {
			if verr := validateShape(result, req.Schema); verr != nil {
				return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, verr)
			}
			return result, nil
		}
	}
	return nil, err
}

// completeOnce issues a single completion call, retrying on transient
// transport failures (5xx, network errors) via exponential backoff.
func (c *Client) completeOnce(ctx context.Context, req CompletionRequest) (map[string]any, error) {
	var raw string
	operation := func() error {
		text, err := c.call(ctx, req)
		if err != nil {
			return err
		}
		raw = text
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, fmt.Errorf("llm completion failed: %w", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("llm response was not valid JSON: %w", err)
	}
	return parsed, nil
}

// call performs the provider-specific HTTP request and extracts the raw
// text content of the completion. Provider wire formats differ only in
// request/response envelope shape; all of them are asked to return a single
// JSON object as their entire text output.
func (c *Client) call(ctx context.Context, req CompletionRequest) (string, error) {
	endpoint, body, err := buildRequest(c.providerName, c.cfg, req)
	if err != nil {
		return "", backoff.Permanent(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err // network errors are retryable
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("provider %s returned %d: %s", c.providerName, resp.StatusCode, string(respBody))
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("provider %s rate limited", c.providerName)
	}
	if resp.StatusCode >= 400 {
		return "", backoff.Permanent(fmt.Errorf("provider %s returned %d: %s", c.providerName, resp.StatusCode, string(respBody)))
	}

	return extractCompletionText(c.providerName, respBody)
}

// validateShape checks that every key in schema is present in data. Nested
// map[string]any schema values are checked recursively; any other schema
// value only asserts presence of the key.
func validateShape(data map[string]any, schema map[string]any) error {
	for key, sub := range schema {
		val, ok := data[key]
		if !ok {
			return fmt.Errorf("missing required field %q", key)
		}
		if subSchema, ok := sub.(map[string]any); ok {
			nested, ok := val.(map[string]any)
			if !ok {
				return fmt.Errorf("field %q expected an object", key)
			}
			if err := validateShape(nested, subSchema); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	return nil
}
