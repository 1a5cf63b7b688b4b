package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/feedforward/feedforward/pkg/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// EmbeddingClient turns conversation text into vectors for the clustering
// stage (C3/C4).
type EmbeddingClient struct {
	providerName string
	cfg          *config.EmbeddingProviderConfig
	httpClient   *http.Client
	apiKey       string
}

// NewEmbeddingClient constructs an EmbeddingClient for the named provider.
func NewEmbeddingClient(providerName string, cfg *config.EmbeddingProviderConfig) (*EmbeddingClient, error) {
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

	return &EmbeddingClient{
		providerName: providerName,
		cfg:          cfg,
		apiKey:       apiKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// Embed returns one vector of cfg.Dimensions per input text, in order.
func (c *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	operation := func() error {
		v, err := c.call(ctx, texts)
		if err != nil {
			return err
		}
		vectors = v
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, fmt.Errorf("embedding call failed: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}

func (c *EmbeddingClient) call(ctx context.Context, texts []string) ([][]float32, error) {
	endpoint, body, err := buildEmbeddingRequest(c.cfg, texts)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("embedding provider returned %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode >= 400 {
		return nil, backoff.Permanent(fmt.Errorf("embedding provider returned %d: %s", resp.StatusCode, string(respBody)))
	}

	return parseEmbeddingResponse(c.cfg.Type, respBody)
}

func buildEmbeddingRequest(cfg *config.EmbeddingProviderConfig, texts []string) (string, []byte, error) {
	switch cfg.Type {
	case config.EmbeddingProviderTypeOpenAI:
		payload := map[string]any{"model": cfg.Model, "input": texts}
		body, err := json.Marshal(payload)
		if err != nil {
			return "", nil, err
		}
		return baseURL2(cfg.BaseURL, "https://api.openai.com/v1") + "/embeddings", body, nil
	case config.EmbeddingProviderTypeVertexAI:
		instances := make([]map[string]string, len(texts))
		for i, t := range texts {
			instances[i] = map[string]string{"content": t}
		}
		payload := map[string]any{"instances": instances}
		body, err := json.Marshal(payload)
		if err != nil {
			return "", nil, err
		}
		endpoint := fmt.Sprintf("%s/models/%s:predict", baseURL2(cfg.BaseURL, "https://us-central1-aiplatform.googleapis.com/v1"), cfg.Model)
		return endpoint, body, nil
	default:
		return "", nil, fmt.Errorf("llmclient: unsupported embedding provider type %q", cfg.Type)
	}
}

func baseURL2(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

func parseEmbeddingResponse(providerType config.EmbeddingProviderType, respBody []byte) ([][]float32, error) {
	var envelope map[string]any
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}

	toFloat32 := func(raw []any) []float32 {
		out := make([]float32, len(raw))
		for i, v := range raw {
			if f, ok := v.(float64); ok {
				out[i] = float32(f)
			}
		}
		return out
	}

	switch providerType {
	case config.EmbeddingProviderTypeOpenAI:
		data, _ := envelope["data"].([]any)
		vectors := make([][]float32, len(data))
		for i, item := range data {
			entry, _ := item.(map[string]any)
			embedding, _ := entry["embedding"].([]any)
			vectors[i] = toFloat32(embedding)
		}
		return vectors, nil
	case config.EmbeddingProviderTypeVertexAI:
		predictions, _ := envelope["predictions"].([]any)
		vectors := make([][]float32, len(predictions))
		for i, item := range predictions {
			entry, _ := item.(map[string]any)
			embeddings, _ := entry["embeddings"].(map[string]any)
			values, _ := embeddings["values"].([]any)
			vectors[i] = toFloat32(values)
		}
		return vectors, nil
	default:
		return nil, fmt.Errorf("llmclient: unsupported embedding provider type %q", providerType)
	}
}
