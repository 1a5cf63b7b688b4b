package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feedforward/feedforward/pkg/config"
	"github.com/feedforward/feedforward/pkg/llmclient"
	"github.com/feedforward/feedforward/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClients(t *testing.T, llmHandler, embedHandler http.HandlerFunc) (*llmclient.Client, *llmclient.EmbeddingClient) {
	t.Helper()

	llmServer := httptest.NewServer(llmHandler)
	t.Cleanup(llmServer.Close)
	embedServer := httptest.NewServer(embedHandler)
	t.Cleanup(embedServer.Close)

	t.Setenv("EMBEDDING_TEST_LLM_KEY", "sk-test")
	t.Setenv("EMBEDDING_TEST_EMBED_KEY", "sk-test")

	llm, err := llmclient.New("test", &config.LLMProviderConfig{
		Type:            config.LLMProviderTypeOpenAI,
		Model:           "gpt-4o",
		APIKeyEnv:       "EMBEDDING_TEST_LLM_KEY",
		BaseURL:         llmServer.URL,
		MaxOutputTokens: 512,
	})
	require.NoError(t, err)

	embed, err := llmclient.NewEmbeddingClient("test", &config.EmbeddingProviderConfig{
		Type:       config.EmbeddingProviderTypeOpenAI,
		Model:      "text-embedding-3-small",
		APIKeyEnv:  "EMBEDDING_TEST_EMBED_KEY",
		BaseURL:    embedServer.URL,
		Dimensions: 3,
	})
	require.NoError(t, err)

	return llm, embed
}

func TestExtractor_ExtractAll(t *testing.T) {
	llm, embed := newTestClients(t,
		func(w http.ResponseWriter, r *http.Request) {
			resp := map[string]any{
				"choices": []map[string]any{{"message": map[string]any{"content": `{"action_type":"bug_report","direction":"deficit","root_cause":"timeout on large export"}`}}},
			}
			_ = json.NewEncoder(w).Encode(resp)
		},
		func(w http.ResponseWriter, r *http.Request) {
			resp := map[string]any{"data": []map[string]any{{"embedding": []float64{0.1, 0.2, 0.3}}}}
			_ = json.NewEncoder(w).Encode(resp)
		},
	)

	ex := New(embed, llm, 4, "text-embedding-3-small")
	convs := []models.Conversation{
		{ConversationID: "c1", CustomerMessages: []models.ConversationMsg{{Content: "export hangs"}}},
	}
	results := ex.ExtractAll(context.Background(), "run-1", convs)

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "bug_report", results[0].Value.Facets.ActionType)
	assert.Equal(t, "deficit", results[0].Value.Facets.Direction)
	assert.Equal(t, "timeout on large export", results[0].Value.SupportInsights.RootCause)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, results[0].Value.Embedding.Vector)
}

func TestExtractor_ExtractAll_CoercesUnknownVocabulary(t *testing.T) {
	llm, embed := newTestClients(t,
		func(w http.ResponseWriter, r *http.Request) {
			resp := map[string]any{
				"choices": []map[string]any{{"message": map[string]any{"content": `{"action_type":"mystery","direction":"sideways"}`}}},
			}
			_ = json.NewEncoder(w).Encode(resp)
		},
		func(w http.ResponseWriter, r *http.Request) {
			resp := map[string]any{"data": []map[string]any{{"embedding": []float64{0.5}}}}
			_ = json.NewEncoder(w).Encode(resp)
		},
	)

	ex := New(embed, llm, 2, "text-embedding-3-small")
	convs := []models.Conversation{{ConversationID: "c1"}}
	results := ex.ExtractAll(context.Background(), "run-1", convs)

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, models.ActionOther, results[0].Value.Facets.ActionType)
	assert.Equal(t, models.DirectionNeutral, results[0].Value.Facets.Direction)
}
