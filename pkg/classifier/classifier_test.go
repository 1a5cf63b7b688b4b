package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/feedforward/feedforward/pkg/config"
	"github.com/feedforward/feedforward/pkg/llmclient"
	"github.com/feedforward/feedforward/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLLM(t *testing.T, handler http.HandlerFunc) *llmclient.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("CLASSIFIER_TEST_KEY", "sk-test")
	cfg := &config.LLMProviderConfig{
		Type:            config.LLMProviderTypeOpenAI,
		Model:           "gpt-4o",
		APIKeyEnv:       "CLASSIFIER_TEST_KEY",
		BaseURL:         server.URL,
		MaxOutputTokens: 512,
	}
	client, err := llmclient.New("test", cfg)
	require.NoError(t, err)
	return client
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"content": content}}},
	}
}

func TestClassifier_ClassifyAll_Stage1Only(t *testing.T) {
	llm := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse(`{"type":"billing","confidence":"high"}`))
	})
	c := New(llm, 4)

	convs := []models.Conversation{
		{ConversationID: "c1", CustomerMessages: []models.ConversationMsg{{Content: "why was I charged twice"}}},
	}
	results := c.ClassifyAll(context.Background(), convs)

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "billing", results[0].Value.Stage1.Type)
	assert.Nil(t, results[0].Value.Stage2)
}

func TestClassifier_ClassifyAll_RunsStage2WhenSupportResponded(t *testing.T) {
	calls := 0
	llm := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_ = json.NewEncoder(w).Encode(chatResponse(`{"type":"product_issue","confidence":"medium"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(chatResponse(`{"type":"product_issue","confidence":"high","reasoning":"matches prior export bugs"}`))
	})
	c := New(llm, 4)

	convs := []models.Conversation{
		{
			ConversationID:   "c1",
			CustomerMessages: []models.ConversationMsg{{Content: "export is broken"}},
			SupportMessages:  []models.ConversationMsg{{Content: "we found a race condition", SentAt: time.Now()}},
		},
	}
	results := c.ClassifyAll(context.Background(), convs)

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.NotNil(t, results[0].Value.Stage2)
	assert.Equal(t, "matches prior export bugs", results[0].Value.Stage2.Reasoning)
	assert.Equal(t, 2, calls)
}

func TestClassifier_ClassifyAll_Stage1FailureCoercesToUnclassified(t *testing.T) {
	llm := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})
	c := New(llm, 2)

	convs := []models.Conversation{
		{ConversationID: "c1", CustomerMessages: []models.ConversationMsg{{Content: "hello"}}},
		{ConversationID: "c2", CustomerMessages: []models.ConversationMsg{{Content: "world"}}},
	}
	results := c.ClassifyAll(context.Background(), convs)

	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Err)
		assert.True(t, r.Value.Unclassified)
	}
}
