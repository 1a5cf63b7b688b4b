package pmreview

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/feedforward/feedforward/pkg/config"
	"github.com/feedforward/feedforward/pkg/llmclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLLM(t *testing.T, handler http.HandlerFunc) *llmclient.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("PMREVIEW_TEST_KEY", "sk-test")
	cfg := &config.LLMProviderConfig{
		Type:            config.LLMProviderTypeOpenAI,
		Model:           "gpt-4o",
		APIKeyEnv:       "PMREVIEW_TEST_KEY",
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

func testCandidate() Candidate {
	return Candidate{
		ClusterID:       "cl1",
		ConversationIDs: []string{"a", "b"},
		Excerpts:        map[string]string{"a": "export fails on CSV", "b": "export fails on XLSX"},
	}
}

func TestGate_Review_KeepTogether(t *testing.T) {
	llm := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse(`{"decision":"keep_together","reasoning":"same root cause"}`))
	})
	g := New(llm, time.Second)

	verdict := g.Review(context.Background(), testCandidate())

	assert.Equal(t, DecisionKeepTogether, verdict.Decision)
	assert.False(t, verdict.FailSafe)
	assert.Equal(t, "same root cause", verdict.Reasoning)
}

func TestGate_Review_Split(t *testing.T) {
	llm := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse(`{"decision":"split","subgroups":[["a"],["b"]],"reasoning":"different formats"}`))
	})
	g := New(llm, time.Second)

	verdict := g.Review(context.Background(), testCandidate())

	require.Equal(t, DecisionSplit, verdict.Decision)
	assert.ElementsMatch(t, [][]string{{"a"}, {"b"}}, verdict.Subgroups)
	assert.Equal(t, 0, verdict.DuplicateAssignments)
	assert.False(t, verdict.FailSafe)
}

func TestGate_Review_SplitResolvesDuplicatesAndCoversAll(t *testing.T) {
	llm := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse(`{"decision":"split","subgroups":[["a","b"],["b"]],"reasoning":"overlap"}`))
	})
	g := New(llm, time.Second)

	verdict := g.Review(context.Background(), testCandidate())

	require.Equal(t, DecisionSplit, verdict.Decision)
	assert.Equal(t, 1, verdict.DuplicateAssignments)
	total := 0
	for _, sg := range verdict.Subgroups {
		total += len(sg)
	}
	assert.Equal(t, 2, total)
}

func TestGate_Review_FailSafeOnLLMError(t *testing.T) {
	llm := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})
	g := New(llm, time.Second)

	verdict := g.Review(context.Background(), testCandidate())

	assert.Equal(t, DecisionKeepTogether, verdict.Decision)
	assert.True(t, verdict.FailSafe)
}

func TestGate_Review_FailSafeOnUnrecognizedDecision(t *testing.T) {
	llm := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse(`{"decision":"escalate","reasoning":"unsure"}`))
	})
	g := New(llm, time.Second)

	verdict := g.Review(context.Background(), testCandidate())

	assert.Equal(t, DecisionKeepTogether, verdict.Decision)
	assert.True(t, verdict.FailSafe)
}

func TestGate_Review_FailSafeOnMalformedSubgroups(t *testing.T) {
	llm := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse(`{"decision":"split","subgroups":"not-a-list","reasoning":"oops"}`))
	})
	g := New(llm, time.Second)

	verdict := g.Review(context.Background(), testCandidate())

	assert.Equal(t, DecisionKeepTogether, verdict.Decision)
	assert.True(t, verdict.FailSafe)
}

func TestGate_Review_TimesOutOnSlowResponse(t *testing.T) {
	llm := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(chatResponse(`{"decision":"keep_together"}`))
	})
	g := New(llm, 5*time.Millisecond)

	verdict := g.Review(context.Background(), testCandidate())

	assert.Equal(t, DecisionKeepTogether, verdict.Decision)
	assert.True(t, verdict.FailSafe)
}
