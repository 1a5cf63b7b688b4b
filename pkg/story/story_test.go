package story

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

func TestBuildSignature(t *testing.T) {
	sig := BuildSignature("bug_report", "deficit", "billing", "export_service", "csv_export_fails")
	assert.Equal(t, "hybrid_bug_report_deficit_billing_export_service_csv_export_fails", sig)
}

func TestBuildSignature_OmitsEmptyComponents(t *testing.T) {
	sig := BuildSignature("bug_report", "deficit", "", "", "")
	assert.Equal(t, "hybrid_bug_report_deficit", sig)
}

func TestSlug_NormalizesAndTruncates(t *testing.T) {
	assert.Equal(t, "csv_export_fails", Slug("CSV Export Fails!"))
	long := Slug("this is a very long descriptive phrase that exceeds the cap by quite a lot of characters")
	assert.LessOrEqual(t, len(long), 40)
}

func TestShouldPromote(t *testing.T) {
	assert.True(t, ShouldPromote(3, 3))
	assert.True(t, ShouldPromote(4, 3))
	assert.False(t, ShouldPromote(2, 3))
}

func TestDescription_Render_OmitsEmptySections(t *testing.T) {
	d := Description{Summary: "s", Evidence: "e"}
	rendered := d.Render()
	assert.Contains(t, rendered, "## Summary")
	assert.Contains(t, rendered, "## Evidence")
	assert.NotContains(t, rendered, "## Impact")
}

func newTestLLM(t *testing.T, handler http.HandlerFunc) *llmclient.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("STORY_TEST_KEY", "sk-test")
	cfg := &config.LLMProviderConfig{
		Type:            config.LLMProviderTypeOpenAI,
		Model:           "gpt-4o",
		APIKeyEnv:       "STORY_TEST_KEY",
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

func TestAssembler_Describe_Success(t *testing.T) {
	llm := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse(`{"summary":"exports fail","impact":"blocks billing exports","evidence":"3 conversations","user_story":"As a user I want exports to succeed so that I can reconcile billing","acceptance_criteria":"CSV export completes","symptoms":"timeout on large exports","technical_notes":"race in export worker","invest_check":"small and testable"}`))
	})
	a := New(llm, time.Second)

	desc, err := a.Describe(context.Background(), DescribeInput{
		Title:      "CSV export fails",
		ActionType: "bug_report",
		Direction:  "deficit",
		Excerpts:   []string{"export times out"},
	})
	require.NoError(t, err)
	assert.Equal(t, "exports fail", desc.Summary)
	assert.Contains(t, desc.UserStory, "As a user")
}

func TestAssembler_Describe_FailsOnLLMError(t *testing.T) {
	llm := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})
	a := New(llm, time.Second)

	_, err := a.Describe(context.Background(), DescribeInput{Title: "x"})
	assert.Error(t, err)
}

func TestMinimal_ListsEvidenceExcerpts(t *testing.T) {
	out := Minimal(DescribeInput{Excerpts: []string{"a", "b"}})
	assert.Contains(t, out, "- a")
	assert.Contains(t, out, "- b")
}
