package story

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/feedforward/feedforward/pkg/llmclient"
)

const systemPrompt = `You are writing an engineering-facing story description from a cluster of customer support conversations that describe the same underlying issue. Respond with ONLY a JSON object with these exact keys, each a short, information-dense paragraph: "summary", "impact", "evidence", "user_story", "acceptance_criteria", "symptoms", "technical_notes", "invest_check". "user_story" should follow the "As a ... I want ... so that ..." form. "invest_check" should briefly note whether the story is Independent, Negotiable, Valuable, Estimable, Small, and Testable.`

var schema = map[string]any{"summary": nil, "impact": nil}

// Assembler generates a structured story description from a candidate's
// evidence via one CompleteJSON call.
type Assembler struct {
	llm     *llmclient.Client
	timeout time.Duration
}

// New constructs an Assembler. timeout bounds the description call; zero
// uses 30s.
func New(llm *llmclient.Client, timeout time.Duration) *Assembler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Assembler{llm: llm, timeout: timeout}
}

// Describe generates a structured description. On any failure (timeout,
// LLM error, malformed response) it returns an error and the caller
// should fall back to a minimal description (title + evidence only),
// recording an error_summary entry rather than blocking story creation.
func (a *Assembler) Describe(ctx context.Context, input DescribeInput) (Description, error) {
	describeCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.llm.CompleteJSON(describeCtx, llmclient.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildPrompt(input),
		Schema:       schema,
	})
	if err != nil {
		return Description{}, fmt.Errorf("story description generation failed: %w", err)
	}

	return Description{
		Summary:            stringField(resp, "summary"),
		Impact:             stringField(resp, "impact"),
		Evidence:           stringField(resp, "evidence"),
		UserStory:          stringField(resp, "user_story"),
		AcceptanceCriteria: stringField(resp, "acceptance_criteria"),
		Symptoms:           stringField(resp, "symptoms"),
		TechnicalNotes:     stringField(resp, "technical_notes"),
		InvestCheck:        stringField(resp, "invest_check"),
	}, nil
}

// Minimal builds the fallback description used when Describe fails: an
// Evidence heading over a flat list of evidence excerpts, with no
// LLM-authored sections. The title is not included; it stays on the story
// row.
func Minimal(input DescribeInput) string {
	var b strings.Builder
	b.WriteString("## Evidence\n")
	for _, excerpt := range input.Excerpts {
		b.WriteString("- " + excerpt + "\n")
	}
	return b.String()
}

// ShouldPromote reports whether an orphan's accumulated conversation
// count has crossed minGroupSize and should become a Story.
func ShouldPromote(conversationCount, minGroupSize int) bool {
	return conversationCount >= minGroupSize
}

func buildPrompt(input DescribeInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", input.Title)
	fmt.Fprintf(&b, "Action type: %s, Direction: %s\n", input.ActionType, input.Direction)
	if input.ProductAreaRaw != "" {
		fmt.Fprintf(&b, "Product area: %s\n", input.ProductAreaRaw)
	}
	if input.ComponentRaw != "" {
		fmt.Fprintf(&b, "Component: %s\n", input.ComponentRaw)
	}
	if len(input.RootCauses) > 0 {
		fmt.Fprintf(&b, "Observed root causes: %s\n", strings.Join(input.RootCauses, "; "))
	}
	if len(input.ResolutionActions) > 0 {
		fmt.Fprintf(&b, "Observed resolutions: %s\n", strings.Join(input.ResolutionActions, "; "))
	}
	b.WriteString("Conversation excerpts:\n")
	for _, excerpt := range input.Excerpts {
		b.WriteString("- " + excerpt + "\n")
	}
	return b.String()
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
