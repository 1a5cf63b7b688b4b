package classifier

import (
	"context"
	"log/slog"

	"github.com/feedforward/feedforward/pkg/llmclient"
	"github.com/feedforward/feedforward/pkg/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	stage1SystemPrompt = `You are a fast support-ticket router. Classify the customer's message into exactly one of: billing, account_issue, feature_request, product_issue, how_to_question, churn_risk, feedback, other. Respond with ONLY a JSON object: {"type": "...", "confidence": "high|medium|low", "urgency": "...", "routing_team": "..."}.`

	stage2SystemPrompt = `You are a senior support analyst refining a ticket's classification using the full customer and support exchange. Respond with ONLY a JSON object: {"type": "...", "confidence": "high|medium|low", "disambiguation_level": "...", "reasoning": "..."}.`
)

var (
	stage1Schema = map[string]any{"type": nil, "confidence": nil}
	stage2Schema = map[string]any{"type": nil, "confidence": nil}
)

// Classifier runs the two-stage classification pipeline with bounded
// concurrency against a shared llmclient.Client.
type Classifier struct {
	llm *llmclient.Client
	sem *semaphore.Weighted
}

// New constructs a Classifier. concurrency bounds simultaneous in-flight
// classification calls.
func New(llm *llmclient.Client, concurrency int) *Classifier {
	if concurrency <= 0 {
		concurrency = 20
	}
	return &Classifier{llm: llm, sem: semaphore.NewWeighted(int64(concurrency))}
}

// ClassifyAll classifies every conversation, gathering results with
// errgroup.Group.Go but never letting one failure cancel the rest: each
// outcome is captured in a Result, never an early return.
func (c *Classifier) ClassifyAll(ctx context.Context, convs []models.Conversation) []Result[ClassificationResult] {
	results := make([]Result[ClassificationResult], len(convs))

	g, gctx := errgroup.WithContext(ctx)
	for i, conv := range convs {
		i, conv := i, conv
		if err := c.sem.Acquire(gctx, 1); err != nil {
			results[i] = Result[ClassificationResult]{Err: err}
			continue
		}
		g.Go(func() error {
			defer c.sem.Release(1)
			result, err := c.classifyOne(gctx, conv)
			results[i] = Result[ClassificationResult]{Value: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// classifyOne runs Stage 1 unconditionally, then Stage 2 only when the
// conversation has a support response. A Stage 1 failure (even after
// llmclient's internal schema retry) coerces the conversation to
// Unclassified rather than failing the batch, per the "malformed LLM
// output ... coerce or skip" error-handling policy.
func (c *Classifier) classifyOne(ctx context.Context, conv models.Conversation) (ClassificationResult, error) {
	stage1Resp, err := c.llm.CompleteJSON(ctx, llmclient.CompletionRequest{
		SystemPrompt: stage1SystemPrompt,
		UserPrompt:   conv.CustomerText(),
		Schema:       stage1Schema,
	})
	if err != nil {
		slog.Warn("stage 1 classification failed, marking unclassified",
			"conversation_id", conv.ConversationID, "error", err)
		return ClassificationResult{
			ConversationID:     conv.ConversationID,
			HasSupportResponse: conv.HasSupportResponse(),
			Unclassified:       true,
		}, nil
	}

	stage1 := models.Stage1Result{
		Type:        stringField(stage1Resp, "type"),
		Confidence:  stringField(stage1Resp, "confidence"),
		Urgency:     stringField(stage1Resp, "urgency"),
		RoutingTeam: stringField(stage1Resp, "routing_team"),
	}

	result := ClassificationResult{
		ConversationID:     conv.ConversationID,
		Stage1:             stage1,
		HasSupportResponse: conv.HasSupportResponse(),
	}

	if !result.HasSupportResponse {
		return result, nil
	}

	stage2Resp, err := c.llm.CompleteJSON(ctx, llmclient.CompletionRequest{
		SystemPrompt: stage2SystemPrompt,
		UserPrompt:   conv.FullText(),
		Schema:       stage2Schema,
	})
	if err != nil {
		slog.Warn("stage 2 classification failed, keeping stage 1 result",
			"conversation_id", conv.ConversationID, "error", err)
		return result, nil
	}

	// support_insights (resolution_action/root_cause/solution_provided/
	// resolution_category) are populated later by pkg/embedding's combined
	// facet+theme extraction call, not here — see DESIGN.md.
	result.Stage2 = &models.Stage2Result{
		Type:                stringField(stage2Resp, "type"),
		Confidence:          stringField(stage2Resp, "confidence"),
		DisambiguationLevel: stringField(stage2Resp, "disambiguation_level"),
		Reasoning:           stringField(stage2Resp, "reasoning"),
	}
	return result, nil
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}
