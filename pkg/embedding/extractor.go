package embedding

import (
	"context"
	"log/slog"

	"github.com/feedforward/feedforward/pkg/llmclient"
	"github.com/feedforward/feedforward/pkg/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const facetSystemPrompt = `You are analyzing a support conversation to extract structured attributes for clustering. Respond with ONLY a JSON object: {"action_type": "inquiry|complaint|bug_report|how_to|feature_request|other", "direction": "excess|deficit|creation|deletion|modification|performance|neutral", "symptom": "...", "user_goal": "...", "product_area_raw": "...", "component_raw": "...", "resolution_action": "...", "root_cause": "...", "solution_provided": "...", "resolution_category": "..."}.`

var facetSchema = map[string]any{"action_type": nil, "direction": nil}

// Extractor produces an embedding vector and a combined facet/theme
// extraction for each actionable conversation in a run.
type Extractor struct {
	embed        *llmclient.EmbeddingClient
	llm          *llmclient.Client
	sem          *semaphore.Weighted
	modelVersion string
}

// New constructs an Extractor. concurrency bounds simultaneous in-flight
// embedding+facet calls; modelVersion is recorded on every row so a
// provider migration never mixes incompatible vector spaces.
func New(embed *llmclient.EmbeddingClient, llm *llmclient.Client, concurrency int, modelVersion string) *Extractor {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Extractor{embed: embed, llm: llm, sem: semaphore.NewWeighted(int64(concurrency)), modelVersion: modelVersion}
}

// ExtractAll runs embedding + facet extraction for every conversation,
// gathering per-item results without letting one failure cancel the batch.
func (e *Extractor) ExtractAll(ctx context.Context, runID string, convs []models.Conversation) []Result[ExtractionResult] {
	results := make([]Result[ExtractionResult], len(convs))

	g, gctx := errgroup.WithContext(ctx)
	for i, conv := range convs {
		i, conv := i, conv
		if err := e.sem.Acquire(gctx, 1); err != nil {
			results[i] = Result[ExtractionResult]{Err: err}
			continue
		}
		g.Go(func() error {
			defer e.sem.Release(1)
			result, err := e.extractOne(gctx, runID, conv)
			if err != nil {
				slog.Warn("embedding/facet extraction failed", "conversation_id", conv.ConversationID, "error", err)
			}
			results[i] = Result[ExtractionResult]{Value: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Extractor) extractOne(ctx context.Context, runID string, conv models.Conversation) (ExtractionResult, error) {
	text := conv.FullText()

	vectors, err := e.embed.Embed(ctx, []string{text})
	if err != nil {
		return ExtractionResult{}, err
	}

	facetResp, err := e.llm.CompleteJSON(ctx, llmclient.CompletionRequest{
		SystemPrompt: facetSystemPrompt,
		UserPrompt:   text,
		Schema:       facetSchema,
	})
	if err != nil {
		return ExtractionResult{}, err
	}

	return ExtractionResult{
		ConversationID: conv.ConversationID,
		Embedding: models.Embedding{
			ConversationID: conv.ConversationID,
			RunID:          runID,
			ModelVersion:   e.modelVersion,
			Vector:         vectors[0],
		},
		Facets: models.Facets{
			ConversationID: conv.ConversationID,
			RunID:          runID,
			ModelVersion:   e.modelVersion,
			ActionType:     models.CoerceActionType(stringField(facetResp, "action_type")),
			Direction:      models.CoerceDirection(stringField(facetResp, "direction")),
			Symptom:        stringField(facetResp, "symptom"),
			UserGoal:       stringField(facetResp, "user_goal"),
			ProductAreaRaw: stringField(facetResp, "product_area_raw"),
			ComponentRaw:   stringField(facetResp, "component_raw"),
		},
		SupportInsights: models.SupportInsights{
			ResolutionAction:   stringField(facetResp, "resolution_action"),
			RootCause:          stringField(facetResp, "root_cause"),
			SolutionProvided:   stringField(facetResp, "solution_provided"),
			ResolutionCategory: stringField(facetResp, "resolution_category"),
		},
	}, nil
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}
