package pmreview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/feedforward/feedforward/pkg/llmclient"
)

const systemPrompt = `You are a product manager reviewing a candidate group of customer conversations that an automated clusterer believes describe the same underlying issue. Decide whether they truly belong together. Respond with ONLY a JSON object: {"decision": "keep_together|split|reject", "subgroups": [["conv_id", ...], ...], "reasoning": "..."}. "subgroups" is only meaningful when decision is "split": partition every conversation ID into the subgroups that actually belong together.`

var schema = map[string]any{"decision": nil}

// Gate issues one review call per candidate with a bounded timeout,
// falling back to keep_together on any failure so a flaky LLM call never
// blocks story creation outright.
type Gate struct {
	llm     *llmclient.Client
	timeout time.Duration
}

// New constructs a Gate. timeout bounds each review call; zero uses 30s.
func New(llm *llmclient.Client, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gate{llm: llm, timeout: timeout}
}

// Review issues the gate's decision for a single candidate. Only called
// for candidates with at least two conversations — a singleton cluster
// has nothing to adjudicate.
func (g *Gate) Review(ctx context.Context, candidate Candidate) Verdict {
	reviewCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.llm.CompleteJSON(reviewCtx, llmclient.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildPrompt(candidate),
		Schema:       schema,
	})
	if err != nil {
		slog.Warn("pm review failed, defaulting to keep_together",
			"cluster_id", candidate.ClusterID, "error", err)
		return Verdict{Decision: DecisionKeepTogether, FailSafe: true, Reasoning: "pm review unavailable: " + err.Error()}
	}

	decision, _ := resp["decision"].(string)
	if decision != DecisionKeepTogether && decision != DecisionSplit && decision != DecisionReject {
		slog.Warn("pm review returned an unrecognized decision, defaulting to keep_together",
			"cluster_id", candidate.ClusterID, "decision", decision)
		return Verdict{Decision: DecisionKeepTogether, FailSafe: true, Reasoning: "unrecognized decision"}
	}

	reasoning, _ := resp["reasoning"].(string)
	verdict := Verdict{Decision: decision, Reasoning: reasoning}

	if decision == DecisionSplit {
		subgroups, duplicates := parseSubgroups(resp["subgroups"], candidate.ConversationIDs)
		if subgroups == nil {
			slog.Warn("pm review split decision had no valid subgroups, defaulting to keep_together",
				"cluster_id", candidate.ClusterID)
			return Verdict{Decision: DecisionKeepTogether, FailSafe: true, Reasoning: "split decision failed validation"}
		}
		verdict.Subgroups = subgroups
		verdict.DuplicateAssignments = duplicates
	}

	return verdict
}

func buildPrompt(candidate Candidate) string {
	var b strings.Builder
	for _, id := range candidate.ConversationIDs {
		fmt.Fprintf(&b, "[%s]: %s\n", id, candidate.Excerpts[id])
	}
	return b.String()
}

// parseSubgroups extracts [][]string from the raw JSON value and resolves
// first-wins duplicate assignments via ValidatePartition. Returns nil if
// raw is not a JSON array or ValidatePartition rejects the partition.
func parseSubgroups(raw any, conversationIDs []string) ([][]string, int) {
	rawGroups, ok := raw.([]any)
	if !ok {
		return nil, 0
	}
	groups := make([][]string, 0, len(rawGroups))
	for _, g := range rawGroups {
		rawIDs, ok := g.([]any)
		if !ok {
			continue
		}
		ids := make([]string, 0, len(rawIDs))
		for _, v := range rawIDs {
			if s, ok := v.(string); ok {
				ids = append(ids, s)
			}
		}
		if len(ids) > 0 {
			groups = append(groups, ids)
		}
	}

	resolved, duplicates, err := ValidatePartition(groups, conversationIDs)
	if err != nil {
		return nil, 0
	}
	return resolved, duplicates
}
