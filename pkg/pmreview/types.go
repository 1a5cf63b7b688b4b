// Package pmreview implements the PM-review coherence gate (C5): for each
// cluster candidate with at least two conversations, one LLM call asks
// whether the grouping is coherent enough to become a single story, and if
// not, how to split it.
package pmreview

// Decision values mirror ent/schema/pmverdict.go's enum.
const (
	DecisionKeepTogether = "keep_together"
	DecisionSplit        = "split"
	DecisionReject       = "reject"
)

// Candidate is one cluster awaiting PM review.
type Candidate struct {
	ClusterID       string
	ConversationIDs []string
	// Excerpts maps conversation ID to a short representative excerpt,
	// the review prompt's evidence.
	Excerpts map[string]string
}

// Verdict is the gate's decision for one candidate.
type Verdict struct {
	Decision             string
	Subgroups            [][]string
	FailSafe             bool
	DuplicateAssignments int
	Reasoning            string
}
