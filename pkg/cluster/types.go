// Package cluster implements the hybrid clusterer (C4): average-linkage
// agglomerative clustering over conversation embeddings, sub-clustered by
// (action_type, direction), with a coarse signature-grouping fallback for
// conversations missing an embedding or facets.
package cluster

// Point is one conversation's clustering input: its embedding vector (nil
// if missing) and facet attributes.
type Point struct {
	ConversationID string
	Vector         []float32
	ActionType     string
	Direction      string
	ProductAreaRaw string
	ComponentRaw   string
}

// Candidate is one output cluster: a group of conversations sharing an
// action type, direction, and (for the embedding path) a cosine-distance
// neighborhood.
type Candidate struct {
	ClusterIndex    int
	ConversationIDs []string
	ActionType      string
	Direction       string
	ProductAreaRaw  string
	ComponentRaw    string
	// FallbackPath is true when this candidate was produced by the coarse
	// signature-grouping path rather than embedding-based linkage, because
	// one or more of its members lacked an embedding or facets.
	FallbackPath bool
}

func (p Point) hasEmbedding() bool {
	return len(p.Vector) > 0
}
