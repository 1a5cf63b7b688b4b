package cluster

import (
	"sort"

	"github.com/feedforward/feedforward/pkg/config"
)

// Cluster groups points into candidates: conversations with an embedding
// and facets are sub-clustered by (action_type, direction) then merged via
// average-linkage agglomerative clustering over cosine distance;
// conversations missing either fall back to coarse signature grouping.
// ClusterIndex is assigned deterministically — by cluster size descending,
// then by the member conversation's smallest ID ascending — so the same
// input always produces the same cluster_index assignment.
func Cluster(points []Point, cfg *config.ClusterConfig) []Candidate {
	var withEmbedding, withoutEmbedding []Point
	for _, p := range points {
		if p.hasEmbedding() && p.ActionType != "" && p.Direction != "" {
			withEmbedding = append(withEmbedding, p)
		} else {
			withoutEmbedding = append(withoutEmbedding, p)
		}
	}

	var candidates []Candidate
	candidates = append(candidates, clusterByLinkage(withEmbedding, cfg.MaxLinkageDistance)...)
	candidates = append(candidates, clusterByFallback(withoutEmbedding)...)

	assignDeterministicIndex(candidates)
	return candidates
}

// clusterByLinkage sub-clusters by (action_type, direction) and runs
// average-linkage clustering within each subgroup.
func clusterByLinkage(points []Point, maxDistance float64) []Candidate {
	subgroups := make(map[string][]Point)
	order := make([]string, 0)
	for _, p := range points {
		key := p.ActionType + "|" + p.Direction
		if _, ok := subgroups[key]; !ok {
			order = append(order, key)
		}
		subgroups[key] = append(subgroups[key], p)
	}

	var candidates []Candidate
	for _, key := range order {
		sub := subgroups[key]
		groups := averageLinkageCluster(sub, maxDistance)
		for _, group := range groups {
			ids := make([]string, len(group))
			productAreas := make([]string, 0, len(group))
			components := make([]string, 0, len(group))
			for i, idx := range group {
				ids[i] = sub[idx].ConversationID
				productAreas = append(productAreas, sub[idx].ProductAreaRaw)
				components = append(components, sub[idx].ComponentRaw)
			}
			candidates = append(candidates, Candidate{
				ConversationIDs: ids,
				ActionType:      sub[0].ActionType,
				Direction:       sub[0].Direction,
				ProductAreaRaw:  mode(productAreas),
				ComponentRaw:    mode(components),
			})
		}
	}
	return candidates
}

// clusterByFallback groups conversations missing an embedding or facets by
// a coarse signature (action_type + direction + component_raw), with no
// embedding-based linkage step.
func clusterByFallback(points []Point) []Candidate {
	groups := make(map[string][]Point)
	order := make([]string, 0)
	for _, p := range points {
		key := p.ActionType + "|" + p.Direction + "|" + p.ComponentRaw
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], p)
	}

	candidates := make([]Candidate, 0, len(order))
	for _, key := range order {
		group := groups[key]
		ids := make([]string, len(group))
		productAreas := make([]string, 0, len(group))
		for i, p := range group {
			ids[i] = p.ConversationID
			productAreas = append(productAreas, p.ProductAreaRaw)
		}
		candidates = append(candidates, Candidate{
			ConversationIDs: ids,
			ActionType:      group[0].ActionType,
			Direction:       group[0].Direction,
			ProductAreaRaw:  mode(productAreas),
			ComponentRaw:    group[0].ComponentRaw,
			FallbackPath:    true,
		})
	}
	return candidates
}

func assignDeterministicIndex(candidates []Candidate) {
	for i := range candidates {
		sort.Strings(candidates[i].ConversationIDs)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i].ConversationIDs) != len(candidates[j].ConversationIDs) {
			return len(candidates[i].ConversationIDs) > len(candidates[j].ConversationIDs)
		}
		return candidates[i].ConversationIDs[0] < candidates[j].ConversationIDs[0]
	})
	for i := range candidates {
		candidates[i].ClusterIndex = i
	}
}

// mode returns the most frequent non-empty value, or "" if all are empty.
func mode(values []string) string {
	counts := make(map[string]int)
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}
	best, bestCount := "", 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}
