package cluster

import (
	"testing"

	"github.com/feedforward/feedforward/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCluster_MergesNearbyEmbeddingsWithinSubgroup(t *testing.T) {
	points := []Point{
		{ConversationID: "a", Vector: []float32{1, 0, 0}, ActionType: "bug_report", Direction: "deficit"},
		{ConversationID: "b", Vector: []float32{0.99, 0.01, 0}, ActionType: "bug_report", Direction: "deficit"},
		{ConversationID: "c", Vector: []float32{0, 1, 0}, ActionType: "bug_report", Direction: "deficit"},
	}
	cfg := &config.ClusterConfig{MaxLinkageDistance: 0.1, MinClusterSize: 1}

	candidates := Cluster(points, cfg)

	require.Len(t, candidates, 2)
	sizes := []int{len(candidates[0].ConversationIDs), len(candidates[1].ConversationIDs)}
	assert.ElementsMatch(t, []int{2, 1}, sizes)
}

func TestCluster_NeverMergesAcrossActionTypeSubgroups(t *testing.T) {
	points := []Point{
		{ConversationID: "a", Vector: []float32{1, 0, 0}, ActionType: "bug_report", Direction: "deficit"},
		{ConversationID: "b", Vector: []float32{1, 0, 0}, ActionType: "feature_request", Direction: "creation"},
	}
	cfg := &config.ClusterConfig{MaxLinkageDistance: 0.5, MinClusterSize: 1}

	candidates := Cluster(points, cfg)

	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.Len(t, c.ConversationIDs, 1)
	}
}

func TestCluster_FallbackGroupsConversationsMissingEmbedding(t *testing.T) {
	points := []Point{
		{ConversationID: "a", ActionType: "bug_report", Direction: "deficit", ComponentRaw: "export-service"},
		{ConversationID: "b", ActionType: "bug_report", Direction: "deficit", ComponentRaw: "export-service"},
		{ConversationID: "c", ActionType: "bug_report", Direction: "deficit", ComponentRaw: "billing-service"},
	}
	cfg := &config.ClusterConfig{MaxLinkageDistance: 0.35, MinClusterSize: 1}

	candidates := Cluster(points, cfg)

	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.True(t, c.FallbackPath)
	}
}

func TestCluster_DeterministicIndexBySizeThenSmallestID(t *testing.T) {
	points := []Point{
		{ConversationID: "z1", ActionType: "bug_report", Direction: "deficit", ComponentRaw: "a"},
		{ConversationID: "a1", ActionType: "bug_report", Direction: "deficit", ComponentRaw: "b"},
		{ConversationID: "a2", ActionType: "bug_report", Direction: "deficit", ComponentRaw: "b"},
	}
	cfg := &config.ClusterConfig{MaxLinkageDistance: 0.35, MinClusterSize: 1}

	candidates := Cluster(points, cfg)

	require.Len(t, candidates, 2)
	assert.Equal(t, 0, candidates[0].ClusterIndex)
	assert.ElementsMatch(t, []string{"a1", "a2"}, candidates[0].ConversationIDs)
	assert.Equal(t, 1, candidates[1].ClusterIndex)
	assert.Equal(t, []string{"z1"}, candidates[1].ConversationIDs)
}
