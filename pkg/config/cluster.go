package config

// ClusterConfig holds the tunable parameters the hybrid clusterer (C4)
// uses to decide how aggressively to merge conversations within an
// (action_type, direction) subgroup, and how large a cluster must be
// before it is eligible for story creation rather than the orphan path.
type ClusterConfig struct {
	// MaxLinkageDistance is the average-linkage cosine distance above which
	// two clusters are never merged.
	MaxLinkageDistance float64 `yaml:"max_linkage_distance"`

	// MinClusterSize is the minimum conversation count for a cluster to be
	// considered a candidate story rather than routed to the orphan
	// accumulator.
	MinClusterSize int `yaml:"min_cluster_size"`
}

// DefaultClusterConfig returns the built-in clustering defaults.
func DefaultClusterConfig() *ClusterConfig {
	return &ClusterConfig{
		MaxLinkageDistance: 0.35,
		MinClusterSize:     3,
	}
}
