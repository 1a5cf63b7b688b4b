package config

// CanonConfig controls how raw component/product-area strings are
// normalized and canonicalized into the vocabulary stories are keyed on.
type CanonConfig struct {
	// MinAliasConfidence is the minimum fuzzy-match confidence before a raw
	// value is auto-aliased to an existing canonical form instead of being
	// treated as a new canonical candidate.
	MinAliasConfidence float64 `yaml:"min_alias_confidence"`

	// SeedAliases are built-in raw->canonical mappings applied before any
	// user-defined or learned aliases, keyed by "kind:normalized_raw".
	SeedAliases map[string]string `yaml:"seed_aliases,omitempty"`
}

// DefaultCanonConfig returns the built-in canonicalization defaults.
func DefaultCanonConfig() *CanonConfig {
	return &CanonConfig{
		MinAliasConfidence: 0.85,
		SeedAliases:        map[string]string{},
	}
}
