package config

import "time"

// RetentionConfig controls data retention and cleanup behavior.
type RetentionConfig struct {
	// RunRetentionDays is how many days to keep completed pipeline_runs
	// (and their phase events) before they are eligible for cleanup.
	RunRetentionDays int `yaml:"run_retention_days"`

	// OrphanTTL is the maximum age of an orphan entry with no new
	// contributing run before it is dropped as stale.
	OrphanTTL time.Duration `yaml:"orphan_ttl"`

	// CleanupInterval is how often the retention sweep runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		RunRetentionDays: 90,
		OrphanTTL:        30 * 24 * time.Hour,
		CleanupInterval:  12 * time.Hour,
	}
}
