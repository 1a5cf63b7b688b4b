package config

// QualityGateConfig holds the tunable weights and thresholds the quality
// gate (C6) uses to score a candidate story and route it to auto-create,
// manual review, or rejection.
type QualityGateConfig struct {
	// EvidenceCountWeight scores stories by how many conversations support
	// them, saturating at EvidenceSaturationCount.
	EvidenceCountWeight float64 `yaml:"evidence_count_weight"`

	// EvidenceSaturationCount is the conversation count at which the
	// evidence-count score reaches its maximum contribution.
	EvidenceSaturationCount int `yaml:"evidence_saturation_count"`

	// ClassificationConfidenceWeight scores stories by the mean
	// classification confidence of their member conversations.
	ClassificationConfidenceWeight float64 `yaml:"classification_confidence_weight"`

	// PMVerdictWeight rewards stories whose cluster passed PM review
	// cleanly (keep_together, no duplicate assignments).
	PMVerdictWeight float64 `yaml:"pm_verdict_weight"`

	// AutoCreateThreshold is the minimum composite score to auto-create a
	// story without a human review step.
	AutoCreateThreshold float64 `yaml:"auto_create_threshold"`

	// ManualReviewThreshold is the minimum composite score to route a
	// candidate to manual review instead of rejecting it outright.
	ManualReviewThreshold float64 `yaml:"manual_review_threshold"`
}

// DefaultQualityGateConfig returns the built-in quality-gate defaults.
func DefaultQualityGateConfig() *QualityGateConfig {
	return &QualityGateConfig{
		EvidenceCountWeight:            0.4,
		EvidenceSaturationCount:        8,
		ClassificationConfidenceWeight: 0.35,
		PMVerdictWeight:                0.25,
		AutoCreateThreshold:            0.75,
		ManualReviewThreshold:          0.5,
	}
}
