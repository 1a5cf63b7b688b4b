package story

import (
	"strings"

	"github.com/feedforward/feedforward/pkg/canon"
)

// BuildSignature constructs the cross-run-stable signature:
// hybrid_{action_type}_{direction}_{product_area_canonical}_{component_canonical}_{issue_slug}
func BuildSignature(actionType, direction, productAreaCanonical, componentCanonical, issueSlug string) string {
	parts := []string{"hybrid", actionType, direction}
	if productAreaCanonical != "" {
		parts = append(parts, productAreaCanonical)
	}
	if componentCanonical != "" {
		parts = append(parts, componentCanonical)
	}
	if issueSlug != "" {
		parts = append(parts, issueSlug)
	}
	return strings.Join(parts, "_")
}

// Slug derives the issue_slug component of a signature from a short
// descriptive phrase (typically the candidate's dominant symptom or
// title), format-normalized the same way canon.Normalize does, truncated
// to keep signatures bounded.
func Slug(phrase string) string {
	normalized := canon.Normalize(phrase)
	const maxLen = 40
	if len(normalized) > maxLen {
		normalized = strings.TrimRight(normalized[:maxLen], "_")
	}
	return normalized
}
