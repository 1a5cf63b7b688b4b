package qualitygate

import (
	"strings"

	"github.com/feedforward/feedforward/pkg/config"
	"github.com/feedforward/feedforward/pkg/models"
)

// EvidenceCoverageThreshold is the minimum fraction of a candidate's
// samples that must be valid (non-placeholder ID, non-empty excerpt) for
// the candidate to be routed at all, per the routing decision table.
const EvidenceCoverageThreshold = 0.6

// Route applies the routing decision table: evidence validity gates
// everything else. Below cfg.ManualReviewThreshold a candidate is too low
// confidence to even keep accumulating and is rejected outright; between
// ManualReviewThreshold and AutoCreateThreshold it orphans (worth keeping
// for future evidence, not worth a story yet); at or above
// AutoCreateThreshold it becomes a Story provided it also clears
// minGroupSize.
func Route(cfg *config.QualityGateConfig, samples []EvidenceSample, score float64, size, minGroupSize int) RouteResult {
	if cfg == nil {
		cfg = config.DefaultQualityGateConfig()
	}

	if evidenceCoverage(samples) < EvidenceCoverageThreshold {
		return RouteResult{Decision: RouteReject, Reason: models.ErrorCategoryEvidenceInvalid, Score: score}
	}

	if score < cfg.ManualReviewThreshold {
		return RouteResult{Decision: RouteReject, Reason: models.ErrorCategoryQualityGateReject, Score: score}
	}

	if score < cfg.AutoCreateThreshold {
		return RouteResult{Decision: RouteOrphan, Reason: models.ErrorCategoryQualityGateReject, Score: score}
	}

	if size < minGroupSize {
		return RouteResult{Decision: RouteOrphan, Reason: "below_min_group_size", Score: score}
	}

	return RouteResult{Decision: RouteStory, Score: score}
}

func evidenceCoverage(samples []EvidenceSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	valid := 0
	for _, s := range samples {
		if isValidSample(s) {
			valid++
		}
	}
	return float64(valid) / float64(len(samples))
}

func isValidSample(s EvidenceSample) bool {
	if strings.TrimSpace(s.Excerpt) == "" {
		return false
	}
	id := strings.TrimSpace(s.ConversationID)
	if id == "" || id == "placeholder" {
		return false
	}
	return true
}
