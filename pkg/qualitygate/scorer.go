package qualitygate

import (
	"github.com/feedforward/feedforward/pkg/config"
	"github.com/feedforward/feedforward/pkg/models"
	"github.com/feedforward/feedforward/pkg/pmreview"
)

// Scorer computes the composite confidence score a candidate is routed on.
type Scorer struct {
	cfg *config.QualityGateConfig
}

// New constructs a Scorer from the run's quality-gate weights.
func New(cfg *config.QualityGateConfig) *Scorer {
	if cfg == nil {
		cfg = config.DefaultQualityGateConfig()
	}
	return &Scorer{cfg: cfg}
}

// Score computes the weighted composite in [0,1]: evidence count
// (saturating at EvidenceSaturationCount), mean classification confidence,
// and PM-verdict cleanliness.
func (s *Scorer) Score(input ScoreInput) float64 {
	countScore := 1.0
	if s.cfg.EvidenceSaturationCount > 0 {
		countScore = float64(input.ConversationCount) / float64(s.cfg.EvidenceSaturationCount)
		if countScore > 1.0 {
			countScore = 1.0
		}
	}

	score := s.cfg.EvidenceCountWeight*countScore +
		s.cfg.ClassificationConfidenceWeight*input.MeanConfidence +
		s.cfg.PMVerdictWeight*pmVerdictScore(input.PMDecision, input.PMFailSafe)

	return score
}

// pmVerdictScore rewards a clean keep_together verdict, discounts a
// fail-safe default (the LLM didn't actually vouch for coherence), and
// zeroes out a reject.
func pmVerdictScore(decision string, failSafe bool) float64 {
	switch decision {
	case pmreview.DecisionReject:
		return 0.0
	case pmreview.DecisionSplit:
		return 0.7
	case pmreview.DecisionKeepTogether:
		if failSafe {
			return 0.8
		}
		return 1.0
	default:
		return 0.5
	}
}

// ConfidenceValue maps a Stage1/Stage2 confidence label to a numeric score
// in [0,1], for averaging across a candidate's conversations.
func ConfidenceValue(level string) float64 {
	switch level {
	case models.ConfidenceHigh:
		return 1.0
	case models.ConfidenceMedium:
		return 0.6
	case models.ConfidenceLow:
		return 0.3
	default:
		return 0.3
	}
}
