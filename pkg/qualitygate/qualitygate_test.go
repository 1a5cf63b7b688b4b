package qualitygate

import (
	"testing"

	"github.com/feedforward/feedforward/pkg/config"
	"github.com/feedforward/feedforward/pkg/models"
	"github.com/feedforward/feedforward/pkg/pmreview"
	"github.com/stretchr/testify/assert"
)

func testConfig() *config.QualityGateConfig {
	return config.DefaultQualityGateConfig()
}

func TestScorer_Score_HighOnStrongSignals(t *testing.T) {
	s := New(testConfig())
	score := s.Score(ScoreInput{
		ConversationCount: 10,
		MeanConfidence:    1.0,
		PMDecision:        pmreview.DecisionKeepTogether,
	})
	assert.Greater(t, score, 0.9)
}

func TestScorer_Score_LowOnWeakSignals(t *testing.T) {
	s := New(testConfig())
	score := s.Score(ScoreInput{
		ConversationCount: 1,
		MeanConfidence:    0.3,
		PMDecision:        pmreview.DecisionReject,
	})
	assert.Less(t, score, 0.3)
}

func TestScorer_Score_FailSafeVerdictDiscountedVsClean(t *testing.T) {
	s := New(testConfig())
	clean := s.Score(ScoreInput{ConversationCount: 5, MeanConfidence: 0.8, PMDecision: pmreview.DecisionKeepTogether})
	failSafe := s.Score(ScoreInput{ConversationCount: 5, MeanConfidence: 0.8, PMDecision: pmreview.DecisionKeepTogether, PMFailSafe: true})
	assert.Less(t, failSafe, clean)
}

func TestConfidenceValue_MapsKnownLevels(t *testing.T) {
	assert.Equal(t, 1.0, ConfidenceValue(models.ConfidenceHigh))
	assert.Equal(t, 0.6, ConfidenceValue(models.ConfidenceMedium))
	assert.Equal(t, 0.3, ConfidenceValue(models.ConfidenceLow))
}

func validSamples(n int) []EvidenceSample {
	samples := make([]EvidenceSample, n)
	for i := range samples {
		samples[i] = EvidenceSample{ConversationID: "c", Excerpt: "some excerpt"}
	}
	return samples
}

func TestRoute_EvidenceInvalidRejectsRegardlessOfScore(t *testing.T) {
	samples := []EvidenceSample{
		{ConversationID: "placeholder", Excerpt: ""},
		{ConversationID: "c2", Excerpt: "real"},
	}
	result := Route(testConfig(), samples, 0.99, 10, 3)
	assert.Equal(t, RouteReject, result.Decision)
	assert.Equal(t, models.ErrorCategoryEvidenceInvalid, result.Reason)
}

func TestRoute_VeryLowScoreRejectsOutright(t *testing.T) {
	cfg := testConfig()
	result := Route(cfg, validSamples(5), cfg.ManualReviewThreshold-0.1, 5, 3)
	assert.Equal(t, RouteReject, result.Decision)
}

func TestRoute_MidScoreOrphans(t *testing.T) {
	cfg := testConfig()
	mid := (cfg.ManualReviewThreshold + cfg.AutoCreateThreshold) / 2
	result := Route(cfg, validSamples(5), mid, 5, 3)
	assert.Equal(t, RouteOrphan, result.Decision)
	assert.Equal(t, models.ErrorCategoryQualityGateReject, result.Reason)
}

func TestRoute_HighScoreBelowMinGroupSizeOrphans(t *testing.T) {
	cfg := testConfig()
	result := Route(cfg, validSamples(2), cfg.AutoCreateThreshold+0.1, 2, 3)
	assert.Equal(t, RouteOrphan, result.Decision)
	assert.Equal(t, "below_min_group_size", result.Reason)
}

func TestRoute_HighScoreAndSizeCreatesStory(t *testing.T) {
	cfg := testConfig()
	result := Route(cfg, validSamples(5), cfg.AutoCreateThreshold+0.1, 5, 3)
	assert.Equal(t, RouteStory, result.Decision)
}
