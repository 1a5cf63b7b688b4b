package orchestrator

import (
	"testing"

	"github.com/feedforward/feedforward/pkg/classifier"
	"github.com/feedforward/feedforward/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestExcerpt_TruncatesLongText(t *testing.T) {
	long := ""
	for i := 0; i < excerptMaxLen+50; i++ {
		long += "a"
	}
	result := excerpt(long)
	assert.LessOrEqual(t, len(result), excerptMaxLen+len("…"))
	assert.True(t, len(result) < len(long))
}

func TestExcerpt_ShortTextUnchanged(t *testing.T) {
	assert.Equal(t, "hello", excerpt("  hello  "))
}

func classification(stage1Conf string, stage2Conf string) *classifier.ClassificationResult {
	cr := &classifier.ClassificationResult{
		Stage1: models.Stage1Result{Type: models.TypeBilling, Confidence: stage1Conf},
	}
	if stage2Conf != "" {
		cr.Stage2 = &models.Stage2Result{Type: models.TypeProductIssue, Confidence: stage2Conf}
	}
	return cr
}

func TestEffectiveConfidence_PrefersStage2(t *testing.T) {
	cr := classification(models.ConfidenceLow, models.ConfidenceHigh)
	assert.Equal(t, models.ConfidenceHigh, effectiveConfidence(cr))
}

func TestEffectiveConfidence_FallsBackToStage1(t *testing.T) {
	cr := classification(models.ConfidenceMedium, "")
	assert.Equal(t, models.ConfidenceMedium, effectiveConfidence(cr))
}

func TestMeanConfidence_AveragesAcrossGroup(t *testing.T) {
	byID := map[string]*classifier.ClassificationResult{
		"c1": classification(models.ConfidenceHigh, ""),
		"c2": classification(models.ConfidenceLow, ""),
	}
	got := meanConfidence([]string{"c1", "c2"}, byID)
	assert.InDelta(t, 0.65, got, 0.001)
}

func TestMeanConfidence_SkipsMissingIDs(t *testing.T) {
	byID := map[string]*classifier.ClassificationResult{
		"c1": classification(models.ConfidenceHigh, ""),
	}
	got := meanConfidence([]string{"c1", "missing"}, byID)
	assert.InDelta(t, 1.0, got, 0.001)
}

func TestMeanConfidence_EmptyGroupIsZero(t *testing.T) {
	assert.Equal(t, 0.0, meanConfidence(nil, map[string]*classifier.ClassificationResult{}))
}

func TestIsActionable_UnclassifiedIsNotActionable(t *testing.T) {
	cr := classification(models.ConfidenceHigh, "")
	cr.Unclassified = true
	assert.False(t, isActionable(cr))
}

func TestIsActionable_ChurnRiskIsNotActionable(t *testing.T) {
	cr := &classifier.ClassificationResult{Stage1: models.Stage1Result{Type: models.TypeChurnRisk, Confidence: models.ConfidenceHigh}}
	assert.False(t, isActionable(cr))
}

func TestIsActionable_BillingAloneIsNotActionable(t *testing.T) {
	cr := classification(models.ConfidenceHigh, "")
	assert.False(t, isActionable(cr))
}

func TestIsActionable_ProductIssueStage2IsActionable(t *testing.T) {
	cr := classification(models.ConfidenceHigh, models.ConfidenceHigh)
	assert.True(t, isActionable(cr))
}

func TestTitleFor_PrefersSymptom(t *testing.T) {
	assert.Equal(t, "login fails after SSO redirect", titleFor("login fails after SSO redirect", "bug_report", "auth"))
}

func TestTitleFor_FallsBackToActionTypeAndComponent(t *testing.T) {
	assert.Equal(t, "bug_report: auth", titleFor("", "bug_report", "auth"))
}

func TestTitleFor_FallsBackToActionTypeAlone(t *testing.T) {
	assert.Equal(t, "bug_report", titleFor("", "bug_report", ""))
}

func TestErrorTally_CountsAndKeepsFirstSample(t *testing.T) {
	tally := newErrorTally()
	tally.add("llm_error", "first failure")
	tally.add("llm_error", "second failure")
	tally.add("fetch_failure", "timeout")

	entries := tally.entries()
	assert.Len(t, entries, 2)

	byCategory := make(map[string]int)
	samples := make(map[string]string)
	for _, e := range entries {
		byCategory[e.Category] = e.Count
		samples[e.Category] = e.SampleMessage
	}
	assert.Equal(t, 2, byCategory["llm_error"])
	assert.Equal(t, "first failure", samples["llm_error"])
	assert.Equal(t, 1, byCategory["fetch_failure"])
}

func TestErrorTally_EmptyReturnsNil(t *testing.T) {
	assert.Nil(t, newErrorTally().entries())
}
