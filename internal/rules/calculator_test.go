package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"task-points/internal/model"
)

func i64(v int64) *int64   { return &v }
func str(s string) *string { return &s }

func activeRule(base int64) *model.PointsRule {
	return &model.PointsRule{
		Category:   "study",
		Activity:   "reading",
		BasePoints: base,
		IsActive:   true,
	}
}

func TestCompute_NilOrInactiveRule(t *testing.T) {
	fallback := Result{BasePoints: 1, BonusPoints: 0, TotalPoints: 1}

	assert.Equal(t, fallback, Compute(nil, Attributes{}, model.MedalSet{}))

	rule := activeRule(5)
	rule.IsActive = false
	assert.Equal(t, fallback, Compute(rule, Attributes{}, model.MedalSet{}))
}

func TestCompute_BaseOnly(t *testing.T) {
	result := Compute(activeRule(5), Attributes{}, model.MedalSet{})
	assert.Equal(t, Result{BasePoints: 5, BonusPoints: 0, TotalPoints: 5}, result)
}

func TestCompute_WordCountBonus(t *testing.T) {
	rule := activeRule(5)
	rule.BonusRules = []model.BonusRule{
		{Type: model.BonusWordCount, Threshold: 100, BonusPoints: 2},
	}

	// 250 words = 2 full multiples of 100, 2 points each
	result := Compute(rule, Attributes{WordCount: i64(250)}, model.MedalSet{})
	assert.Equal(t, Result{BasePoints: 5, BonusPoints: 4, TotalPoints: 9}, result)

	// Below threshold earns nothing
	result = Compute(rule, Attributes{WordCount: i64(99)}, model.MedalSet{})
	assert.Equal(t, int64(0), result.BonusPoints)

	// Missing attribute earns nothing
	result = Compute(rule, Attributes{}, model.MedalSet{})
	assert.Equal(t, int64(0), result.BonusPoints)
}

func TestCompute_BonusClampedToMax(t *testing.T) {
	rule := activeRule(5)
	rule.BonusRules = []model.BonusRule{
		{Type: model.BonusWordCount, Threshold: 100, BonusPoints: 2, MaxBonus: i64(6)},
	}

	// 400 words would earn 8, clamped to 6
	result := Compute(rule, Attributes{WordCount: i64(400)}, model.MedalSet{})
	assert.Equal(t, int64(6), result.BonusPoints)
	assert.Equal(t, int64(11), result.TotalPoints)
}

func TestCompute_DurationBonus(t *testing.T) {
	rule := activeRule(3)
	rule.BonusRules = []model.BonusRule{
		{Type: model.BonusDuration, Threshold: 30, BonusPoints: 1},
	}

	result := Compute(rule, Attributes{Duration: i64(95)}, model.MedalSet{})
	assert.Equal(t, int64(3), result.BonusPoints)
}

func TestCompute_ZeroThresholdEarnsNothing(t *testing.T) {
	rule := activeRule(3)
	rule.BonusRules = []model.BonusRule{
		{Type: model.BonusDuration, Threshold: 0, BonusPoints: 1},
	}

	result := Compute(rule, Attributes{Duration: i64(100)}, model.MedalSet{})
	assert.Equal(t, int64(0), result.BonusPoints)
}

func TestCompute_QualityBonus(t *testing.T) {
	rule := activeRule(5)
	rule.BonusRules = []model.BonusRule{
		{Type: model.BonusQuality, Threshold: 1, BonusPoints: 3},
	}

	result := Compute(rule, Attributes{Quality: str("excellent")}, model.MedalSet{})
	assert.Equal(t, int64(3), result.BonusPoints)

	// No quality reported, no bonus
	result = Compute(rule, Attributes{}, model.MedalSet{})
	assert.Equal(t, int64(0), result.BonusPoints)

	// Threshold above 1 disables the flat quality bonus
	rule.BonusRules[0].Threshold = 2
	result = Compute(rule, Attributes{Quality: str("excellent")}, model.MedalSet{})
	assert.Equal(t, int64(0), result.BonusPoints)
}

func TestCompute_CompletionNeverScores(t *testing.T) {
	rule := activeRule(5)
	rule.BonusRules = []model.BonusRule{
		{Type: model.BonusCompletion, Threshold: 1, BonusPoints: 100},
	}

	result := Compute(rule, Attributes{Duration: i64(60), WordCount: i64(500)}, model.MedalSet{})
	assert.Equal(t, Result{BasePoints: 5, BonusPoints: 0, TotalPoints: 5}, result)
}

func TestCompute_MultiplierStagesRoundIndividually(t *testing.T) {
	rule := activeRule(5)
	rule.BonusRules = []model.BonusRule{
		{Type: model.BonusWordCount, Threshold: 100, BonusPoints: 2},
	}
	rule.Multipliers = &model.Multipliers{
		Difficulty: map[string]float64{"hard": 1.2},
		Quality:    map[string]float64{"excellent": 1.25},
		Medal:      map[string]float64{"gold": 1.3},
	}

	// 9 -> round(9*1.2)=11 -> round(11*1.25)=14 -> round(14*1.3)=18
	result := Compute(rule, Attributes{
		WordCount:  i64(250),
		Difficulty: str("hard"),
		Quality:    str("excellent"),
	}, model.MedalSet{Gold: true})
	assert.Equal(t, int64(18), result.TotalPoints)
	assert.Equal(t, int64(5), result.BasePoints)
	assert.Equal(t, int64(4), result.BonusPoints)
}

func TestCompute_UnknownMultiplierKeyIsNeutral(t *testing.T) {
	rule := activeRule(10)
	rule.Multipliers = &model.Multipliers{
		Difficulty: map[string]float64{"hard": 2.0},
	}

	result := Compute(rule, Attributes{Difficulty: str("medium")}, model.MedalSet{})
	assert.Equal(t, int64(10), result.TotalPoints)
}

func TestCompute_MedalDefaults(t *testing.T) {
	rule := activeRule(10)
	rule.Multipliers = &model.Multipliers{Medal: map[string]float64{}}

	// Bronze falls back to the builtin 1.1
	result := Compute(rule, Attributes{}, model.MedalSet{Bronze: true})
	assert.Equal(t, int64(11), result.TotalPoints)

	// Bronze and silver compound: 1.1 * 1.2 = 1.32
	result = Compute(rule, Attributes{}, model.MedalSet{Bronze: true, Silver: true})
	assert.Equal(t, int64(13), result.TotalPoints)
}

func TestCompute_MedalTableOverridesDefault(t *testing.T) {
	rule := activeRule(10)
	rule.Multipliers = &model.Multipliers{Medal: map[string]float64{"bronze": 2.0}}

	result := Compute(rule, Attributes{}, model.MedalSet{Bronze: true})
	assert.Equal(t, int64(20), result.TotalPoints)
}

func TestCompute_NoMedalTableSkipsMedalStage(t *testing.T) {
	rule := activeRule(10)
	rule.Multipliers = &model.Multipliers{}

	result := Compute(rule, Attributes{}, model.MedalSet{Diamond: true})
	assert.Equal(t, int64(10), result.TotalPoints)
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, int64(3), roundHalfUp(2.5))
	assert.Equal(t, int64(2), roundHalfUp(2.4))
	assert.Equal(t, int64(11), roundHalfUp(10.8))
}
