// Property-based tests for the points calculator.
package rules

import (
	"testing"

	"pgregory.net/rapid"

	"task-points/internal/model"
)

func drawRule(t *rapid.T) *model.PointsRule {
	rule := &model.PointsRule{
		Category:   "study",
		Activity:   rapid.SampledFrom([]string{"reading", "writing", "exercise"}).Draw(t, "activity"),
		BasePoints: rapid.Int64Range(0, 50).Draw(t, "basePoints"),
		IsActive:   true,
	}
	if rapid.Bool().Draw(t, "hasWordBonus") {
		bonus := model.BonusRule{
			Type:        model.BonusWordCount,
			Threshold:   rapid.Int64Range(1, 500).Draw(t, "threshold"),
			BonusPoints: rapid.Int64Range(0, 10).Draw(t, "bonusPoints"),
		}
		if rapid.Bool().Draw(t, "hasMaxBonus") {
			maxBonus := rapid.Int64Range(0, 20).Draw(t, "maxBonus")
			bonus.MaxBonus = &maxBonus
		}
		rule.BonusRules = append(rule.BonusRules, bonus)
	}
	return rule
}

// For any rule with non-negative base and bonus points, the computed
// total never goes negative.
func TestComputeNonNegativeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rule := drawRule(t)
		wordCount := rapid.Int64Range(0, 10000).Draw(t, "wordCount")
		medals := model.MedalSet{
			Bronze:  rapid.Bool().Draw(t, "bronze"),
			Silver:  rapid.Bool().Draw(t, "silver"),
			Gold:    rapid.Bool().Draw(t, "gold"),
			Diamond: rapid.Bool().Draw(t, "diamond"),
		}

		result := Compute(rule, Attributes{WordCount: &wordCount}, medals)

		if result.BasePoints < 0 || result.BonusPoints < 0 || result.TotalPoints < 0 {
			t.Fatalf("negative result %+v for rule %+v wordCount=%d", result, rule, wordCount)
		}
	})
}

// For any threshold bonus with a max, the earned bonus never exceeds it.
func TestBonusClampProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxBonus := rapid.Int64Range(0, 50).Draw(t, "maxBonus")
		rule := &model.PointsRule{
			BasePoints: rapid.Int64Range(0, 20).Draw(t, "basePoints"),
			IsActive:   true,
			BonusRules: []model.BonusRule{{
				Type:        model.BonusWordCount,
				Threshold:   rapid.Int64Range(1, 100).Draw(t, "threshold"),
				BonusPoints: rapid.Int64Range(1, 10).Draw(t, "bonusPoints"),
				MaxBonus:    &maxBonus,
			}},
		}
		wordCount := rapid.Int64Range(0, 100000).Draw(t, "wordCount")

		result := Compute(rule, Attributes{WordCount: &wordCount}, model.MedalSet{})

		if result.BonusPoints > maxBonus {
			t.Fatalf("bonus %d exceeds max %d", result.BonusPoints, maxBonus)
		}
	})
}

// For any rule without multiplier tables, the total is exactly the base
// plus the earned bonus.
func TestTotalWithoutMultipliersProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rule := drawRule(t)
		rule.Multipliers = nil
		wordCount := rapid.Int64Range(0, 10000).Draw(t, "wordCount")

		result := Compute(rule, Attributes{WordCount: &wordCount}, model.MedalSet{})

		if result.TotalPoints != result.BasePoints+result.BonusPoints {
			t.Fatalf("total %d != base %d + bonus %d", result.TotalPoints, result.BasePoints, result.BonusPoints)
		}
	})
}

// For any word count bonus, more words never earn fewer bonus points.
func TestBonusMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rule := drawRule(t)
		low := rapid.Int64Range(0, 5000).Draw(t, "low")
		delta := rapid.Int64Range(0, 5000).Draw(t, "delta")
		high := low + delta

		lowResult := Compute(rule, Attributes{WordCount: &low}, model.MedalSet{})
		highResult := Compute(rule, Attributes{WordCount: &high}, model.MedalSet{})

		if highResult.BonusPoints < lowResult.BonusPoints {
			t.Fatalf("bonus decreased from %d to %d when words grew from %d to %d",
				lowResult.BonusPoints, highResult.BonusPoints, low, high)
		}
	})
}
