// Package rules implements the points calculator: a pure function from a
// scoring rule, task attributes and the user's medal set to a point award.
package rules

import (
	"math"

	"task-points/internal/model"
)

// Builtin medal multiplier defaults, used when a rule's medal table does
// not override a tier.
const (
	DefaultBronzeFactor  = 1.1
	DefaultSilverFactor  = 1.2
	DefaultGoldFactor    = 1.3
	DefaultDiamondFactor = 1.4
)

// Attributes carries the task event attributes a rule may score on.
// Nil fields mean the attribute was not reported.
type Attributes struct {
	Duration   *int64
	WordCount  *int64
	Quality    *string
	Difficulty *string
}

// Result is the computed point award.
type Result struct {
	BasePoints  int64 `json:"basePoints"`
	BonusPoints int64 `json:"bonusPoints"`
	TotalPoints int64 `json:"totalPoints"`
}

// DefaultResult is the system fallback award, used when no active rule
// matches or the rule store is unavailable. Awarding never fails.
func DefaultResult() Result {
	return Result{BasePoints: 1, BonusPoints: 0, TotalPoints: 1}
}

// Compute calculates the point award for one task event. It is pure and
// has no side effects. A nil or inactive rule yields DefaultResult.
//
// Multiplier stages are applied sequentially, each followed by its own
// half-up rounding, not as one combined product.
func Compute(rule *model.PointsRule, attrs Attributes, medals model.MedalSet) Result {
	if rule == nil || !rule.IsActive {
		return DefaultResult()
	}

	basePoints := rule.BasePoints
	var bonusPoints int64

	for _, bonus := range rule.BonusRules {
		switch bonus.Type {
		case model.BonusWordCount:
			bonusPoints += thresholdBonus(attrs.WordCount, bonus)
		case model.BonusDuration:
			bonusPoints += thresholdBonus(attrs.Duration, bonus)
		case model.BonusQuality:
			if attrs.Quality != nil && bonus.Threshold <= 1 {
				bonusPoints += bonus.BonusPoints
			}
		case model.BonusCompletion:
			// Deprecated rule type: accepted in the schema, never scored.
		}
	}

	total := basePoints + bonusPoints

	if m := rule.Multipliers; m != nil {
		if m.Difficulty != nil && attrs.Difficulty != nil {
			total = roundHalfUp(float64(total) * factor(m.Difficulty, *attrs.Difficulty))
		}
		if m.Quality != nil && attrs.Quality != nil {
			total = roundHalfUp(float64(total) * factor(m.Quality, *attrs.Quality))
		}
		if m.Medal != nil {
			total = roundHalfUp(float64(total) * medalFactor(m.Medal, medals))
		}
	}

	return Result{
		BasePoints:  basePoints,
		BonusPoints: bonusPoints,
		TotalPoints: total,
	}
}

// thresholdBonus scores a word_count or duration clause: every full
// multiple of the threshold earns the bonus, clamped to MaxBonus if set.
func thresholdBonus(value *int64, bonus model.BonusRule) int64 {
	if value == nil || bonus.Threshold <= 0 || *value < bonus.Threshold {
		return 0
	}
	earned := (*value / bonus.Threshold) * bonus.BonusPoints
	if bonus.MaxBonus != nil && earned > *bonus.MaxBonus {
		earned = *bonus.MaxBonus
	}
	return earned
}

// factor looks up a multiplier table entry; a missing key means 1.0.
func factor(table map[string]float64, key string) float64 {
	if f, ok := table[key]; ok {
		return f
	}
	return 1.0
}

// medalFactor compounds the multiplier of every medal the user holds.
func medalFactor(table map[string]float64, medals model.MedalSet) float64 {
	f := 1.0
	if medals.Bronze {
		f *= medalEntry(table, "bronze", DefaultBronzeFactor)
	}
	if medals.Silver {
		f *= medalEntry(table, "silver", DefaultSilverFactor)
	}
	if medals.Gold {
		f *= medalEntry(table, "gold", DefaultGoldFactor)
	}
	if medals.Diamond {
		f *= medalEntry(table, "diamond", DefaultDiamondFactor)
	}
	return f
}

func medalEntry(table map[string]float64, tier string, fallback float64) float64 {
	if f, ok := table[tier]; ok {
		return f
	}
	return fallback
}

// roundHalfUp rounds to the nearest integer, halves away from zero's
// positive side (2.5 -> 3).
func roundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}
