// Property-based tests for the combined limit check.
package service

import (
	"testing"

	"pgregory.net/rapid"

	"task-points/internal/model"
)

// For any pair of checks, the combined allowance never exceeds either
// individual allowance or the requested amount.
func TestCombineMostRestrictiveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		requested := rapid.Int64Range(1, 100).Draw(t, "requested")
		dailyAllow := rapid.Int64Range(0, requested).Draw(t, "dailyAllow")
		weeklyAllow := rapid.Int64Range(0, requested).Draw(t, "weeklyAllow")

		d := model.DailyCheck{CanAdd: dailyAllow > 0, MaxCanAdd: dailyAllow}
		w := model.WeeklyCheck{CanAdd: weeklyAllow > 0, MaxCanAdd: weeklyAllow}

		check := combine(d, w, requested)

		if check.MaxCanAdd > dailyAllow || check.MaxCanAdd > weeklyAllow {
			t.Fatalf("combined %d exceeds daily %d or weekly %d", check.MaxCanAdd, dailyAllow, weeklyAllow)
		}
		if check.MaxCanAdd > requested {
			t.Fatalf("combined %d exceeds requested %d", check.MaxCanAdd, requested)
		}
		if check.CanAdd != (check.MaxCanAdd > 0) {
			t.Fatalf("canAdd=%v inconsistent with maxCanAdd=%d", check.CanAdd, check.MaxCanAdd)
		}
		if check.CanAdd && check.MaxCanAdd == requested && check.LimitedBy != model.LimitedByNone {
			t.Fatalf("full grant should not report a limit, got %s", check.LimitedBy)
		}
	})
}

// For any exhausted combination, a limit source is always named.
func TestCombineNamesLimitProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		requested := rapid.Int64Range(1, 100).Draw(t, "requested")
		dailyAllow := rapid.Int64Range(0, requested-1).Draw(t, "dailyAllow")
		weeklyAllow := rapid.Int64Range(0, requested-1).Draw(t, "weeklyAllow")

		d := model.DailyCheck{CanAdd: dailyAllow > 0, MaxCanAdd: dailyAllow}
		w := model.WeeklyCheck{CanAdd: weeklyAllow > 0, MaxCanAdd: weeklyAllow}

		check := combine(d, w, requested)

		if check.LimitedBy == model.LimitedByNone {
			t.Fatalf("partial grant %d of %d must name its limit", check.MaxCanAdd, requested)
		}
	})
}
