package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-points/internal/model"
)

func TestWeekWindow(t *testing.T) {
	tests := []struct {
		date  string
		start string
		end   string
	}{
		{"2026-08-26", "2026-08-24", "2026-08-30"}, // Wednesday
		{"2026-08-24", "2026-08-24", "2026-08-30"}, // Monday
		{"2026-08-30", "2026-08-24", "2026-08-30"}, // Sunday
		{"2026-01-01", "2025-12-29", "2026-01-04"}, // week spans a year boundary
	}
	for _, tt := range tests {
		start, end, err := weekWindow(tt.date)
		require.NoError(t, err)
		assert.Equal(t, tt.start, start, "start of week for %s", tt.date)
		assert.Equal(t, tt.end, end, "end of week for %s", tt.date)
	}

	_, _, err := weekWindow("26/08/2026")
	assert.Error(t, err)
}

func TestValidDate(t *testing.T) {
	assert.True(t, validDate("2026-08-26"))
	assert.False(t, validDate("2026-8-26"))
	assert.False(t, validDate("26-08-2026"))
	assert.False(t, validDate(""))
	assert.False(t, validDate("2026-02-30"))
}

func dailyCheck(canAdd bool, maxCanAdd int64) model.DailyCheck {
	return model.DailyCheck{CanAdd: canAdd, MaxCanAdd: maxCanAdd, DailyLimit: 20}
}

func weeklyCheck(canAdd bool, maxCanAdd int64) model.WeeklyCheck {
	return model.WeeklyCheck{CanAdd: canAdd, MaxCanAdd: maxCanAdd, WeeklyLimit: 100}
}

func TestCombine_BothOpen(t *testing.T) {
	check := combine(dailyCheck(true, 10), weeklyCheck(true, 10), 10)
	assert.True(t, check.CanAdd)
	assert.Equal(t, int64(10), check.MaxCanAdd)
	assert.Equal(t, model.LimitedByNone, check.LimitedBy)
	assert.Empty(t, check.Reason)
}

func TestCombine_DailyClamps(t *testing.T) {
	check := combine(dailyCheck(true, 5), weeklyCheck(true, 10), 10)
	assert.True(t, check.CanAdd)
	assert.Equal(t, int64(5), check.MaxCanAdd)
	assert.Equal(t, model.LimitedByDaily, check.LimitedBy)
	assert.NotEmpty(t, check.Reason)
}

func TestCombine_WeeklyClamps(t *testing.T) {
	check := combine(dailyCheck(true, 10), weeklyCheck(true, 5), 10)
	assert.True(t, check.CanAdd)
	assert.Equal(t, int64(5), check.MaxCanAdd)
	assert.Equal(t, model.LimitedByWeekly, check.LimitedBy)
}

func TestCombine_TieReportsDaily(t *testing.T) {
	check := combine(dailyCheck(true, 5), weeklyCheck(true, 5), 10)
	assert.Equal(t, model.LimitedByDaily, check.LimitedBy)
}

func TestCombine_PartialActivityHeadroomReportsDaily(t *testing.T) {
	limit, current := int64(8), int64(4)
	d := model.DailyCheck{
		CanAdd:               true,
		MaxCanAdd:            4,
		CurrentDailyTotal:    10,
		DailyLimit:           20,
		ActivityLimit:        &limit,
		CurrentActivityTotal: &current,
	}
	check := combine(d, weeklyCheck(true, 10), 10)
	assert.True(t, check.CanAdd)
	assert.Equal(t, int64(4), check.MaxCanAdd)
	assert.Equal(t, model.LimitedByDaily, check.LimitedBy)
}

func TestCombine_DailyExhausted(t *testing.T) {
	d := dailyCheck(false, 0)
	d.Reason = "daily point limit reached"
	check := combine(d, weeklyCheck(true, 10), 10)
	assert.False(t, check.CanAdd)
	assert.Equal(t, int64(0), check.MaxCanAdd)
	assert.Equal(t, model.LimitedByDaily, check.LimitedBy)
	assert.Equal(t, "daily point limit reached", check.Reason)
}

func TestCombine_ActivityExhausted(t *testing.T) {
	limit, current := int64(8), int64(8)
	d := model.DailyCheck{
		CurrentDailyTotal:    10,
		DailyLimit:           20,
		ActivityLimit:        &limit,
		CurrentActivityTotal: &current,
		Reason:               "daily limit for reading reached",
	}
	check := combine(d, weeklyCheck(true, 10), 10)
	assert.False(t, check.CanAdd)
	assert.Equal(t, model.LimitedByActivity, check.LimitedBy)
}

func TestCombine_WeeklyExhausted(t *testing.T) {
	w := weeklyCheck(false, 0)
	w.Reason = "weekly point limit reached"
	check := combine(dailyCheck(true, 10), w, 10)
	assert.False(t, check.CanAdd)
	assert.Equal(t, model.LimitedByWeekly, check.LimitedBy)
	assert.Equal(t, "weekly point limit reached", check.Reason)
}
