// Package service implements the points engine: limit checking, clamped
// awards, game time exchanges and refunds on top of the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"task-points/internal/model"
	"task-points/internal/repository"
)

// RuleFinder resolves active points rules. Satisfied by both the raw
// repository and the Redis-backed cache.
type RuleFinder interface {
	FindActive(ctx context.Context, category, activity string) (*model.PointsRule, error)
	FindActiveByActivity(ctx context.Context, activity string) (*model.PointsRule, error)
}

// ConfigFinder resolves the active balance config.
type ConfigFinder interface {
	FindActiveConfig(ctx context.Context) (*model.BalanceConfig, error)
}

// Limits carries the engine-level limit defaults. Values come from
// configuration; the active BalanceConfig overrides the weekly limit,
// game time seed and exchange ratio at runtime.
type Limits struct {
	DailyCap            int64
	DefaultWeeklyLimit  int64
	DefaultGameTime     int64
	DefaultMinutesRatio int64
}

const systemErrorReason = "system error"

// LimitService answers "how many points may this user still gain".
// The exported Check methods are advisory reads against the pool; the
// engine re-runs the unexported variants inside its transaction so the
// numbers it clamps against are the ones it commits against.
type LimitService struct {
	daily   *repository.DailyRecordRepository
	rules   RuleFinder
	configs ConfigFinder
	limits  Limits
}

func NewLimitService(daily *repository.DailyRecordRepository, rules RuleFinder, configs ConfigFinder, limits Limits) *LimitService {
	return &LimitService{daily: daily, rules: rules, configs: configs, limits: limits}
}

// baseGameTime returns the active config's game time seed for new daily
// records, or the configured default when no config is active.
func (s *LimitService) baseGameTime(ctx context.Context) int64 {
	cfg, err := s.configs.FindActiveConfig(ctx)
	if err != nil {
		return s.limits.DefaultGameTime
	}
	return cfg.BaseGameTimeMinutes
}

// minutesRatio returns the active points-to-minutes exchange ratio.
func (s *LimitService) minutesRatio(ctx context.Context) int64 {
	cfg, err := s.configs.FindActiveConfig(ctx)
	if err != nil || cfg.PointsToMinutesRatio <= 0 {
		return s.limits.DefaultMinutesRatio
	}
	return cfg.PointsToMinutesRatio
}

// weeklyLimit returns the active config's weekly accumulation limit. A
// missing config falls back to the default; a store failure propagates.
func (s *LimitService) weeklyLimit(ctx context.Context) (int64, error) {
	cfg, err := s.configs.FindActiveConfig(ctx)
	if errors.Is(err, repository.ErrConfigNotFound) {
		return s.limits.DefaultWeeklyLimit, nil
	}
	if err != nil {
		return 0, err
	}
	return cfg.WeeklyAccumulationLimit, nil
}

// CheckDaily reports how many of pointsToAdd the user may still gain
// today. It never returns an error; store failures collapse into a
// refusing result so callers can always act on the answer.
func (s *LimitService) CheckDaily(ctx context.Context, userID int64, date string, pointsToAdd int64, activity string) model.DailyCheck {
	check, err := s.checkDaily(ctx, s.daily, userID, date, pointsToAdd, activity)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Str("date", date).Msg("daily limit check failed")
		return model.DailyCheck{Reason: systemErrorReason, DailyLimit: s.limits.DailyCap}
	}
	return check
}

func (s *LimitService) checkDaily(ctx context.Context, daily *repository.DailyRecordRepository, userID int64, date string, pointsToAdd int64, activity string) (model.DailyCheck, error) {
	if !validDate(date) {
		return model.DailyCheck{}, fmt.Errorf("invalid date %q", date)
	}
	rec, err := daily.Get(ctx, userID, date)
	if err != nil {
		return model.DailyCheck{}, fmt.Errorf("load daily record: %w", err)
	}
	if rec == nil {
		// No record yet; the check runs against a zeroed day. Records are
		// created by the first committed award or spend, never by a check.
		rec = &model.DailyLimitRecord{UserID: userID, Date: date, ActivityPoints: map[string]int64{}}
	}

	check := model.DailyCheck{
		CurrentDailyTotal: rec.TotalDailyPoints,
		DailyLimit:        s.limits.DailyCap,
	}
	if rec.TotalDailyPoints >= s.limits.DailyCap {
		check.Reason = "daily point limit reached"
		return check, nil
	}
	allow := min(pointsToAdd, s.limits.DailyCap-rec.TotalDailyPoints)

	if activity != "" {
		rule, err := s.rules.FindActiveByActivity(ctx, activity)
		switch {
		case errors.Is(err, repository.ErrRuleNotFound):
			// No rule, no activity sub-cap.
		case err != nil:
			return model.DailyCheck{}, fmt.Errorf("find rule for %q: %w", activity, err)
		case rule.DailyLimit != nil:
			actTotal := rec.ActivityPoints[activity]
			check.ActivityLimit = rule.DailyLimit
			check.CurrentActivityTotal = &actTotal
			if actTotal >= *rule.DailyLimit {
				check.Reason = fmt.Sprintf("daily limit for %s reached", activity)
				return check, nil
			}
			allow = min(allow, *rule.DailyLimit-actTotal)
		}
	}

	check.CanAdd = allow > 0
	check.MaxCanAdd = allow
	return check, nil
}

// CheckWeekly reports how many of pointsToAdd fit under the weekly
// accumulation cap for the Monday-to-Sunday window containing date.
func (s *LimitService) CheckWeekly(ctx context.Context, userID int64, date string, pointsToAdd int64) model.WeeklyCheck {
	check, err := s.checkWeekly(ctx, s.daily, userID, date, pointsToAdd)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Str("date", date).Msg("weekly limit check failed")
		return model.WeeklyCheck{Reason: systemErrorReason}
	}
	return check
}

func (s *LimitService) checkWeekly(ctx context.Context, daily *repository.DailyRecordRepository, userID int64, date string, pointsToAdd int64) (model.WeeklyCheck, error) {
	start, end, err := weekWindow(date)
	if err != nil {
		return model.WeeklyCheck{}, fmt.Errorf("invalid date %q", date)
	}
	limit, err := s.weeklyLimit(ctx)
	if err != nil {
		return model.WeeklyCheck{}, fmt.Errorf("load balance config: %w", err)
	}
	total, err := daily.SumRange(ctx, userID, start, end)
	if err != nil {
		return model.WeeklyCheck{}, fmt.Errorf("sum week %s..%s: %w", start, end, err)
	}

	check := model.WeeklyCheck{
		CurrentWeeklyTotal: total,
		WeeklyLimit:        limit,
		WeekStartDate:      start,
		WeekEndDate:        end,
	}
	if total >= limit {
		check.Reason = "weekly point limit reached"
		return check, nil
	}
	allow := min(pointsToAdd, limit-total)
	check.CanAdd = allow > 0
	check.MaxCanAdd = allow
	return check, nil
}

// CheckAll runs the daily and weekly checks concurrently and merges them
// into the most restrictive combined allowance.
func (s *LimitService) CheckAll(ctx context.Context, userID int64, date string, pointsToAdd int64, activity string) model.CombinedCheck {
	var (
		wg     sync.WaitGroup
		daily  model.DailyCheck
		weekly model.WeeklyCheck
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		daily = s.CheckDaily(ctx, userID, date, pointsToAdd, activity)
	}()
	go func() {
		defer wg.Done()
		weekly = s.CheckWeekly(ctx, userID, date, pointsToAdd)
	}()
	wg.Wait()
	return combine(daily, weekly, pointsToAdd)
}

// checkAll is the transactional variant: both checks read through the
// supplied repository, sequentially, so they observe the locked state.
func (s *LimitService) checkAll(ctx context.Context, daily *repository.DailyRecordRepository, userID int64, date string, pointsToAdd int64, activity string) (model.CombinedCheck, error) {
	d, err := s.checkDaily(ctx, daily, userID, date, pointsToAdd, activity)
	if err != nil {
		return model.CombinedCheck{}, err
	}
	w, err := s.checkWeekly(ctx, daily, userID, date, pointsToAdd)
	if err != nil {
		return model.CombinedCheck{}, err
	}
	return combine(d, w, pointsToAdd), nil
}

// combine merges the two checks. Ties between equally restrictive caps
// report the daily one.
func combine(d model.DailyCheck, w model.WeeklyCheck, requested int64) model.CombinedCheck {
	check := model.CombinedCheck{
		DailyCheck:  d,
		WeeklyCheck: w,
		LimitedBy:   model.LimitedByNone,
		MaxCanAdd:   min(d.MaxCanAdd, w.MaxCanAdd),
	}

	switch {
	case check.MaxCanAdd <= 0:
		check.MaxCanAdd = 0
		if !d.CanAdd {
			if d.ActivityCapped() {
				check.LimitedBy = model.LimitedByActivity
			} else {
				check.LimitedBy = model.LimitedByDaily
			}
			check.Reason = d.Reason
		} else {
			check.LimitedBy = model.LimitedByWeekly
			check.Reason = w.Reason
		}
	case check.MaxCanAdd < requested:
		check.CanAdd = true
		// An activity at its cap always lands in the exhausted case above,
		// so a partial grant is attributed to the daily or weekly cap.
		if d.MaxCanAdd <= w.MaxCanAdd {
			check.LimitedBy = model.LimitedByDaily
		} else {
			check.LimitedBy = model.LimitedByWeekly
		}
		check.Reason = fmt.Sprintf("only %d more points can be added", check.MaxCanAdd)
	default:
		check.CanAdd = true
	}
	return check
}
