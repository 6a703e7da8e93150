package service

import (
	"context"
	"errors"
	"fmt"

	"task-points/internal/model"
	"task-points/internal/repository"
)

// ActivityBreakdown is one activity's daily progress against its sub-cap.
type ActivityBreakdown struct {
	Points     int64  `json:"points"`
	DailyLimit *int64 `json:"dailyLimit,omitempty"`
}

// DailySummary reports today's accumulation.
type DailySummary struct {
	Date       string                       `json:"date"`
	Total      int64                        `json:"total"`
	Limit      int64                        `json:"limit"`
	Remaining  int64                        `json:"remaining"`
	Activities map[string]ActivityBreakdown `json:"activities"`
}

// WeeklySummary reports the current week's accumulation.
type WeeklySummary struct {
	WeekStartDate string `json:"weekStartDate"`
	WeekEndDate   string `json:"weekEndDate"`
	Total         int64  `json:"total"`
	Limit         int64  `json:"limit"`
	Remaining     int64  `json:"remaining"`
}

// Summary is a user's full points snapshot for one date.
type Summary struct {
	UserID      int64         `json:"userId"`
	TotalPoints int64         `json:"totalPoints"`
	Daily       DailySummary  `json:"daily"`
	Weekly      WeeklySummary `json:"weekly"`
}

// GameTimeStats reports a user's game time position for one date.
type GameTimeStats struct {
	Date             string `json:"date"`
	AvailableMinutes int64  `json:"availableMinutes"`
	UsedMinutes      int64  `json:"usedMinutes"`
	WeekMinutes      int64  `json:"weekMinutes"`
	MinutesRatio     int64  `json:"minutesRatio"`
}

// SummaryService assembles read-only views of a user's points position.
// All reads go through the pool; numbers may lag a concurrent award by
// one transaction, which is fine for display.
type SummaryService struct {
	users       *repository.UserRepository
	daily       *repository.DailyRecordRepository
	ledger      *repository.LedgerRepository
	exchanges   *repository.ExchangeRepository
	redemptions *repository.RedemptionRepository
	rules       RuleFinder
	limits      *LimitService
}

func NewSummaryService(
	users *repository.UserRepository,
	daily *repository.DailyRecordRepository,
	ledger *repository.LedgerRepository,
	exchanges *repository.ExchangeRepository,
	redemptions *repository.RedemptionRepository,
	rules RuleFinder,
	limits *LimitService,
) *SummaryService {
	return &SummaryService{
		users:       users,
		daily:       daily,
		ledger:      ledger,
		exchanges:   exchanges,
		redemptions: redemptions,
		rules:       rules,
		limits:      limits,
	}
}

// PointsSummary returns the user's balance plus daily and weekly
// positions for date.
func (s *SummaryService) PointsSummary(ctx context.Context, userID int64, date string) (*Summary, error) {
	if !validDate(date) {
		return nil, ErrInvalidDate
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	start, end, err := weekWindow(date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	rec, err := s.daily.Get(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("load daily record: %w", err)
	}
	dailyCap := s.limits.limits.DailyCap
	daily := DailySummary{
		Date:       date,
		Limit:      dailyCap,
		Remaining:  dailyCap,
		Activities: map[string]ActivityBreakdown{},
	}
	if rec != nil {
		daily.Total = rec.TotalDailyPoints
		daily.Remaining = max(0, dailyCap-rec.TotalDailyPoints)
		for activity, points := range rec.ActivityPoints {
			breakdown := ActivityBreakdown{Points: points}
			rule, err := s.rules.FindActiveByActivity(ctx, activity)
			switch {
			case err == nil:
				breakdown.DailyLimit = rule.DailyLimit
			case !errors.Is(err, repository.ErrRuleNotFound):
				return nil, fmt.Errorf("find rule for %q: %w", activity, err)
			}
			daily.Activities[activity] = breakdown
		}
	}

	weekLimit, err := s.limits.weeklyLimit(ctx)
	if err != nil {
		return nil, fmt.Errorf("load balance config: %w", err)
	}
	weekTotal, err := s.daily.SumRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("sum week %s..%s: %w", start, end, err)
	}

	return &Summary{
		UserID:      userID,
		TotalPoints: user.Points,
		Daily:       daily,
		Weekly: WeeklySummary{
			WeekStartDate: start,
			WeekEndDate:   end,
			Total:         weekTotal,
			Limit:         weekLimit,
			Remaining:     max(0, weekLimit-weekTotal),
		},
	}, nil
}

// GameTime returns the user's game time position for date.
func (s *SummaryService) GameTime(ctx context.Context, userID int64, date string) (*GameTimeStats, error) {
	if !validDate(date) {
		return nil, ErrInvalidDate
	}
	if ok, err := s.users.Exists(ctx, userID); err != nil {
		return nil, err
	} else if !ok {
		return nil, repository.ErrUserNotFound
	}

	stats := &GameTimeStats{
		Date:             date,
		AvailableMinutes: s.limits.baseGameTime(ctx),
		MinutesRatio:     s.limits.minutesRatio(ctx),
	}
	rec, err := s.daily.Get(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("load daily record: %w", err)
	}
	if rec != nil {
		stats.AvailableMinutes = rec.GameTimeAvailable
		stats.UsedMinutes = rec.GameTimeUsed
	}

	start, end, err := weekWindow(date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	weekMinutes, err := s.exchanges.SumMinutesForRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("sum exchanges %s..%s: %w", start, end, err)
	}
	stats.WeekMinutes = weekMinutes
	return stats, nil
}

// Ledger returns the user's most recent balance changes, newest first.
func (s *SummaryService) Ledger(ctx context.Context, userID int64, limit int) ([]*model.LedgerEntry, error) {
	if ok, err := s.users.Exists(ctx, userID); err != nil {
		return nil, err
	} else if !ok {
		return nil, repository.ErrUserNotFound
	}
	return s.ledger.ListByUser(ctx, userID, limit)
}

// Redemptions returns the user's redemption requests, newest first.
func (s *SummaryService) Redemptions(ctx context.Context, userID int64, limit int) ([]*model.Redemption, error) {
	if ok, err := s.users.Exists(ctx, userID); err != nil {
		return nil, err
	} else if !ok {
		return nil, repository.ErrUserNotFound
	}
	return s.redemptions.ListByUser(ctx, userID, limit)
}
