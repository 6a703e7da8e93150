package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"task-points/internal/model"
	"task-points/internal/repository"
)

// Invalidator drops cached rule and config entries after writes. The
// Redis cache implements it; a no-op suffices when caching is disabled.
type Invalidator interface {
	InvalidateRule(ctx context.Context, category, activity string)
	InvalidateConfig(ctx context.Context)
}

// NopInvalidator satisfies Invalidator when no cache is wired.
type NopInvalidator struct{}

func (NopInvalidator) InvalidateRule(context.Context, string, string) {}
func (NopInvalidator) InvalidateConfig(context.Context)               {}

// AdminService manages the configuration side of the engine: points
// rules, balance configs, users and medals.
type AdminService struct {
	users   *repository.UserRepository
	rules   *repository.RuleRepository
	configs *repository.BalanceConfigRepository
	daily   *repository.DailyRecordRepository
	cache   Invalidator
}

func NewAdminService(
	users *repository.UserRepository,
	rules *repository.RuleRepository,
	configs *repository.BalanceConfigRepository,
	daily *repository.DailyRecordRepository,
	cache Invalidator,
) *AdminService {
	if cache == nil {
		cache = NopInvalidator{}
	}
	return &AdminService{users: users, rules: rules, configs: configs, daily: daily, cache: cache}
}

// CreateRule activates a new rule version for its category and
// activity, deactivating any previous one.
func (s *AdminService) CreateRule(ctx context.Context, rule *model.PointsRule) (*model.PointsRule, error) {
	if rule.Category == "" || rule.Activity == "" {
		return nil, fmt.Errorf("%w: category and activity required", ErrInvalidRule)
	}
	if rule.BasePoints < 0 {
		return nil, fmt.Errorf("%w: base points must not be negative", ErrInvalidRule)
	}
	for _, b := range rule.BonusRules {
		switch b.Type {
		case model.BonusWordCount, model.BonusDuration, model.BonusQuality, model.BonusCompletion:
		default:
			return nil, fmt.Errorf("%w: unknown bonus type %q", ErrInvalidRule, b.Type)
		}
	}
	created, err := s.rules.Create(ctx, rule)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateRule(ctx, created.Category, created.Activity)
	log.Info().
		Str("category", created.Category).
		Str("activity", created.Activity).
		Int64("rule_id", created.ID).
		Msg("points rule activated")
	return created, nil
}

// ListRules returns all active rules.
func (s *AdminService) ListRules(ctx context.Context) ([]*model.PointsRule, error) {
	return s.rules.ListActive(ctx)
}

// ActivateConfig makes cfg the single active balance config.
func (s *AdminService) ActivateConfig(ctx context.Context, cfg *model.BalanceConfig) (*model.BalanceConfig, error) {
	if cfg.WeeklyAccumulationLimit <= 0 || cfg.BaseGameTimeMinutes < 0 || cfg.PointsToMinutesRatio <= 0 {
		return nil, ErrInvalidConfig
	}
	activated, err := s.configs.Activate(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateConfig(ctx)
	log.Info().
		Int64("config_id", activated.ID).
		Int64("weekly_limit", activated.WeeklyAccumulationLimit).
		Int64("minutes_ratio", activated.PointsToMinutesRatio).
		Msg("balance config activated")
	return activated, nil
}

// ActiveConfig returns the active balance config.
func (s *AdminService) ActiveConfig(ctx context.Context) (*model.BalanceConfig, error) {
	return s.configs.FindActiveConfig(ctx)
}

// CreateUser registers a user with a zero balance.
func (s *AdminService) CreateUser(ctx context.Context, id int64, name string) (*model.User, error) {
	return s.users.Create(ctx, id, name)
}

// GetUser returns a user by id.
func (s *AdminService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// SetMedals replaces a user's medal set.
func (s *AdminService) SetMedals(ctx context.Context, id int64, medals model.MedalSet) error {
	return s.users.SetMedals(ctx, id, medals)
}

// ResetDaily wipes a user's daily record for date. Admin recovery only.
func (s *AdminService) ResetDaily(ctx context.Context, userID int64, date string) error {
	if !validDate(date) {
		return ErrInvalidDate
	}
	return s.daily.Reset(ctx, userID, date)
}
