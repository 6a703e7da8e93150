package service

import (
	"context"
	"errors"

	"task-points/internal/model"
	"task-points/internal/repository"
	"task-points/internal/rules"
)

// ComputeRequest describes one task completion to price.
type ComputeRequest struct {
	UserID   int64
	Category string
	Activity string
	Attrs    rules.Attributes
}

// ComputeService prices task completions against the active rules. It
// is a pure read; Award is where the priced points actually land.
type ComputeService struct {
	users *repository.UserRepository
	rules RuleFinder
}

func NewComputeService(users *repository.UserRepository, finder RuleFinder) *ComputeService {
	return &ComputeService{users: users, rules: finder}
}

// Compute resolves the rule for the request and prices it. Rule lookup
// tries the exact category and activity pair first, then any active
// rule for the activity. No rule at all prices to the one-point
// fallback rather than failing.
func (s *ComputeService) Compute(ctx context.Context, req ComputeRequest) (rules.Result, error) {
	medals := model.MedalSet{}
	if req.UserID != 0 {
		user, err := s.users.GetByID(ctx, req.UserID)
		if err != nil {
			return rules.Result{}, err
		}
		medals = user.Medals()
	}

	rule, err := s.rules.FindActive(ctx, req.Category, req.Activity)
	if errors.Is(err, repository.ErrRuleNotFound) {
		rule, err = s.rules.FindActiveByActivity(ctx, req.Activity)
	}
	if errors.Is(err, repository.ErrRuleNotFound) {
		return rules.DefaultResult(), nil
	}
	if err != nil {
		return rules.Result{}, err
	}
	return rules.Compute(rule, req.Attrs, medals), nil
}
