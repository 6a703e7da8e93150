package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"task-points/internal/model"
)

// RuleRepository handles points rule persistence. Rules are created and
// edited by a guardian role and read-only to the engine.
type RuleRepository struct {
	db DB
}

// NewRuleRepository creates a new RuleRepository instance.
func NewRuleRepository(db DB) *RuleRepository {
	return &RuleRepository{db: db}
}

const ruleColumns = `id, category, activity, base_points, bonus_rules, daily_limit, multipliers, is_active, created_at, updated_at`

func scanRule(row pgx.Row) (*model.PointsRule, error) {
	var (
		rule       model.PointsRule
		bonusRaw   []byte
		multMapRaw []byte
	)
	err := row.Scan(
		&rule.ID,
		&rule.Category,
		&rule.Activity,
		&rule.BasePoints,
		&bonusRaw,
		&rule.DailyLimit,
		&multMapRaw,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	if len(bonusRaw) > 0 {
		if err := json.Unmarshal(bonusRaw, &rule.BonusRules); err != nil {
			return nil, fmt.Errorf("failed to decode bonus rules: %w", err)
		}
	}
	if len(multMapRaw) > 0 {
		var mult model.Multipliers
		if err := json.Unmarshal(multMapRaw, &mult); err != nil {
			return nil, fmt.Errorf("failed to decode multipliers: %w", err)
		}
		rule.Multipliers = &mult
	}
	return &rule, nil
}

// Create stores a new points rule as the active version for its
// (category, activity) pair, deactivating any previous active rule.
func (r *RuleRepository) Create(ctx context.Context, rule *model.PointsRule) (*model.PointsRule, error) {
	bonusRaw, err := json.Marshal(rule.BonusRules)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bonus rules: %w", err)
	}
	var multRaw []byte
	if rule.Multipliers != nil {
		multRaw, err = json.Marshal(rule.Multipliers)
		if err != nil {
			return nil, fmt.Errorf("failed to encode multipliers: %w", err)
		}
	}

	const deactivate = `
		UPDATE points_rules
		SET is_active = FALSE, updated_at = NOW()
		WHERE category = $1 AND activity = $2 AND is_active
	`
	if _, err := r.db.Exec(ctx, deactivate, rule.Category, rule.Activity); err != nil {
		return nil, fmt.Errorf("failed to deactivate previous rule: %w", err)
	}

	query := `
		INSERT INTO points_rules (category, activity, base_points, bonus_rules, daily_limit, multipliers, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW())
		RETURNING ` + ruleColumns

	created, err := scanRule(r.db.QueryRow(ctx, query,
		rule.Category, rule.Activity, rule.BasePoints, bonusRaw, rule.DailyLimit, multRaw))
	if err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}
	return created, nil
}

// FindActive retrieves the active rule for a (category, activity) pair.
// Returns ErrRuleNotFound if no active rule matches.
func (r *RuleRepository) FindActive(ctx context.Context, category, activity string) (*model.PointsRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM points_rules
		WHERE category = $1 AND activity = $2 AND is_active
		LIMIT 1
	`

	rule, err := scanRule(r.db.QueryRow(ctx, query, category, activity))
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find rule: %w", err)
	}
	return rule, nil
}

// FindActiveByActivity retrieves the active rule for an activity
// regardless of category. The daily limit checker uses this to resolve
// per-activity caps.
func (r *RuleRepository) FindActiveByActivity(ctx context.Context, activity string) (*model.PointsRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM points_rules
		WHERE activity = $1 AND is_active
		LIMIT 1
	`

	rule, err := scanRule(r.db.QueryRow(ctx, query, activity))
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find rule: %w", err)
	}
	return rule, nil
}

// ListActive retrieves every active rule, for summary breakdowns and the
// guardian rule listing.
func (r *RuleRepository) ListActive(ctx context.Context) ([]*model.PointsRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM points_rules
		WHERE is_active
		ORDER BY category, activity
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var result []*model.PointsRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		result = append(result, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return result, nil
}
