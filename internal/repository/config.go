package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"task-points/internal/model"
)

// BalanceConfigRepository handles the global balance tunables. One config
// version is active at a time.
type BalanceConfigRepository struct {
	db DB
}

// NewBalanceConfigRepository creates a new BalanceConfigRepository instance.
func NewBalanceConfigRepository(db DB) *BalanceConfigRepository {
	return &BalanceConfigRepository{db: db}
}

const configColumns = `id, weekly_accumulation_limit, base_game_time_minutes, points_to_minutes_ratio, is_active, created_at, updated_at`

func scanConfig(row pgx.Row) (*model.BalanceConfig, error) {
	var cfg model.BalanceConfig
	err := row.Scan(
		&cfg.ID,
		&cfg.WeeklyAccumulationLimit,
		&cfg.BaseGameTimeMinutes,
		&cfg.PointsToMinutesRatio,
		&cfg.IsActive,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// Activate stores a new config version and deactivates all previous ones.
func (r *BalanceConfigRepository) Activate(ctx context.Context, cfg *model.BalanceConfig) (*model.BalanceConfig, error) {
	const deactivate = `UPDATE balance_configs SET is_active = FALSE, updated_at = NOW() WHERE is_active`
	if _, err := r.db.Exec(ctx, deactivate); err != nil {
		return nil, fmt.Errorf("failed to deactivate previous configs: %w", err)
	}

	query := `
		INSERT INTO balance_configs (weekly_accumulation_limit, base_game_time_minutes, points_to_minutes_ratio, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, NOW(), NOW())
		RETURNING ` + configColumns

	created, err := scanConfig(r.db.QueryRow(ctx, query,
		cfg.WeeklyAccumulationLimit, cfg.BaseGameTimeMinutes, cfg.PointsToMinutesRatio))
	if err != nil {
		return nil, fmt.Errorf("failed to create config: %w", err)
	}
	return created, nil
}

// FindActiveConfig retrieves the currently active config.
// Returns ErrConfigNotFound when none is configured; callers fall back to
// engine defaults in that case.
func (r *BalanceConfigRepository) FindActiveConfig(ctx context.Context) (*model.BalanceConfig, error) {
	query := `SELECT ` + configColumns + ` FROM balance_configs WHERE is_active LIMIT 1`

	cfg, err := scanConfig(r.db.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find active config: %w", err)
	}
	return cfg, nil
}
