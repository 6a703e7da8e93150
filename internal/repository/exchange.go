package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"task-points/internal/model"
)

// ExchangeRepository handles game time exchange records.
type ExchangeRepository struct {
	db DB
}

// NewExchangeRepository creates a new ExchangeRepository instance.
func NewExchangeRepository(db DB) *ExchangeRepository {
	return &ExchangeRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *ExchangeRepository) WithTx(tx pgx.Tx) *ExchangeRepository {
	return &ExchangeRepository{db: tx}
}

const exchangeColumns = `id, user_id, date, points_spent, game_type, minutes_granted, minutes_used, created_at`

func scanExchange(row pgx.Row) (*model.GameTimeExchange, error) {
	var ex model.GameTimeExchange
	err := row.Scan(
		&ex.ID,
		&ex.UserID,
		&ex.Date,
		&ex.PointsSpent,
		&ex.GameType,
		&ex.MinutesGranted,
		&ex.MinutesUsed,
		&ex.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

// Create inserts a new exchange record.
func (r *ExchangeRepository) Create(ctx context.Context, userID int64, date string, pointsSpent int64, gameType string, minutesGranted int64) (*model.GameTimeExchange, error) {
	query := `
		INSERT INTO game_time_exchanges (id, user_id, date, points_spent, game_type, minutes_granted, minutes_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, NOW())
		RETURNING ` + exchangeColumns

	ex, err := scanExchange(r.db.QueryRow(ctx, query, uuid.New(), userID, date, pointsSpent, gameType, minutesGranted))
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange: %w", err)
	}
	return ex, nil
}

// ListByUserAndRange retrieves a user's exchanges over the inclusive
// [start, end] date range, newest first.
func (r *ExchangeRepository) ListByUserAndRange(ctx context.Context, userID int64, start, end string) ([]*model.GameTimeExchange, error) {
	query := `
		SELECT ` + exchangeColumns + `
		FROM game_time_exchanges
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []*model.GameTimeExchange
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		exchanges = append(exchanges, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exchanges: %w", err)
	}
	return exchanges, nil
}

// SumMinutesForRange returns the total minutes granted to a user over the
// inclusive [start, end] date range.
func (r *ExchangeRepository) SumMinutesForRange(ctx context.Context, userID int64, start, end string) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(minutes_granted), 0)
		FROM game_time_exchanges
		WHERE user_id = $1 AND date >= $2 AND date <= $3
	`

	var total int64
	if err := r.db.QueryRow(ctx, query, userID, start, end).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum exchange minutes: %w", err)
	}
	return total, nil
}
