package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"task-points/internal/model"
)

// RedemptionRepository handles prize redemption requests.
type RedemptionRepository struct {
	db DB
}

// NewRedemptionRepository creates a new RedemptionRepository instance.
func NewRedemptionRepository(db DB) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *RedemptionRepository) WithTx(tx pgx.Tx) *RedemptionRepository {
	return &RedemptionRepository{db: tx}
}

const redemptionColumns = `id, user_id, reward_title, reward_description, points_cost, status, requested_at, processed_at, processed_by, notes`

func scanRedemption(row pgx.Row) (*model.Redemption, error) {
	var red model.Redemption
	err := row.Scan(
		&red.ID,
		&red.UserID,
		&red.RewardTitle,
		&red.RewardDescription,
		&red.PointsCost,
		&red.Status,
		&red.RequestedAt,
		&red.ProcessedAt,
		&red.ProcessedBy,
		&red.Notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRedemptionNotFound
		}
		return nil, err
	}
	return &red, nil
}

// Create inserts a new pending redemption.
func (r *RedemptionRepository) Create(ctx context.Context, userID int64, title, description string, pointsCost int64) (*model.Redemption, error) {
	query := `
		INSERT INTO redemptions (id, user_id, reward_title, reward_description, points_cost, status, requested_at, notes)
		VALUES ($1, $2, $3, $4, $5, 'pending', NOW(), '')
		RETURNING ` + redemptionColumns

	red, err := scanRedemption(r.db.QueryRow(ctx, query, uuid.New(), userID, title, description, pointsCost))
	if err != nil {
		return nil, fmt.Errorf("failed to create redemption: %w", err)
	}
	return red, nil
}

// GetForUpdate retrieves a redemption and takes its row lock, so a
// concurrent double decision cannot both see status pending.
func (r *RedemptionRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Redemption, error) {
	query := `SELECT ` + redemptionColumns + ` FROM redemptions WHERE id = $1 FOR UPDATE`

	red, err := scanRedemption(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrRedemptionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to lock redemption: %w", err)
	}
	return red, nil
}

// UpdateStatus marks a redemption approved or rejected.
func (r *RedemptionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, processedBy int64, notes string) (*model.Redemption, error) {
	query := `
		UPDATE redemptions
		SET status = $2, processed_at = NOW(), processed_by = $3, notes = $4
		WHERE id = $1
		RETURNING ` + redemptionColumns

	red, err := scanRedemption(r.db.QueryRow(ctx, query, id, status, processedBy, notes))
	if err != nil {
		if errors.Is(err, ErrRedemptionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update redemption: %w", err)
	}
	return red, nil
}

// ListByUser retrieves a user's redemptions, newest first.
func (r *RedemptionRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Redemption, error) {
	query := `
		SELECT ` + redemptionColumns + `
		FROM redemptions
		WHERE user_id = $1
		ORDER BY requested_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []*model.Redemption
	for rows.Next() {
		red, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		redemptions = append(redemptions, red)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating redemptions: %w", err)
	}
	return redemptions, nil
}
