package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"task-points/internal/model"
)

const userColumns = `id, name, points, bronze_medal, silver_medal, gold_medal, diamond_medal, created_at, updated_at`

// UserRepository handles user account and point balance persistence.
// The points column is mutated only through IncrementPoints inside the
// engine's transaction.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Points,
		&u.BronzeMedal,
		&u.SilverMedal,
		&u.GoldMedal,
		&u.DiamondMedal,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create creates a new user with a zero point balance and no medals.
func (r *UserRepository) Create(ctx context.Context, id int64, name string) (*model.User, error) {
	query := `
		INSERT INTO users (id, name, points, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, id, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetForUpdate retrieves a user and takes its row lock. Every balance
// mutation for a user starts by locking this row, which serializes the
// check-then-commit sequence per user.
func (r *UserRepository) GetForUpdate(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	return user, nil
}

// IncrementPoints adjusts a user's point balance by delta, which may be
// negative. Returns the updated user.
func (r *UserRepository) IncrementPoints(ctx context.Context, id int64, delta int64) (*model.User, error) {
	query := `
		UPDATE users
		SET points = points + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, id, delta))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update points: %w", err)
	}
	return user, nil
}

// SetMedals updates the user's medal flags.
func (r *UserRepository) SetMedals(ctx context.Context, id int64, medals model.MedalSet) error {
	const query = `
		UPDATE users
		SET bronze_medal = $2, silver_medal = $3, gold_medal = $4, diamond_medal = $5, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, medals.Bronze, medals.Silver, medals.Gold, medals.Diamond)
	if err != nil {
		return fmt.Errorf("failed to set medals: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Exists checks if a user with the given ID exists.
func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}
