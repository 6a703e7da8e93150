// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrRuleNotFound       = errors.New("points rule not found")
	ErrConfigNotFound     = errors.New("balance config not found")
	ErrRedemptionNotFound = errors.New("redemption not found")
)

// DB is the subset of pgx operations shared by *pgxpool.Pool and pgx.Tx,
// so every repository method can run standalone or inside a transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
