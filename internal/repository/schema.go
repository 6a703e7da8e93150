package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations are applied in order; each statement is idempotent.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "users",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				id BIGINT PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				points BIGINT NOT NULL DEFAULT 0,
				bronze_medal BOOLEAN NOT NULL DEFAULT FALSE,
				silver_medal BOOLEAN NOT NULL DEFAULT FALSE,
				gold_medal BOOLEAN NOT NULL DEFAULT FALSE,
				diamond_medal BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		name: "points_rules",
		sql: `
			CREATE TABLE IF NOT EXISTS points_rules (
				id BIGSERIAL PRIMARY KEY,
				category VARCHAR(100) NOT NULL,
				activity VARCHAR(100) NOT NULL,
				base_points BIGINT NOT NULL,
				bonus_rules JSONB NOT NULL DEFAULT '[]'::jsonb,
				daily_limit BIGINT,
				multipliers JSONB,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_points_rules_active
				ON points_rules(category, activity) WHERE is_active;
			CREATE INDEX IF NOT EXISTS idx_points_rules_activity
				ON points_rules(activity) WHERE is_active;
		`,
	},
	{
		name: "balance_configs",
		sql: `
			CREATE TABLE IF NOT EXISTS balance_configs (
				id BIGSERIAL PRIMARY KEY,
				weekly_accumulation_limit BIGINT NOT NULL,
				base_game_time_minutes BIGINT NOT NULL,
				points_to_minutes_ratio BIGINT NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		name: "daily_limit_records",
		sql: `
			CREATE TABLE IF NOT EXISTS daily_limit_records (
				user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				date CHAR(10) NOT NULL,
				activity_points JSONB NOT NULL DEFAULT '{}'::jsonb,
				total_daily_points BIGINT NOT NULL DEFAULT 0,
				game_time_used BIGINT NOT NULL DEFAULT 0,
				game_time_available BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (user_id, date)
			);
		`,
	},
	{
		name: "ledger_entries",
		sql: `
			CREATE TABLE IF NOT EXISTS ledger_entries (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				type VARCHAR(10) NOT NULL CHECK (type IN ('earn', 'spend')),
				amount BIGINT NOT NULL,
				reason TEXT NOT NULL,
				previous_total BIGINT NOT NULL,
				new_total BIGINT NOT NULL,
				metadata JSONB,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_ledger_user_time
				ON ledger_entries(user_id, created_at DESC);
		`,
	},
	{
		name: "game_time_exchanges",
		sql: `
			CREATE TABLE IF NOT EXISTS game_time_exchanges (
				id UUID PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				date CHAR(10) NOT NULL,
				points_spent BIGINT NOT NULL,
				game_type VARCHAR(20) NOT NULL,
				minutes_granted BIGINT NOT NULL,
				minutes_used BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_exchanges_user_date
				ON game_time_exchanges(user_id, date);
		`,
	},
	{
		name: "redemptions",
		sql: `
			CREATE TABLE IF NOT EXISTS redemptions (
				id UUID PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				reward_title VARCHAR(255) NOT NULL,
				reward_description TEXT NOT NULL DEFAULT '',
				points_cost BIGINT NOT NULL,
				status VARCHAR(10) NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
				requested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				processed_at TIMESTAMPTZ,
				processed_by BIGINT,
				notes TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_redemptions_user
				ON redemptions(user_id, requested_at DESC);
		`,
	},
}

// Migrate applies the database schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
	}
	return nil
}
