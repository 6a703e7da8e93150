package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"task-points/internal/model"
)

// DailyRecordRepository handles the per-user-per-day point aggregates.
// Records are created lazily and keyed by (user_id, date) with dates as
// YYYY-MM-DD strings in the user's reference timezone.
type DailyRecordRepository struct {
	db DB
}

// NewDailyRecordRepository creates a new DailyRecordRepository instance.
func NewDailyRecordRepository(db DB) *DailyRecordRepository {
	return &DailyRecordRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *DailyRecordRepository) WithTx(tx pgx.Tx) *DailyRecordRepository {
	return &DailyRecordRepository{db: tx}
}

const dailyColumns = `user_id, date, activity_points, total_daily_points, game_time_used, game_time_available, created_at, updated_at`

func scanDaily(row pgx.Row) (*model.DailyLimitRecord, error) {
	var (
		rec         model.DailyLimitRecord
		activityRaw []byte
	)
	err := row.Scan(
		&rec.UserID,
		&rec.Date,
		&activityRaw,
		&rec.TotalDailyPoints,
		&rec.GameTimeUsed,
		&rec.GameTimeAvailable,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.ActivityPoints = map[string]int64{}
	if len(activityRaw) > 0 {
		if err := json.Unmarshal(activityRaw, &rec.ActivityPoints); err != nil {
			return nil, fmt.Errorf("failed to decode activity points: %w", err)
		}
	}
	return &rec, nil
}

// Get retrieves the record for (userID, date), or nil when no record
// exists for that day.
func (r *DailyRecordRepository) Get(ctx context.Context, userID int64, date string) (*model.DailyLimitRecord, error) {
	query := `SELECT ` + dailyColumns + ` FROM daily_limit_records WHERE user_id = $1 AND date = $2`

	rec, err := scanDaily(r.db.QueryRow(ctx, query, userID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get daily record: %w", err)
	}
	return rec, nil
}

// AddPoints upsert-increments the day's total and the per-activity bucket
// by the same amount, keeping the two in step. Returns the updated record.
func (r *DailyRecordRepository) AddPoints(ctx context.Context, userID int64, date, activity string, points, baseGameTime int64) (*model.DailyLimitRecord, error) {
	query := `
		INSERT INTO daily_limit_records (user_id, date, activity_points, total_daily_points, game_time_used, game_time_available, created_at, updated_at)
		VALUES ($1, $2, jsonb_build_object($3::text, $4::bigint), $4, 0, $5, NOW(), NOW())
		ON CONFLICT (user_id, date) DO UPDATE SET
			activity_points = jsonb_set(
				daily_limit_records.activity_points,
				ARRAY[$3::text],
				to_jsonb(COALESCE((daily_limit_records.activity_points->>$3)::bigint, 0) + $4)
			),
			total_daily_points = daily_limit_records.total_daily_points + $4,
			updated_at = NOW()
		RETURNING ` + dailyColumns

	rec, err := scanDaily(r.db.QueryRow(ctx, query, userID, date, activity, points, baseGameTime))
	if err != nil {
		return nil, fmt.Errorf("failed to add daily points: %w", err)
	}
	return rec, nil
}

// AddGameTime upsert-increments the day's available game time minutes.
// A freshly created record seeds game_time_available from baseGameTime
// before the increment, the same way AddPoints seeds it.
func (r *DailyRecordRepository) AddGameTime(ctx context.Context, userID int64, date string, minutes, baseGameTime int64) (*model.DailyLimitRecord, error) {
	query := `
		INSERT INTO daily_limit_records (user_id, date, activity_points, total_daily_points, game_time_used, game_time_available, created_at, updated_at)
		VALUES ($1, $2, '{}'::jsonb, 0, 0, $4 + $3, NOW(), NOW())
		ON CONFLICT (user_id, date) DO UPDATE SET
			game_time_available = daily_limit_records.game_time_available + $3,
			updated_at = NOW()
		RETURNING ` + dailyColumns

	rec, err := scanDaily(r.db.QueryRow(ctx, query, userID, date, minutes, baseGameTime))
	if err != nil {
		return nil, fmt.Errorf("failed to add game time: %w", err)
	}
	return rec, nil
}

// SumRange returns the sum of total_daily_points over the inclusive
// [start, end] date range. Used for the weekly accumulation check.
func (r *DailyRecordRepository) SumRange(ctx context.Context, userID int64, start, end string) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(total_daily_points), 0)
		FROM daily_limit_records
		WHERE user_id = $1 AND date >= $2 AND date <= $3
	`

	var total int64
	if err := r.db.QueryRow(ctx, query, userID, start, end).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum daily records: %w", err)
	}
	return total, nil
}

// GetRange returns daily records over the inclusive [start, end] range,
// oldest first. Used by the points summary.
func (r *DailyRecordRepository) GetRange(ctx context.Context, userID int64, start, end string) ([]*model.DailyLimitRecord, error) {
	query := `
		SELECT ` + dailyColumns + `
		FROM daily_limit_records
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`

	rows, err := r.db.Query(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily records: %w", err)
	}
	defer rows.Close()

	var records []*model.DailyLimitRecord
	for rows.Next() {
		rec, err := scanDaily(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily records: %w", err)
	}
	return records, nil
}

// Reset deletes the record for (userID, date). Admin use only; awards and
// spends never delete records.
func (r *DailyRecordRepository) Reset(ctx context.Context, userID int64, date string) error {
	const query = `DELETE FROM daily_limit_records WHERE user_id = $1 AND date = $2`
	if _, err := r.db.Exec(ctx, query, userID, date); err != nil {
		return fmt.Errorf("failed to reset daily record: %w", err)
	}
	return nil
}
