package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"task-points/internal/model"
	"task-points/internal/pkg/lock"
	"task-points/internal/pkg/retry"
	"task-points/internal/repository"
)

var (
	ErrInvalidPoints       = errors.New("points must be positive")
	ErrInvalidDate         = errors.New("date must be YYYY-MM-DD")
	ErrInvalidGameType     = errors.New("unknown game type")
	ErrInsufficientPoints  = errors.New("insufficient points")
	ErrExchangeTooSmall    = errors.New("points below one minute of game time")
	ErrRedemptionProcessed = errors.New("redemption already processed")
	ErrInvalidRule         = errors.New("invalid points rule")
	ErrInvalidConfig       = errors.New("invalid balance config")
)

// AwardRequest asks the engine to credit up to Points to a user.
type AwardRequest struct {
	UserID   int64
	Points   int64
	Date     string
	Activity string
	Reason   string
	RefID    string
}

// SpendRequest asks the engine to exchange points for game time.
type SpendRequest struct {
	UserID   int64
	Points   int64
	Date     string
	GameType string
	RefID    string
}

// RefundRequest asks the engine to credit points back, outside limits.
type RefundRequest struct {
	UserID int64
	Amount int64
	Reason string
	RefID  string
}

// Engine performs all balance mutations. Every operation runs as a
// single transaction that locks the user row first, so concurrent
// mutations of one user's balance serialize at the store. An in-process
// per-user lock in front keeps goroutines of the same process from
// burning transaction retries against each other.
type Engine struct {
	pool        *pgxpool.Pool
	users       *repository.UserRepository
	daily       *repository.DailyRecordRepository
	ledger      *repository.LedgerRepository
	exchanges   *repository.ExchangeRepository
	redemptions *repository.RedemptionRepository
	limits      *LimitService
	locks       *lock.UserLock
	retry       retry.Policy
}

func NewEngine(pool *pgxpool.Pool, limits *LimitService, locks *lock.UserLock, attempts int, backoff time.Duration) *Engine {
	policy := retry.Default(transientConflict)
	if attempts > 0 {
		policy.MaxAttempts = attempts
	}
	if backoff > 0 {
		policy.Backoff = func(attempt int) time.Duration { return backoff << attempt }
	}
	return &Engine{
		pool:        pool,
		users:       repository.NewUserRepository(pool),
		daily:       repository.NewDailyRecordRepository(pool),
		ledger:      repository.NewLedgerRepository(pool),
		exchanges:   repository.NewExchangeRepository(pool),
		redemptions: repository.NewRedemptionRepository(pool),
		limits:      limits,
		locks:       locks,
		retry:       policy,
	}
}

// transientConflict reports whether err is a serialization or lock
// conflict worth retrying. Anything else fails the operation outright.
func transientConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}

// Award credits up to req.Points to the user, clamped by the daily,
// weekly and activity caps. A fully capped request commits nothing and
// returns Success false; that is an outcome, not an error.
func (e *Engine) Award(ctx context.Context, req AwardRequest) (*model.AwardResult, error) {
	if req.Points <= 0 {
		return nil, ErrInvalidPoints
	}
	if !validDate(req.Date) {
		return nil, ErrInvalidDate
	}

	var result *model.AwardResult
	err := e.locks.WithLock(req.UserID, func() error {
		return e.retry.Do(ctx, func(ctx context.Context) error {
			res, err := e.awardOnce(ctx, req)
			if err != nil {
				return err
			}
			result = res
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if result.Success {
		log.Info().
			Int64("user_id", req.UserID).
			Str("activity", req.Activity).
			Int64("requested", req.Points).
			Int64("granted", result.PointsAdded).
			Msg("points awarded")
	}
	return result, nil
}

func (e *Engine) awardOnce(ctx context.Context, req AwardRequest) (*model.AwardResult, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin award tx: %w", err)
	}
	defer tx.Rollback(ctx)

	users := e.users.WithTx(tx)
	daily := e.daily.WithTx(tx)
	ledger := e.ledger.WithTx(tx)

	user, err := users.GetForUpdate(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	check, err := e.limits.checkAll(ctx, daily, req.UserID, req.Date, req.Points, req.Activity)
	if err != nil {
		return nil, err
	}
	if check.MaxCanAdd <= 0 {
		msg := check.Reason
		if msg == "" {
			msg = "no points can be added"
		}
		return &model.AwardResult{
			NewDailyTotal:  check.DailyCheck.CurrentDailyTotal,
			NewWeeklyTotal: check.WeeklyCheck.CurrentWeeklyTotal,
			Message:        msg,
		}, nil
	}

	granted := check.MaxCanAdd
	updated, err := users.IncrementPoints(ctx, req.UserID, granted)
	if err != nil {
		return nil, err
	}
	rec, err := daily.AddPoints(ctx, req.UserID, req.Date, req.Activity, granted, e.limits.baseGameTime(ctx))
	if err != nil {
		return nil, err
	}
	entry, err := ledger.Append(ctx, &model.LedgerEntry{
		UserID:        req.UserID,
		Type:          model.EntryTypeEarn,
		Amount:        granted,
		Reason:        req.Reason,
		PreviousTotal: user.Points,
		NewTotal:      updated.Points,
		Metadata: map[string]any{
			"activity":  req.Activity,
			"requested": req.Points,
			"refId":     req.RefID,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit award: %w", err)
	}

	msg := fmt.Sprintf("added %d points", granted)
	if granted < req.Points {
		msg = fmt.Sprintf("added %d of %d requested points (%s limit)", granted, req.Points, check.LimitedBy)
	}
	return &model.AwardResult{
		Success:        true,
		PointsAdded:    granted,
		NewDailyTotal:  rec.TotalDailyPoints,
		NewWeeklyTotal: check.WeeklyCheck.CurrentWeeklyTotal + granted,
		LedgerID:       &entry.ID,
		Message:        msg,
	}, nil
}

// Spend exchanges points for game time minutes at the active config's
// ratio. The debit, the exchange record, the daily game time counter and
// the ledger entry commit together.
func (e *Engine) Spend(ctx context.Context, req SpendRequest) (*model.SpendResult, error) {
	if req.Points <= 0 {
		return nil, ErrInvalidPoints
	}
	if !validDate(req.Date) {
		return nil, ErrInvalidDate
	}
	if req.GameType != model.GameTypeNormal && req.GameType != model.GameTypeEducational {
		return nil, ErrInvalidGameType
	}

	var result *model.SpendResult
	err := e.locks.WithLock(req.UserID, func() error {
		return e.retry.Do(ctx, func(ctx context.Context) error {
			res, err := e.spendOnce(ctx, req)
			if err != nil {
				return err
			}
			result = res
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Int64("user_id", req.UserID).
		Int64("points", result.PointsSpent).
		Int64("minutes", result.MinutesGranted).
		Str("game_type", req.GameType).
		Msg("game time exchanged")
	return result, nil
}

func (e *Engine) spendOnce(ctx context.Context, req SpendRequest) (*model.SpendResult, error) {
	ratio := e.limits.minutesRatio(ctx)
	minutes := req.Points / ratio
	if minutes <= 0 {
		return nil, ErrExchangeTooSmall
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin spend tx: %w", err)
	}
	defer tx.Rollback(ctx)

	users := e.users.WithTx(tx)
	daily := e.daily.WithTx(tx)
	ledger := e.ledger.WithTx(tx)
	exchanges := e.exchanges.WithTx(tx)

	user, err := users.GetForUpdate(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user.Points < req.Points {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientPoints, user.Points, req.Points)
	}

	updated, err := users.IncrementPoints(ctx, req.UserID, -req.Points)
	if err != nil {
		return nil, err
	}
	ex, err := exchanges.Create(ctx, req.UserID, req.Date, req.Points, req.GameType, minutes)
	if err != nil {
		return nil, err
	}
	if _, err := daily.AddGameTime(ctx, req.UserID, req.Date, minutes, e.limits.baseGameTime(ctx)); err != nil {
		return nil, err
	}
	entry, err := ledger.Append(ctx, &model.LedgerEntry{
		UserID:        req.UserID,
		Type:          model.EntryTypeSpend,
		Amount:        req.Points,
		Reason:        "game time exchange",
		PreviousTotal: user.Points,
		NewTotal:      updated.Points,
		Metadata: map[string]any{
			"gameType":       req.GameType,
			"minutesGranted": minutes,
			"exchangeId":     ex.ID.String(),
			"refId":          req.RefID,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit spend: %w", err)
	}

	return &model.SpendResult{
		Success:        true,
		PointsSpent:    req.Points,
		MinutesGranted: minutes,
		NewBalance:     updated.Points,
		ExchangeID:     ex.ID,
		LedgerID:       &entry.ID,
		Message:        fmt.Sprintf("exchanged %d points for %d minutes", req.Points, minutes),
	}, nil
}

// Refund credits points back to a user. Refunds bypass the accumulation
// caps; they restore balance, they do not reward activity.
func (e *Engine) Refund(ctx context.Context, req RefundRequest) (*model.RefundResult, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidPoints
	}

	var result *model.RefundResult
	err := e.locks.WithLock(req.UserID, func() error {
		return e.retry.Do(ctx, func(ctx context.Context) error {
			res, err := e.refundOnce(ctx, req)
			if err != nil {
				return err
			}
			result = res
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) refundOnce(ctx context.Context, req RefundRequest) (*model.RefundResult, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin refund tx: %w", err)
	}
	defer tx.Rollback(ctx)

	users := e.users.WithTx(tx)
	user, err := users.GetForUpdate(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	updated, err := users.IncrementPoints(ctx, req.UserID, req.Amount)
	if err != nil {
		return nil, err
	}
	entry, err := e.ledger.WithTx(tx).Append(ctx, &model.LedgerEntry{
		UserID:        req.UserID,
		Type:          model.EntryTypeEarn,
		Amount:        req.Amount,
		Reason:        req.Reason,
		PreviousTotal: user.Points,
		NewTotal:      updated.Points,
		Metadata:      map[string]any{"refund": true, "refId": req.RefID},
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit refund: %w", err)
	}
	return &model.RefundResult{
		Success:        true,
		PointsRefunded: req.Amount,
		NewBalance:     updated.Points,
		LedgerID:       &entry.ID,
		Message:        fmt.Sprintf("refunded %d points", req.Amount),
	}, nil
}

// RequestRedemption reserves points for a pending real-world reward.
// The cost leaves the balance immediately so it cannot be double-spent
// while a guardian decides.
func (e *Engine) RequestRedemption(ctx context.Context, userID int64, title, description string, pointsCost int64) (*model.Redemption, error) {
	if pointsCost <= 0 {
		return nil, ErrInvalidPoints
	}

	var result *model.Redemption
	err := e.locks.WithLock(userID, func() error {
		return e.retry.Do(ctx, func(ctx context.Context) error {
			tx, err := e.pool.Begin(ctx)
			if err != nil {
				return fmt.Errorf("begin redemption tx: %w", err)
			}
			defer tx.Rollback(ctx)

			users := e.users.WithTx(tx)
			user, err := users.GetForUpdate(ctx, userID)
			if err != nil {
				return err
			}
			if user.Points < pointsCost {
				return fmt.Errorf("%w: have %d, need %d", ErrInsufficientPoints, user.Points, pointsCost)
			}
			updated, err := users.IncrementPoints(ctx, userID, -pointsCost)
			if err != nil {
				return err
			}
			red, err := e.redemptions.WithTx(tx).Create(ctx, userID, title, description, pointsCost)
			if err != nil {
				return err
			}
			if _, err := e.ledger.WithTx(tx).Append(ctx, &model.LedgerEntry{
				UserID:        userID,
				Type:          model.EntryTypeSpend,
				Amount:        pointsCost,
				Reason:        fmt.Sprintf("redemption reserve: %s", title),
				PreviousTotal: user.Points,
				NewTotal:      updated.Points,
				Metadata:      map[string]any{"redemptionId": red.ID.String()},
			}); err != nil {
				return err
			}
			if err := tx.Commit(ctx); err != nil {
				return fmt.Errorf("commit redemption: %w", err)
			}
			result = red
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DecideRedemption approves or rejects a pending redemption. Approval
// keeps the reserved points spent; rejection refunds them. Deciding an
// already processed redemption fails.
func (e *Engine) DecideRedemption(ctx context.Context, id uuid.UUID, approve bool, processedBy int64, notes string) (*model.Redemption, error) {
	var result *model.Redemption
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		tx, err := e.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin decision tx: %w", err)
		}
		defer tx.Rollback(ctx)

		redemptions := e.redemptions.WithTx(tx)
		red, err := redemptions.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if red.Status != model.RedemptionPending {
			return fmt.Errorf("%w: %s is %s", ErrRedemptionProcessed, id, red.Status)
		}

		status := model.RedemptionApproved
		if !approve {
			status = model.RedemptionRejected
			users := e.users.WithTx(tx)
			user, err := users.GetForUpdate(ctx, red.UserID)
			if err != nil {
				return err
			}
			updated, err := users.IncrementPoints(ctx, red.UserID, red.PointsCost)
			if err != nil {
				return err
			}
			if _, err := e.ledger.WithTx(tx).Append(ctx, &model.LedgerEntry{
				UserID:        red.UserID,
				Type:          model.EntryTypeEarn,
				Amount:        red.PointsCost,
				Reason:        fmt.Sprintf("redemption rejected: %s", red.RewardTitle),
				PreviousTotal: user.Points,
				NewTotal:      updated.Points,
				Metadata:      map[string]any{"redemptionId": red.ID.String()},
			}); err != nil {
				return err
			}
		}

		updated, err := redemptions.UpdateStatus(ctx, id, status, processedBy, notes)
		if err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit decision: %w", err)
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Stringer("redemption_id", id).
		Bool("approved", approve).
		Int64("processed_by", processedBy).
		Msg("redemption decided")
	return result, nil
}
