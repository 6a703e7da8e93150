package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"task-points/internal/model"
)

// LedgerRepository handles the append-only balance change ledger. Entries
// are inserted as part of the engine's transaction and never mutated.
type LedgerRepository struct {
	db DB
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(db DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *LedgerRepository) WithTx(tx pgx.Tx) *LedgerRepository {
	return &LedgerRepository{db: tx}
}

const ledgerColumns = `id, user_id, type, amount, reason, previous_total, new_total, metadata, created_at`

func scanLedger(row pgx.Row) (*model.LedgerEntry, error) {
	var (
		entry   model.LedgerEntry
		metaRaw []byte
	)
	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Type,
		&entry.Amount,
		&entry.Reason,
		&entry.PreviousTotal,
		&entry.NewTotal,
		&metaRaw,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode ledger metadata: %w", err)
		}
	}
	return &entry, nil
}

// Append inserts a ledger entry and returns it with its assigned ID.
func (r *LedgerRepository) Append(ctx context.Context, entry *model.LedgerEntry) (*model.LedgerEntry, error) {
	metaRaw, err := json.Marshal(entry.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ledger metadata: %w", err)
	}

	query := `
		INSERT INTO ledger_entries (user_id, type, amount, reason, previous_total, new_total, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING ` + ledgerColumns

	created, err := scanLedger(r.db.QueryRow(ctx, query,
		entry.UserID, entry.Type, entry.Amount, entry.Reason, entry.PreviousTotal, entry.NewTotal, metaRaw))
	if err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return created, nil
}

// ListByUser retrieves a user's ledger entries, newest first.
func (r *LedgerRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		entry, err := scanLedger(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

// SumByUser returns the signed sum of a user's ledger amounts (earn
// positive, spend negative). The balance invariant check in tests relies
// on this matching users.points.
func (r *LedgerRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(CASE WHEN type = 'earn' THEN amount ELSE -amount END), 0)
		FROM ledger_entries
		WHERE user_id = $1
	`

	var total int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return total, nil
}
