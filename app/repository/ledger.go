package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/skybox-cloud/ms-go-billing/app/entity"
)

// ErrDuplicateTransaction is returned when an entry with the same
// transaction_id already exists. The unique key on transaction_id is what
// makes settlement at-most-once under concurrent callbacks.
var ErrDuplicateTransaction = errors.New("ledger entry already exists for transaction")

type LedgerFilter struct {
	Username string
	Provider int32
	PlanID   string
	Limit    int32
	Offset   int32
}

type LedgerRepository struct {
	db DBTX
}

func NewLedgerRepository(db DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Create(ctx context.Context, entry *entity.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (
			transaction_id, provider, username, plan_id, amount, status, settled_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.TransactionID,
		entry.Provider,
		entry.Username,
		entry.PlanID,
		entry.Amount,
		entry.Status,
		entry.SettledAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateTransaction
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = uint64(id)
	return nil
}

func (r *LedgerRepository) FindByTransactionID(ctx context.Context, transactionID string) (*entity.LedgerEntry, error) {
	query := `
		SELECT id, transaction_id, provider, username, plan_id, amount, status, settled_at
		FROM ledger_entries
		WHERE transaction_id = ?
		LIMIT 1
	`

	entry := &entity.LedgerEntry{}
	if err := scanLedgerEntry(r.db.QueryRowContext(ctx, query, transactionID), entry); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return entry, nil
}

func (r *LedgerRepository) List(ctx context.Context, filter LedgerFilter) ([]*entity.LedgerEntry, error) {
	query := `
		SELECT id, transaction_id, provider, username, plan_id, amount, status, settled_at
		FROM ledger_entries
	`

	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)

	if strings.TrimSpace(filter.Username) != "" {
		conditions = append(conditions, "username = ?")
		args = append(args, filter.Username)
	}
	if filter.Provider > 0 {
		conditions = append(conditions, "provider = ?")
		args = append(args, filter.Provider)
	}
	if strings.TrimSpace(filter.PlanID) != "" {
		conditions = append(conditions, "plan_id = ?")
		args = append(args, filter.PlanID)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*entity.LedgerEntry, 0)
	for rows.Next() {
		item := &entity.LedgerEntry{}
		if err := scanLedgerEntry(rows, item); err != nil {
			return nil, err
		}
		entries = append(entries, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func scanLedgerEntry(scan rowScanner, entry *entity.LedgerEntry) error {
	return scan.Scan(
		&entry.ID,
		&entry.TransactionID,
		&entry.Provider,
		&entry.Username,
		&entry.PlanID,
		&entry.Amount,
		&entry.Status,
		&entry.SettledAt,
	)
}
