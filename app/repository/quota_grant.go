package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/skybox-cloud/ms-go-billing/app/entity"
)

var (
	ErrGrantNotFound      = errors.New("quota grant not found")
	ErrGrantAlreadyExists = errors.New("quota grant already exists for transaction")
)

type QuotaGrantRepository struct {
	db DBTX
}

func NewQuotaGrantRepository(db DBTX) *QuotaGrantRepository {
	return &QuotaGrantRepository{db: db}
}

func (r *QuotaGrantRepository) Create(ctx context.Context, grant *entity.QuotaGrant) error {
	query := `
		INSERT INTO quota_grants (
			transaction_id, username, plan_id, quota, status, attempts,
			next_at, last_error, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		grant.TransactionID,
		grant.Username,
		grant.PlanID,
		grant.Quota,
		grant.Status,
		grant.Attempts,
		nullableTimeValue(grant.NextAt),
		nullableStringValue(grant.LastError),
		grant.CreatedAt,
		grant.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrGrantAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	grant.ID = uint64(id)
	return nil
}

func (r *QuotaGrantRepository) Update(ctx context.Context, grant *entity.QuotaGrant) error {
	query := `
		UPDATE quota_grants SET
			status = ?,
			attempts = ?,
			next_at = ?,
			last_error = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		grant.Status,
		grant.Attempts,
		nullableTimeValue(grant.NextAt),
		nullableStringValue(grant.LastError),
		grant.UpdatedAt,
		grant.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrGrantNotFound
	}

	return nil
}

func (r *QuotaGrantRepository) FindByTransactionID(ctx context.Context, transactionID string) (*entity.QuotaGrant, error) {
	query := `
		SELECT id, transaction_id, username, plan_id, quota, status, attempts,
			next_at, last_error, created_at, updated_at
		FROM quota_grants
		WHERE transaction_id = ?
		LIMIT 1
	`

	grant := &entity.QuotaGrant{}
	if err := scanQuotaGrant(r.db.QueryRowContext(ctx, query, transactionID), grant); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return grant, nil
}

func (r *QuotaGrantRepository) ListDue(ctx context.Context, now time.Time, limit int32) ([]*entity.QuotaGrant, error) {
	query := `
		SELECT id, transaction_id, username, plan_id, quota, status, attempts,
			next_at, last_error, created_at, updated_at
		FROM quota_grants
		WHERE status = ?
		  AND next_at IS NOT NULL
		  AND next_at <= ?
		ORDER BY next_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, entity.GrantStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grants := make([]*entity.QuotaGrant, 0)
	for rows.Next() {
		item := &entity.QuotaGrant{}
		if err := scanQuotaGrant(rows, item); err != nil {
			return nil, err
		}
		grants = append(grants, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return grants, nil
}

func scanQuotaGrant(scan rowScanner, grant *entity.QuotaGrant) error {
	var nextAt sql.NullTime
	var lastError sql.NullString

	err := scan.Scan(
		&grant.ID,
		&grant.TransactionID,
		&grant.Username,
		&grant.PlanID,
		&grant.Quota,
		&grant.Status,
		&grant.Attempts,
		&nextAt,
		&lastError,
		&grant.CreatedAt,
		&grant.UpdatedAt,
	)
	if err != nil {
		return err
	}

	grant.NextAt = timePtrFromNull(nextAt)
	grant.LastError = stringPtrFromNull(lastError)

	return nil
}
