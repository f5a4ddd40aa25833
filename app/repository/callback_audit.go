package repository

import (
	"context"

	"github.com/skybox-cloud/ms-go-billing/app/entity"
)

// CallbackAuditRepository records every inbound provider notification,
// accepted or not. Rows are never updated.
type CallbackAuditRepository struct {
	db DBTX
}

func NewCallbackAuditRepository(db DBTX) *CallbackAuditRepository {
	return &CallbackAuditRepository{db: db}
}

func (r *CallbackAuditRepository) Create(ctx context.Context, audit *entity.CallbackAudit) error {
	query := `
		INSERT INTO callback_audits (
			provider, transaction_id, payload_json, status, error, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		audit.Provider,
		audit.TransactionID,
		audit.PayloadJSON,
		audit.Status,
		nullableStringValue(audit.Error),
		audit.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	audit.ID = uint64(id)
	return nil
}
