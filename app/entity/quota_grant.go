package entity

import "time"

const (
	GrantStatusPending int32 = 1
	GrantStatusSuccess int32 = 10
	GrantStatusFailed  int32 = 20
)

// QuotaGrant queues the downstream quota upgrade for a settled transaction.
// The ledger entry stands regardless of grant outcome; failed grants stay
// here for the dispatch job to retry.
type QuotaGrant struct {
	ID uint64

	TransactionID string
	Username      string
	PlanID        string
	Quota         string

	Status    int32
	Attempts  int32
	NextAt    *time.Time
	LastError *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
