package entity

import "time"

const LedgerStatusPaid = "PAID"

// LedgerEntry is the durable record of a settled transaction. Entries are
// append-only: at most one exists per TransactionID, and none is ever
// updated or deleted.
type LedgerEntry struct {
	ID uint64

	TransactionID string
	Provider      int32

	Username string
	PlanID   string
	Amount   int64

	Status string

	SettledAt time.Time
}
