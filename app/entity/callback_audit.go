package entity

import "time"

const (
	CallbackAuditProcessed int32 = 10
	CallbackAuditDuplicate int32 = 11
	CallbackAuditRejected  int32 = 20
)

// CallbackAudit records every inbound provider callback and its verdict,
// so signature mismatches stay distinguishable from malformed payloads
// for operators even though providers only see a generic rejection.
type CallbackAudit struct {
	ID uint64

	Provider      string
	TransactionID string
	PayloadJSON   string
	Status        int32
	Error         *string

	CreatedAt time.Time
}
