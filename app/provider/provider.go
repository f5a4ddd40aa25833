package provider

import (
	"context"
	"errors"
	"time"

	"github.com/skybox-cloud/ms-go-billing/app/entity"
)

var (
	// ErrBadSignature means the callback's tag did not match the recomputed
	// one. Distinct from ErrMalformedPayload so operators can tell a forgery
	// attempt from a broken payload in the audit trail.
	ErrBadSignature     = errors.New("callback signature mismatch")
	ErrMalformedPayload = errors.New("callback payload is malformed")

	// ErrCallbackUnsupported marks providers with no server-to-server
	// callback channel (VNPay is return-URL only).
	ErrCallbackUnsupported = errors.New("provider has no server-to-server callback")
)

type OrderInput struct {
	Username string
	Plan     entity.Plan
	ClientIP string
}

type OrderOutput struct {
	TransactionID string
	PayURL        string

	// SignedAmount is the amount as it appears in the signed fields, in the
	// provider's required unit (VNPay uses minor units, x100).
	SignedAmount int64

	ExpiresAt *time.Time
}

// CallbackResult is a verified, parsed callback. Succeeded reflects the
// provider's own status flag; a false value is a business rejection, not a
// signature failure.
type CallbackResult struct {
	TransactionID string
	Username      string
	PlanID        string
	Amount        int64
	Succeeded     bool
	Reason        string
}

type Provider interface {
	Code() int32
	Name() string
	CreateOrder(ctx context.Context, input *OrderInput) (*OrderOutput, error)
	VerifyCallback(ctx context.Context, payload []byte) (*CallbackResult, error)
}
