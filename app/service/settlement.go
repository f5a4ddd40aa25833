package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skybox-cloud/ms-go-billing/app/entity"
	"github.com/skybox-cloud/ms-go-billing/app/provider"
	"github.com/skybox-cloud/ms-go-billing/app/repository"
)

type SettleResult struct {
	Entry *entity.LedgerEntry
	// Duplicate reports that an entry for this transaction already existed
	// and no new settlement happened.
	Duplicate bool
	// PaymentFailed reports a verified notification for a payment the
	// provider declined. Nothing is settled but the callback is acked.
	PaymentFailed bool
	FailureReason string
	// QuotaGranted reports whether the quota was applied inline. When
	// false on a fresh settlement, a pending grant is queued for the job.
	QuotaGranted bool
}

// Settle runs the full trust boundary for one provider notification:
// signature verification, plan and amount validation, at-most-once ledger
// insert, then the quota upgrade. Unverified payloads never reach the
// ledger.
func (s *BillingService) Settle(ctx context.Context, providerCode int32, payload []byte) (*SettleResult, error) {
	providerClient, err := s.providerReg.Get(providerCode)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	result, err := providerClient.VerifyCallback(ctx, payload)
	if err != nil {
		s.persistRejectedCallback(ctx, providerClient.Name(), "", payload, err.Error())
		if errors.Is(err, provider.ErrBadSignature) {
			return nil, ErrCallbackSignature
		}
		return nil, fmt.Errorf("%w: %v", ErrCallbackRejected, err)
	}

	return s.settleVerified(ctx, providerClient, result, payload)
}

func (s *BillingService) settleVerified(
	ctx context.Context,
	providerClient provider.Provider,
	result *provider.CallbackResult,
	payload []byte,
) (*SettleResult, error) {
	providerName := providerClient.Name()
	now := time.Now().UTC()

	if !result.Succeeded {
		// Verified but declined at the provider. Record it so the failure
		// is visible, ack so the provider stops redelivering.
		s.persistProcessedCallback(ctx, providerName, result.TransactionID, payload)
		return &SettleResult{PaymentFailed: true, FailureReason: result.Reason}, nil
	}

	if strings.TrimSpace(result.Username) == "" {
		s.persistRejectedCallback(ctx, providerName, result.TransactionID, payload, "callback carries no username")
		return nil, fmt.Errorf("%w: callback carries no username", ErrCallbackRejected)
	}

	plan, err := s.resolvePlan(result)
	if err != nil {
		s.persistRejectedCallback(ctx, providerName, result.TransactionID, payload, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrCallbackRejected, err)
	}
	if result.Amount != plan.Amount {
		reason := fmt.Sprintf("amount %d does not match plan %s price %d", result.Amount, plan.ID, plan.Amount)
		s.persistRejectedCallback(ctx, providerName, result.TransactionID, payload, reason)
		return nil, fmt.Errorf("%w: %s", ErrCallbackRejected, reason)
	}

	entry := &entity.LedgerEntry{
		TransactionID: result.TransactionID,
		Provider:      providerClient.Code(),
		Username:      result.Username,
		PlanID:        plan.ID,
		Amount:        result.Amount,
		Status:        entity.LedgerStatusPaid,
		SettledAt:     now,
	}

	if err := s.ledgerRepo.Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateTransaction) {
			existing, findErr := s.ledgerRepo.FindByTransactionID(ctx, result.TransactionID)
			if findErr != nil {
				return nil, findErr
			}
			s.persistDuplicateCallback(ctx, providerName, result.TransactionID, payload)
			return &SettleResult{Entry: existing, Duplicate: true}, nil
		}
		return nil, err
	}

	granted := s.enqueueAndAttemptGrant(ctx, entry, plan, now)

	s.persistProcessedCallback(ctx, providerName, result.TransactionID, payload)
	return &SettleResult{Entry: entry, QuotaGranted: granted}, nil
}

// resolvePlan prefers the plan identifier carried through the provider's
// opaque metadata field; amount lookup is the fallback for payloads that
// lost it.
func (s *BillingService) resolvePlan(result *provider.CallbackResult) (entity.Plan, error) {
	if strings.TrimSpace(result.PlanID) != "" {
		plan, err := s.plans.ByID(result.PlanID)
		if err == nil {
			return plan, nil
		}
		return entity.Plan{}, fmt.Errorf("unknown plan %q", result.PlanID)
	}
	plan, err := s.plans.ByAmount(result.Amount)
	if err != nil {
		return entity.Plan{}, fmt.Errorf("no plan priced at %d", result.Amount)
	}
	return plan, nil
}

// enqueueAndAttemptGrant persists the grant first so a crash between the
// ledger insert and the quota call cannot lose the upgrade, then tries to
// apply it inline. Returns whether the quota is applied.
func (s *BillingService) enqueueAndAttemptGrant(ctx context.Context, entry *entity.LedgerEntry, plan entity.Plan, now time.Time) bool {
	nextAt := now
	grant := &entity.QuotaGrant{
		TransactionID: entry.TransactionID,
		Username:      entry.Username,
		PlanID:        plan.ID,
		Quota:         plan.Quota,
		Status:        entity.GrantStatusPending,
		NextAt:        &nextAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.grantRepo.Create(ctx, grant); err != nil {
		// The settlement stands either way; the ack must not depend on
		// the quota side succeeding.
		return false
	}

	if err := s.applyGrant(ctx, grant, now); err != nil {
		return false
	}
	return true
}

type vnpayReturnVerifier interface {
	VerifyReturn(query map[string]string) (*provider.CallbackResult, error)
}

// VerifyVNPayReturn checks the secure hash on the browser return redirect.
// It settles nothing; VNPay has no verified server notification in this
// integration.
func (s *BillingService) VerifyVNPayReturn(ctx context.Context, providerCode int32, query map[string]string) (*provider.CallbackResult, error) {
	providerClient, err := s.providerReg.Get(providerCode)
	if err != nil {
		return nil, ErrProviderUnsupported
	}
	verifier, ok := providerClient.(vnpayReturnVerifier)
	if !ok {
		return nil, ErrProviderUnsupported
	}

	payload := []byte(encodeQuery(query))
	result, err := verifier.VerifyReturn(query)
	if err != nil {
		s.persistRejectedCallback(ctx, providerClient.Name(), "", payload, err.Error())
		if errors.Is(err, provider.ErrBadSignature) {
			return nil, ErrCallbackSignature
		}
		return nil, fmt.Errorf("%w: %v", ErrCallbackRejected, err)
	}

	s.persistProcessedCallback(ctx, providerClient.Name(), result.TransactionID, payload)
	return result, nil
}

func encodeQuery(query map[string]string) string {
	parts := make([]string, 0, len(query))
	for k, v := range query {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, "&")
}

func (s *BillingService) persistProcessedCallback(ctx context.Context, providerName, transactionID string, payload []byte) {
	_ = s.auditRepo.Create(ctx, &entity.CallbackAudit{
		Provider:      providerName,
		TransactionID: transactionID,
		PayloadJSON:   string(payload),
		Status:        entity.CallbackAuditProcessed,
		CreatedAt:     time.Now().UTC(),
	})
}

func (s *BillingService) persistDuplicateCallback(ctx context.Context, providerName, transactionID string, payload []byte) {
	_ = s.auditRepo.Create(ctx, &entity.CallbackAudit{
		Provider:      providerName,
		TransactionID: transactionID,
		PayloadJSON:   string(payload),
		Status:        entity.CallbackAuditDuplicate,
		CreatedAt:     time.Now().UTC(),
	})
}

func (s *BillingService) persistRejectedCallback(ctx context.Context, providerName, transactionID string, payload []byte, reason string) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "callback rejected"
	}
	trimmed := truncate(reason, 1024)
	_ = s.auditRepo.Create(ctx, &entity.CallbackAudit{
		Provider:      providerName,
		TransactionID: transactionID,
		PayloadJSON:   string(payload),
		Status:        entity.CallbackAuditRejected,
		Error:         &trimmed,
		CreatedAt:     time.Now().UTC(),
	})
}
