package service

import (
	"context"
	"time"

	"github.com/skybox-cloud/ms-go-billing/app/entity"
)

// RunGrantsDispatchBatch retries quota upgrades that could not be applied
// inline when their payment settled.
func (s *BillingService) RunGrantsDispatchBatch(ctx context.Context) error {
	now := time.Now().UTC()
	items, err := s.grantRepo.ListDue(ctx, now, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, grant := range items {
		if grant == nil {
			continue
		}
		if err := s.applyGrant(ctx, grant, now); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func (s *BillingService) applyGrant(ctx context.Context, grant *entity.QuotaGrant, now time.Time) error {
	if err := s.quota.SetQuota(ctx, grant.Username, grant.Quota); err != nil {
		return s.recordGrantFailure(ctx, grant, now, err)
	}

	grant.Status = entity.GrantStatusSuccess
	grant.NextAt = nil
	grant.LastError = nil
	grant.UpdatedAt = now

	return s.grantRepo.Update(ctx, grant)
}

func (s *BillingService) recordGrantFailure(ctx context.Context, grant *entity.QuotaGrant, now time.Time, grantErr error) error {
	grant.Attempts++
	trimmed := truncate(grantErr.Error(), 1024)
	grant.LastError = &trimmed

	maxAttempts := s.grantsCfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	if grant.Attempts >= maxAttempts {
		grant.Status = entity.GrantStatusFailed
		grant.NextAt = nil
	} else {
		retryInterval := s.grantsCfg.RetryInterval
		if retryInterval <= 0 {
			retryInterval = 5 * time.Minute
		}
		next := now.Add(retryInterval)
		grant.Status = entity.GrantStatusPending
		grant.NextAt = &next
	}
	grant.UpdatedAt = now

	if err := s.grantRepo.Update(ctx, grant); err != nil {
		return err
	}

	return grantErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
