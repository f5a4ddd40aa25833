package mapper

import (
	"time"

	"github.com/skybox-cloud/ms-go-billing/app/entity"
	"github.com/skybox-cloud/ms-go-billing/app/types"
)

func LedgerEntryToResponse(item *entity.LedgerEntry) *types.LedgerEntry {
	if item == nil {
		return nil
	}

	return &types.LedgerEntry{
		ID:            item.ID,
		TransactionID: item.TransactionID,
		Provider:      types.ProviderType(item.Provider).String(),
		Username:      item.Username,
		Plan:          item.PlanID,
		Amount:        item.Amount,
		Status:        item.Status,
		SettledAt:     item.SettledAt.UTC().Format(time.RFC3339),
	}
}

func LedgerEntriesToResponse(items []*entity.LedgerEntry) []*types.LedgerEntry {
	result := make([]*types.LedgerEntry, 0, len(items))
	for _, item := range items {
		result = append(result, LedgerEntryToResponse(item))
	}
	return result
}
