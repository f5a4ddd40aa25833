package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/skybox-cloud/ms-go-billing/app/catalog"
	"github.com/skybox-cloud/ms-go-billing/app/entity"
	"github.com/skybox-cloud/ms-go-billing/app/provider"
	"github.com/skybox-cloud/ms-go-billing/app/repository"
	"github.com/skybox-cloud/ms-go-billing/app/types"
	"github.com/skybox-cloud/ms-go-billing/config"
)

const (
	defaultListLimit = int32(100)
	defaultBatchSize = int32(100)
)

type ledgerRepository interface {
	Create(ctx context.Context, entry *entity.LedgerEntry) error
	FindByTransactionID(ctx context.Context, transactionID string) (*entity.LedgerEntry, error)
	List(ctx context.Context, filter repository.LedgerFilter) ([]*entity.LedgerEntry, error)
}

type quotaGrantRepository interface {
	Create(ctx context.Context, grant *entity.QuotaGrant) error
	Update(ctx context.Context, grant *entity.QuotaGrant) error
	ListDue(ctx context.Context, now time.Time, limit int32) ([]*entity.QuotaGrant, error)
}

type callbackAuditRepository interface {
	Create(ctx context.Context, audit *entity.CallbackAudit) error
}

type quotaClient interface {
	SetQuota(ctx context.Context, username, quota string) error
}

type BillingService struct {
	ledgerRepo  ledgerRepository
	grantRepo   quotaGrantRepository
	auditRepo   callbackAuditRepository
	providerReg *provider.Registry
	plans       *catalog.Catalog
	quota       quotaClient
	grantsCfg   config.GrantsConfig
}

func NewBillingService(
	ledgerRepo ledgerRepository,
	grantRepo quotaGrantRepository,
	auditRepo callbackAuditRepository,
	providerReg *provider.Registry,
	plans *catalog.Catalog,
	quota quotaClient,
	grantsCfg config.GrantsConfig,
) *BillingService {
	return &BillingService{
		ledgerRepo:  ledgerRepo,
		grantRepo:   grantRepo,
		auditRepo:   auditRepo,
		providerReg: providerReg,
		plans:       plans,
		quota:       quota,
		grantsCfg:   grantsCfg,
	}
}

type OrderResult struct {
	TransactionID string
	PayURL        string
	ProviderName  string
	Plan          entity.Plan
	ExpiresAt     *time.Time
}

func (s *BillingService) CreateOrder(ctx context.Context, providerCode int32, req *types.CreateOrderRequest) (*OrderResult, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if err := req.Validate(); err != nil {
		return nil, ErrInvalidRequest
	}

	plan, err := s.plans.ByID(req.Plan)
	if err != nil {
		if errors.Is(err, catalog.ErrPlanNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	providerClient, err := s.providerReg.Get(providerCode)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	out, err := providerClient.CreateOrder(ctx, &provider.OrderInput{
		Username: req.Username,
		Plan:     plan,
		ClientIP: req.ClientIP,
	})
	if err != nil {
		return nil, err
	}

	return &OrderResult{
		TransactionID: out.TransactionID,
		PayURL:        out.PayURL,
		ProviderName:  providerClient.Name(),
		Plan:          plan,
		ExpiresAt:     out.ExpiresAt,
	}, nil
}

func (s *BillingService) ListLedger(ctx context.Context, req *types.ListLedgerRequest) ([]*entity.LedgerEntry, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if err := req.Validate(); err != nil {
		return nil, ErrInvalidRequest
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	return s.ledgerRepo.List(ctx, repository.LedgerFilter{
		Username: req.Username,
		Provider: int32(req.Provider),
		Limit:    limit,
		Offset:   req.Offset,
	})
}

func ParseProviderCode(providerRaw string) (int32, error) {
	switch strings.ToLower(strings.TrimSpace(providerRaw)) {
	case "momo", "1":
		return int32(types.ProviderTypeMoMo), nil
	case "vnpay", "2":
		return int32(types.ProviderTypeVNPay), nil
	case "zalopay", "3":
		return int32(types.ProviderTypeZaloPay), nil
	default:
		return 0, provider.ErrProviderNotSupported
	}
}

func (s *BillingService) batchSize() int32 {
	if s.grantsCfg.JobBatchSize > 0 {
		return s.grantsCfg.JobBatchSize
	}
	return defaultBatchSize
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
