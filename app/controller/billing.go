package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/skybox-cloud/ms-go-billing/app/factory"
	"github.com/skybox-cloud/ms-go-billing/app/mapper"
	"github.com/skybox-cloud/ms-go-billing/app/service"
	"github.com/skybox-cloud/ms-go-billing/app/types"
)

type BillingController struct {
	billingService *service.BillingService
	logger         logrus.FieldLogger
}

func NewBillingController(billingService *service.BillingService) *BillingController {
	return &BillingController{
		billingService: billingService,
		logger:         factory.NewModuleLogger("billing-controller"),
	}
}

func (c *BillingController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *BillingController) CreateOrder(ctx echo.Context) error {
	providerCode, err := service.ParseProviderCode(ctx.Param("provider"))
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "unsupported provider")
	}

	req, err := types.NewCreateOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.billingService.CreateOrder(ctx.Request().Context(), providerCode, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPlanNotFound):
			return c.writeError(ctx, http.StatusNotFound, "plan not found")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create order failed")
			return c.writeError(ctx, http.StatusBadGateway, "order creation failed")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.OrderResponse{
		OrderID:  result.TransactionID,
		PayURL:   result.PayURL,
		Provider: result.ProviderName,
		Plan:     result.Plan.ID,
		Amount:   result.Plan.Amount,
	})
}

// HandleMoMoIPN acks with MoMo's flat status object. Verified payloads are
// acked "ok" even when already settled so MoMo stops redelivering.
func (c *BillingController) HandleMoMoIPN(ctx echo.Context) error {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, &types.MoMoIPNResponse{Status: "error"})
	}

	result, err := c.billingService.Settle(ctx.Request().Context(), int32(types.ProviderTypeMoMo), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCallbackSignature), errors.Is(err, service.ErrCallbackRejected):
			return ctx.JSON(http.StatusBadRequest, &types.MoMoIPNResponse{Status: "error"})
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("MoMo IPN failed")
			return ctx.JSON(http.StatusInternalServerError, &types.MoMoIPNResponse{Status: "error"})
		}
	}

	if result.PaymentFailed {
		factory.LoggerWithContext(c.logger, ctx).WithField("reason", result.FailureReason).Info("MoMo payment not successful")
	}
	return ctx.JSON(http.StatusOK, &types.MoMoIPNResponse{Status: "ok"})
}

// HandleZaloPayCallback answers with ZaloPay's numeric contract: 1 acks,
// -1 reports a bad mac so ZaloPay redelivers, anything else is a soft
// failure.
func (c *BillingController) HandleZaloPayCallback(ctx echo.Context) error {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return ctx.JSON(http.StatusOK, &types.ZaloPayCallbackResponse{ReturnCode: 0, ReturnMessage: "unreadable payload"})
	}

	result, err := c.billingService.Settle(ctx.Request().Context(), int32(types.ProviderTypeZaloPay), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCallbackSignature):
			return ctx.JSON(http.StatusOK, &types.ZaloPayCallbackResponse{ReturnCode: -1, ReturnMessage: "mac not equal"})
		case errors.Is(err, service.ErrCallbackRejected):
			return ctx.JSON(http.StatusOK, &types.ZaloPayCallbackResponse{ReturnCode: 0, ReturnMessage: err.Error()})
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("ZaloPay callback failed")
			return ctx.JSON(http.StatusOK, &types.ZaloPayCallbackResponse{ReturnCode: 0, ReturnMessage: "internal error"})
		}
	}

	message := "success"
	if result.Duplicate {
		message = "duplicate"
	}
	return ctx.JSON(http.StatusOK, &types.ZaloPayCallbackResponse{ReturnCode: 1, ReturnMessage: message})
}

// HandleVNPayReturn validates the redirect's secure hash. It reports what
// the gateway claims but settles nothing.
func (c *BillingController) HandleVNPayReturn(ctx echo.Context) error {
	query := map[string]string{}
	for key, values := range ctx.QueryParams() {
		if len(values) > 0 {
			query[key] = values[0]
		}
	}

	result, err := c.billingService.VerifyVNPayReturn(ctx.Request().Context(), int32(types.ProviderTypeVNPay), query)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCallbackSignature), errors.Is(err, service.ErrCallbackRejected):
			return ctx.JSON(http.StatusBadRequest, &types.VNPayReturnResponse{Status: "invalid", Message: "signature verification failed"})
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("VNPay return failed")
			return ctx.JSON(http.StatusInternalServerError, &types.VNPayReturnResponse{Status: "error"})
		}
	}

	status := "failed"
	if result.Succeeded {
		status = "paid"
	}
	return ctx.JSON(http.StatusOK, &types.VNPayReturnResponse{
		Status:        status,
		TransactionID: result.TransactionID,
		Message:       result.Reason,
	})
}

func (c *BillingController) ListLedger(ctx echo.Context) error {
	req, err := types.NewListLedgerRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.billingService.ListLedger(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List ledger failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListLedgerResponse{Entries: mapper.LedgerEntriesToResponse(items)})
}

func (c *BillingController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
