package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type CreateOrderRequest struct {
	Username string `json:"username" form:"username"`
	Plan     string `json:"plan" form:"plan"`

	ClientIP string `json:"-" form:"-"`
}

func NewCreateOrderRequestFromContext(ctx echo.Context) (*CreateOrderRequest, error) {
	var body CreateOrderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Username = strings.TrimSpace(body.Username)
	body.Plan = strings.TrimSpace(body.Plan)
	body.ClientIP = ctx.RealIP()

	return &body, nil
}

func (r *CreateOrderRequest) Validate() error {
	if r.Username == "" {
		return errors.New("username is required")
	}
	if r.Plan == "" {
		return errors.New("plan is required")
	}
	return nil
}

type OrderResponse struct {
	OrderID  string `json:"order_id"`
	PayURL   string `json:"pay_url"`
	Provider string `json:"provider"`
	Plan     string `json:"plan"`
	Amount   int64  `json:"amount"`
}

// MoMoIPNResponse is the flat JSON status object MoMo's retry loop expects.
type MoMoIPNResponse struct {
	Status string `json:"status"`
}

// ZaloPayCallbackResponse is ZaloPay's numeric ack contract: 1 stops the
// retries, anything else makes ZaloPay redeliver.
type ZaloPayCallbackResponse struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
}

type VNPayReturnResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	Message       string `json:"message,omitempty"`
}

type LedgerEntry struct {
	ID            uint64 `json:"id"`
	TransactionID string `json:"transaction_id"`
	Provider      string `json:"provider"`
	Username      string `json:"username"`
	Plan          string `json:"plan"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	SettledAt     string `json:"settled_at"`
}

type ListLedgerResponse struct {
	Entries []*LedgerEntry `json:"entries"`
}

type ListLedgerRequest struct {
	Username string
	Provider ProviderType
	Limit    int32
	Offset   int32
}

func NewListLedgerRequestFromContext(ctx echo.Context) (*ListLedgerRequest, error) {
	req := &ListLedgerRequest{
		Username: strings.TrimSpace(ctx.QueryParam("username")),
		Limit:    100,
		Offset:   0,
	}

	providerRaw := strings.TrimSpace(strings.ToLower(ctx.QueryParam("provider")))
	if providerRaw != "" {
		switch providerRaw {
		case "1", "momo":
			req.Provider = ProviderTypeMoMo
		case "2", "vnpay":
			req.Provider = ProviderTypeVNPay
		case "3", "zalopay":
			req.Provider = ProviderTypeZaloPay
		default:
			return nil, errors.New("invalid provider")
		}
	}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}

	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListLedgerRequest) Validate() error {
	if r.Limit <= 0 || r.Limit > 500 {
		return errors.New("limit must be between 1 and 500")
	}
	if r.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}
