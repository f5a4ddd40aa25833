package provider

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skybox-cloud/ms-go-billing/app/signature"
	"github.com/skybox-cloud/ms-go-billing/app/types"
)

type VNPayConfig struct {
	TmnCode     string
	HashSecret  string
	PaymentURL  string
	ReturnURL   string
	OrderExpiry time.Duration
}

// VNPayProvider builds signed redirect URLs. VNPay is return-URL only in
// this integration: there is no verified server-to-server notify channel,
// so VerifyCallback always refuses and VNPay payments never settle through
// the ledger. This is a known gap carried over deliberately; see DESIGN.md.
type VNPayProvider struct {
	cfg VNPayConfig
}

func NewVNPayProvider(cfg VNPayConfig) *VNPayProvider {
	if cfg.OrderExpiry <= 0 {
		cfg.OrderExpiry = 15 * time.Minute
	}
	return &VNPayProvider{cfg: cfg}
}

func (p *VNPayProvider) Code() int32 {
	return int32(types.ProviderTypeVNPay)
}

func (p *VNPayProvider) Name() string {
	return "vnpay"
}

const vnpayDateLayout = "20060102150405"

func (p *VNPayProvider) CreateOrder(_ context.Context, input *OrderInput) (*OrderOutput, error) {
	if strings.TrimSpace(p.cfg.HashSecret) == "" || strings.TrimSpace(p.cfg.TmnCode) == "" {
		return nil, errors.New("vnpay credentials are not configured")
	}

	now := time.Now()
	expiresAt := now.Add(p.cfg.OrderExpiry)

	orderID, err := randomDigits(10)
	if err != nil {
		return nil, err
	}
	txnRef := orderID + "-" + strconv.FormatInt(now.Unix(), 10)

	// VNPay prices in minor currency units.
	amount := input.Plan.Amount * 100

	clientIP := strings.TrimSpace(input.ClientIP)
	if clientIP == "" {
		clientIP = "127.0.0.1"
	}

	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    p.cfg.TmnCode,
		"vnp_Amount":     strconv.FormatInt(amount, 10),
		"vnp_CurrCode":   "VND",
		"vnp_TxnRef":     txnRef,
		"vnp_OrderInfo":  fmt.Sprintf("Thanh toan goi %s cho nguoi dung %s", input.Plan.ID, input.Username),
		"vnp_OrderType":  "other",
		"vnp_Locale":     "vn",
		"vnp_ReturnUrl":  p.cfg.ReturnURL,
		"vnp_IpAddr":     clientIP,
		"vnp_CreateDate": now.Format(vnpayDateLayout),
		"vnp_ExpireDate": expiresAt.Format(vnpayDateLayout),
	}
	params[vnpSecureHashField] = signature.SignVNPay(params, p.cfg.HashSecret)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	return &OrderOutput{
		TransactionID: txnRef,
		PayURL:        p.cfg.PaymentURL + "?" + values.Encode(),
		SignedAmount:  amount,
		ExpiresAt:     &expiresAt,
	}, nil
}

func (p *VNPayProvider) VerifyCallback(context.Context, []byte) (*CallbackResult, error) {
	return nil, ErrCallbackUnsupported
}

// VerifyReturn validates the secure hash on the browser return redirect.
// The return URL proves nothing about money movement on its own, so this
// is informational only and performs no settlement.
func (p *VNPayProvider) VerifyReturn(query map[string]string) (*CallbackResult, error) {
	expected := strings.TrimSpace(query[vnpSecureHashField])
	if expected == "" {
		return nil, fmt.Errorf("%w: %s is required", ErrMalformedPayload, vnpSecureHashField)
	}
	txnRef := strings.TrimSpace(query["vnp_TxnRef"])
	if txnRef == "" {
		return nil, fmt.Errorf("%w: vnp_TxnRef is required", ErrMalformedPayload)
	}

	if !signature.VerifyVNPay(query, p.cfg.HashSecret, expected) {
		return nil, ErrBadSignature
	}

	amount, err := strconv.ParseInt(query["vnp_Amount"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: vnp_Amount is not an integer", ErrMalformedPayload)
	}

	return &CallbackResult{
		TransactionID: txnRef,
		Amount:        amount / 100,
		Succeeded:     query["vnp_ResponseCode"] == "00",
		Reason:        query["vnp_ResponseCode"],
	}, nil
}

const vnpSecureHashField = "vnp_SecureHash"

func randomDigits(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	digits := make([]byte, n)
	for i, b := range raw {
		digits[i] = '0' + b%10
	}
	return string(digits), nil
}
