package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skybox-cloud/ms-go-billing/app/signature"
	"github.com/skybox-cloud/ms-go-billing/app/types"
)

type MoMoConfig struct {
	PartnerCode string
	AccessKey   string
	SecretKey   string
	Endpoint    string
	RedirectURL string
	IPNURL      string
	HTTPTimeout time.Duration
}

type MoMoProvider struct {
	cfg    MoMoConfig
	client *http.Client
}

func NewMoMoProvider(cfg MoMoConfig) *MoMoProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MoMoProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *MoMoProvider) Code() int32 {
	return int32(types.ProviderTypeMoMo)
}

func (p *MoMoProvider) Name() string {
	return "momo"
}

// momoExtra travels through MoMo's opaque extraData field (base64 JSON) so
// the callback can resolve the plan without guessing from the amount.
type momoExtra struct {
	Plan     string `json:"plan"`
	Username string `json:"username"`
}

func (p *MoMoProvider) CreateOrder(ctx context.Context, input *OrderInput) (*OrderOutput, error) {
	if strings.TrimSpace(p.cfg.SecretKey) == "" || strings.TrimSpace(p.cfg.AccessKey) == "" {
		return nil, errors.New("momo keys are not configured")
	}

	orderID := "MOMO" + strconv.FormatInt(time.Now().Unix(), 10)
	requestID := uuid.NewString()
	amount := strconv.FormatInt(input.Plan.Amount, 10)
	orderInfo := fmt.Sprintf("Thanh toan goi %s cho nguoi dung %s", input.Plan.ID, input.Username)

	extraJSON, err := json.Marshal(momoExtra{Plan: input.Plan.ID, Username: input.Username})
	if err != nil {
		return nil, err
	}
	extraData := base64.StdEncoding.EncodeToString(extraJSON)

	// Field order is part of the MoMo contract; keep it as an explicit list.
	tag := signature.SignMoMo([]signature.Field{
		{Key: "accessKey", Value: p.cfg.AccessKey},
		{Key: "amount", Value: amount},
		{Key: "extraData", Value: extraData},
		{Key: "ipnUrl", Value: p.cfg.IPNURL},
		{Key: "orderId", Value: orderID},
		{Key: "orderInfo", Value: orderInfo},
		{Key: "partnerCode", Value: p.cfg.PartnerCode},
		{Key: "redirectUrl", Value: p.cfg.RedirectURL},
		{Key: "requestId", Value: requestID},
		{Key: "requestType", Value: "captureWallet"},
	}, p.cfg.SecretKey)

	body, err := json.Marshal(map[string]string{
		"partnerCode": p.cfg.PartnerCode,
		"accessKey":   p.cfg.AccessKey,
		"requestId":   requestID,
		"amount":      amount,
		"orderId":     orderID,
		"orderInfo":   orderInfo,
		"redirectUrl": p.cfg.RedirectURL,
		"ipnUrl":      p.cfg.IPNURL,
		"extraData":   extraData,
		"requestType": "captureWallet",
		"signature":   tag,
		"lang":        "vi",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("momo create order failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var payload struct {
		ResultCode json.Number `json:"resultCode"`
		Message    string      `json:"message"`
		PayURL     string      `json:"payUrl"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, err
	}
	if payload.ResultCode.String() != "0" {
		return nil, fmt.Errorf("momo create order rejected: resultCode=%s message=%s", payload.ResultCode, payload.Message)
	}
	if strings.TrimSpace(payload.PayURL) == "" {
		return nil, errors.New("momo create order returned no payUrl")
	}

	return &OrderOutput{
		TransactionID: orderID,
		PayURL:        payload.PayURL,
		SignedAmount:  input.Plan.Amount,
	}, nil
}

type momoIPN struct {
	PartnerCode  string      `json:"partnerCode"`
	AccessKey    string      `json:"accessKey"`
	RequestID    string      `json:"requestId"`
	OrderID      string      `json:"orderId"`
	Amount       json.Number `json:"amount"`
	OrderInfo    string      `json:"orderInfo"`
	OrderType    string      `json:"orderType"`
	TransID      json.Number `json:"transId"`
	ResultCode   json.Number `json:"resultCode"`
	Message      string      `json:"message"`
	PayType      string      `json:"payType"`
	ResponseTime json.Number `json:"responseTime"`
	ExtraData    string      `json:"extraData"`
	Signature    string      `json:"signature"`
}

func (p *MoMoProvider) VerifyCallback(_ context.Context, payload []byte) (*CallbackResult, error) {
	var ipn momoIPN
	if err := json.Unmarshal(payload, &ipn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(ipn.OrderID) == "" || strings.TrimSpace(ipn.Signature) == "" {
		return nil, fmt.Errorf("%w: orderId and signature are required", ErrMalformedPayload)
	}

	accessKey := ipn.AccessKey
	if accessKey == "" {
		accessKey = p.cfg.AccessKey
	}

	// The IPN field list differs from the create-order list; both orders
	// are provider-defined.
	ok := signature.VerifyMoMo([]signature.Field{
		{Key: "accessKey", Value: accessKey},
		{Key: "amount", Value: ipn.Amount.String()},
		{Key: "extraData", Value: ipn.ExtraData},
		{Key: "message", Value: ipn.Message},
		{Key: "orderId", Value: ipn.OrderID},
		{Key: "orderInfo", Value: ipn.OrderInfo},
		{Key: "orderType", Value: ipn.OrderType},
		{Key: "partnerCode", Value: ipn.PartnerCode},
		{Key: "payType", Value: ipn.PayType},
		{Key: "requestId", Value: ipn.RequestID},
		{Key: "responseTime", Value: ipn.ResponseTime.String()},
		{Key: "resultCode", Value: ipn.ResultCode.String()},
		{Key: "transId", Value: ipn.TransID.String()},
	}, p.cfg.SecretKey, ipn.Signature)
	if !ok {
		return nil, ErrBadSignature
	}

	amount, err := ipn.Amount.Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: amount is not an integer", ErrMalformedPayload)
	}

	result := &CallbackResult{
		TransactionID: ipn.OrderID,
		Amount:        amount,
		Succeeded:     ipn.ResultCode.String() == "0",
		Reason:        strings.TrimSpace(ipn.Message),
	}

	if extra := decodeMoMoExtra(ipn.ExtraData); extra != nil {
		result.PlanID = extra.Plan
		result.Username = extra.Username
	}

	return result, nil
}

func decodeMoMoExtra(extraData string) *momoExtra {
	if strings.TrimSpace(extraData) == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(extraData)
	if err != nil {
		return nil
	}
	var extra momoExtra
	if json.Unmarshal(raw, &extra) != nil {
		return nil
	}
	return &extra
}
