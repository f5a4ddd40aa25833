package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skybox-cloud/ms-go-billing/app/signature"
	"github.com/skybox-cloud/ms-go-billing/app/types"
)

type ZaloPayConfig struct {
	AppID       string
	Key1        string
	Key2        string
	Endpoint    string
	CallbackURL string
	HTTPTimeout time.Duration
}

type ZaloPayProvider struct {
	cfg    ZaloPayConfig
	client *http.Client
}

func NewZaloPayProvider(cfg ZaloPayConfig) *ZaloPayProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ZaloPayProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *ZaloPayProvider) Code() int32 {
	return int32(types.ProviderTypeZaloPay)
}

func (p *ZaloPayProvider) Name() string {
	return "zalopay"
}

type zaloPayEmbed struct {
	Plan     string `json:"plan"`
	Username string `json:"username"`
}

func (p *ZaloPayProvider) CreateOrder(ctx context.Context, input *OrderInput) (*OrderOutput, error) {
	if strings.TrimSpace(p.cfg.Key1) == "" || strings.TrimSpace(p.cfg.AppID) == "" {
		return nil, errors.New("zalopay app credentials are not configured")
	}

	now := time.Now()
	appTransID := now.Format("060102") + "_" + strconv.FormatInt(now.Unix(), 10)
	appTime := strconv.FormatInt(now.UnixMilli(), 10)
	amount := strconv.FormatInt(input.Plan.Amount, 10)

	embedJSON, err := json.Marshal(zaloPayEmbed{Plan: input.Plan.ID, Username: input.Username})
	if err != nil {
		return nil, err
	}
	embedData := string(embedJSON)
	item := "[]"

	// Order creation signs with key1; key2 is reserved for callbacks.
	mac := signature.SignZaloPayOrder(signature.ZaloPayOrder{
		AppID:      p.cfg.AppID,
		AppTransID: appTransID,
		AppUser:    input.Username,
		Amount:     amount,
		AppTime:    appTime,
		EmbedData:  embedData,
		Item:       item,
	}, p.cfg.Key1)

	values := url.Values{}
	values.Set("app_id", p.cfg.AppID)
	values.Set("app_trans_id", appTransID)
	values.Set("app_user", input.Username)
	values.Set("amount", amount)
	values.Set("app_time", appTime)
	values.Set("embed_data", embedData)
	values.Set("item", item)
	values.Set("description", fmt.Sprintf("Thanh toan goi %s cho nguoi dung %s", input.Plan.ID, input.Username))
	values.Set("callback_url", p.cfg.CallbackURL)
	values.Set("mac", mac)

	body, err := p.postForm(ctx, values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ReturnCode    json.Number `json:"return_code"`
		ReturnMessage string      `json:"return_message"`
		OrderURL      string      `json:"order_url"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload.ReturnCode.String() != "1" {
		return nil, fmt.Errorf("zalopay create order rejected: return_code=%s message=%s", payload.ReturnCode, payload.ReturnMessage)
	}
	if strings.TrimSpace(payload.OrderURL) == "" {
		return nil, errors.New("zalopay create order returned no order_url")
	}

	return &OrderOutput{
		TransactionID: appTransID,
		PayURL:        payload.OrderURL,
		SignedAmount:  input.Plan.Amount,
	}, nil
}

func (p *ZaloPayProvider) VerifyCallback(_ context.Context, payload []byte) (*CallbackResult, error) {
	var envelope struct {
		Data string `json:"data"`
		MAC  string `json:"mac"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(envelope.Data) == "" || strings.TrimSpace(envelope.MAC) == "" {
		return nil, fmt.Errorf("%w: data and mac are required", ErrMalformedPayload)
	}

	// The mac covers the raw data string as delivered, verified with key2.
	if !signature.VerifyZaloPayCallback(envelope.Data, p.cfg.Key2, envelope.MAC) {
		return nil, ErrBadSignature
	}

	var data struct {
		AppTransID string      `json:"app_trans_id"`
		AppUser    string      `json:"app_user"`
		Amount     json.Number `json:"amount"`
		EmbedData  string      `json:"embed_data"`
	}
	if err := json.Unmarshal([]byte(envelope.Data), &data); err != nil {
		return nil, fmt.Errorf("%w: data is not valid JSON", ErrMalformedPayload)
	}
	if strings.TrimSpace(data.AppTransID) == "" {
		return nil, fmt.Errorf("%w: app_trans_id is required", ErrMalformedPayload)
	}

	amount, err := data.Amount.Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: amount is not an integer", ErrMalformedPayload)
	}

	// ZaloPay only delivers the callback for completed payments.
	result := &CallbackResult{
		TransactionID: data.AppTransID,
		Username:      strings.TrimSpace(data.AppUser),
		Amount:        amount,
		Succeeded:     true,
	}

	if strings.TrimSpace(data.EmbedData) != "" {
		var embed zaloPayEmbed
		if json.Unmarshal([]byte(data.EmbedData), &embed) == nil {
			if embed.Plan != "" {
				result.PlanID = embed.Plan
			}
			if embed.Username != "" {
				result.Username = embed.Username
			}
		}
	}

	return result, nil
}

func (p *ZaloPayProvider) postForm(ctx context.Context, values url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("zalopay request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	return body, nil
}
