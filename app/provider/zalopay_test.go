package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/skybox-cloud/ms-go-billing/app/entity"
	"github.com/skybox-cloud/ms-go-billing/app/signature"
)

func zaloPayTestConfig(endpoint string) ZaloPayConfig {
	return ZaloPayConfig{
		AppID:       "2553",
		Key1:        "order-key",
		Key2:        "callback-key",
		Endpoint:    endpoint,
		CallbackURL: "https://app.example/payments/zalopay/callback",
	}
}

func TestZaloPayCreateOrderSignsWithKey1(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var err error
		form, err = url.ParseQuery(string(body))
		if err != nil {
			t.Fatalf("parse form body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"return_code": 1,
			"order_url":   "https://pay.zalopay.example/order",
		})
	}))
	defer server.Close()

	p := NewZaloPayProvider(zaloPayTestConfig(server.URL))
	out, err := p.CreateOrder(context.Background(), &OrderInput{
		Username: "alice",
		Plan:     entity.Plan{ID: "premium", Amount: 200000, Quota: "200GB"},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if out.PayURL != "https://pay.zalopay.example/order" {
		t.Fatalf("unexpected pay url: %s", out.PayURL)
	}
	if out.TransactionID != form.Get("app_trans_id") {
		t.Fatalf("transaction id %s does not match app_trans_id %s", out.TransactionID, form.Get("app_trans_id"))
	}
	if !strings.Contains(out.TransactionID, "_") {
		t.Fatalf("expected yymmdd_unix app_trans_id, got %s", out.TransactionID)
	}
	if form.Get("amount") != "200000" {
		t.Fatalf("unexpected amount: %s", form.Get("amount"))
	}

	want := signature.SignZaloPayOrder(signature.ZaloPayOrder{
		AppID:      form.Get("app_id"),
		AppTransID: form.Get("app_trans_id"),
		AppUser:    form.Get("app_user"),
		Amount:     form.Get("amount"),
		AppTime:    form.Get("app_time"),
		EmbedData:  form.Get("embed_data"),
		Item:       form.Get("item"),
	}, "order-key")
	if form.Get("mac") != want {
		t.Fatalf("order mac mismatch: got %s want %s", form.Get("mac"), want)
	}

	var embed zaloPayEmbed
	if err := json.Unmarshal([]byte(form.Get("embed_data")), &embed); err != nil {
		t.Fatalf("embed_data is not JSON: %v", err)
	}
	if embed.Plan != "premium" || embed.Username != "alice" {
		t.Fatalf("unexpected embed_data: %+v", embed)
	}
}

func TestZaloPayCreateOrderRejectedReturnCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"return_code": 2, "return_message": "invalid mac"})
	}))
	defer server.Close()

	p := NewZaloPayProvider(zaloPayTestConfig(server.URL))
	if _, err := p.CreateOrder(context.Background(), &OrderInput{
		Username: "alice",
		Plan:     entity.Plan{ID: "basic", Amount: 50000},
	}); err == nil {
		t.Fatal("expected error for non-1 return_code")
	}
}

func zaloPayCallbackPayload(t *testing.T, key2 string, mutate func(map[string]string)) []byte {
	t.Helper()
	embedJSON, _ := json.Marshal(zaloPayEmbed{Plan: "premium", Username: "alice"})
	dataJSON, err := json.Marshal(map[string]any{
		"app_id":       2553,
		"app_trans_id": "231114_1700000000",
		"app_user":     "alice",
		"amount":       200000,
		"app_time":     1700000000000,
		"embed_data":   string(embedJSON),
		"zp_trans_id":  231114000000001,
	})
	if err != nil {
		t.Fatalf("marshal callback data: %v", err)
	}

	envelope := map[string]string{
		"data": string(dataJSON),
		"mac":  signature.SignZaloPayCallback(string(dataJSON), key2),
		"type": "1",
	}
	if mutate != nil {
		mutate(envelope)
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal callback envelope: %v", err)
	}
	return payload
}

func TestZaloPayVerifyCallbackAccepts(t *testing.T) {
	p := NewZaloPayProvider(zaloPayTestConfig("http://unused"))
	result, err := p.VerifyCallback(context.Background(), zaloPayCallbackPayload(t, "callback-key", nil))
	if err != nil {
		t.Fatalf("verify callback failed: %v", err)
	}
	if result.TransactionID != "231114_1700000000" {
		t.Fatalf("unexpected transaction id: %s", result.TransactionID)
	}
	if result.Amount != 200000 || !result.Succeeded {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.PlanID != "premium" || result.Username != "alice" {
		t.Fatalf("expected embed_data metadata to be decoded, got %+v", result)
	}
}

func TestZaloPayVerifyCallbackRejectsTamperedData(t *testing.T) {
	p := NewZaloPayProvider(zaloPayTestConfig("http://unused"))
	payload := zaloPayCallbackPayload(t, "callback-key", func(envelope map[string]string) {
		envelope["data"] = strings.Replace(envelope["data"], "200000", "1", 1)
	})
	if _, err := p.VerifyCallback(context.Background(), payload); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestZaloPayVerifyCallbackRejectsOrderKeyMAC(t *testing.T) {
	// A mac computed with the order key must not pass callback verification.
	p := NewZaloPayProvider(zaloPayTestConfig("http://unused"))
	if _, err := p.VerifyCallback(context.Background(), zaloPayCallbackPayload(t, "order-key", nil)); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestZaloPayVerifyCallbackMalformed(t *testing.T) {
	p := NewZaloPayProvider(zaloPayTestConfig("http://unused"))
	if _, err := p.VerifyCallback(context.Background(), []byte("not json")); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	if _, err := p.VerifyCallback(context.Background(), []byte(`{"data":""}`)); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload for empty envelope, got %v", err)
	}
}

func TestRegistryLookup(t *testing.T) {
	momo := NewMoMoProvider(momoTestConfig("http://unused"))
	registry := NewRegistry(momo, NewVNPayProvider(vnpayTestConfig()))

	p, err := registry.Get(momo.Code())
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if p.Name() != "momo" {
		t.Fatalf("unexpected provider: %s", p.Name())
	}

	if _, err := registry.Get(99); !errors.Is(err, ErrProviderNotSupported) {
		t.Fatalf("expected ErrProviderNotSupported, got %v", err)
	}
}
