package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skybox-cloud/ms-go-billing/app/entity"
	"github.com/skybox-cloud/ms-go-billing/app/signature"
)

func momoTestConfig(endpoint string) MoMoConfig {
	return MoMoConfig{
		PartnerCode: "PARTNER",
		AccessKey:   "access-key",
		SecretKey:   "secret-key",
		Endpoint:    endpoint,
		RedirectURL: "https://app.example/return",
		IPNURL:      "https://app.example/payments/momo/ipn",
	}
}

func TestMoMoCreateOrderSignsAndParsesPayURL(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode create order body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"resultCode": 0,
			"payUrl":     "https://pay.momo.example/order",
		})
	}))
	defer server.Close()

	p := NewMoMoProvider(momoTestConfig(server.URL))
	out, err := p.CreateOrder(context.Background(), &OrderInput{
		Username: "alice",
		Plan:     entity.Plan{ID: "basic", Amount: 50000, Quota: "10GB"},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if out.PayURL != "https://pay.momo.example/order" {
		t.Fatalf("unexpected pay url: %s", out.PayURL)
	}
	if out.SignedAmount != 50000 {
		t.Fatalf("expected whole-unit amount 50000, got %d", out.SignedAmount)
	}

	// The request signature must cover the fields in MoMo's fixed order.
	want := signature.SignMoMo([]signature.Field{
		{Key: "accessKey", Value: received["accessKey"]},
		{Key: "amount", Value: received["amount"]},
		{Key: "extraData", Value: received["extraData"]},
		{Key: "ipnUrl", Value: received["ipnUrl"]},
		{Key: "orderId", Value: received["orderId"]},
		{Key: "orderInfo", Value: received["orderInfo"]},
		{Key: "partnerCode", Value: received["partnerCode"]},
		{Key: "redirectUrl", Value: received["redirectUrl"]},
		{Key: "requestId", Value: received["requestId"]},
		{Key: "requestType", Value: received["requestType"]},
	}, "secret-key")
	if received["signature"] != want {
		t.Fatalf("request signature mismatch: got %s want %s", received["signature"], want)
	}
	if received["amount"] != "50000" {
		t.Fatalf("expected momo amount in whole units, got %s", received["amount"])
	}
	if out.TransactionID != received["orderId"] {
		t.Fatalf("transaction id %s does not match sent orderId %s", out.TransactionID, received["orderId"])
	}
}

func TestMoMoCreateOrderRejectedResultCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"resultCode": 41, "message": "duplicate orderId"})
	}))
	defer server.Close()

	p := NewMoMoProvider(momoTestConfig(server.URL))
	_, err := p.CreateOrder(context.Background(), &OrderInput{
		Username: "alice",
		Plan:     entity.Plan{ID: "basic", Amount: 50000},
	})
	if err == nil {
		t.Fatal("expected error for non-zero resultCode")
	}
}

func momoIPNPayload(t *testing.T, secret string, mutate func(map[string]any)) []byte {
	t.Helper()
	extraJSON, _ := json.Marshal(momoExtra{Plan: "basic", Username: "alice"})
	extra := base64.StdEncoding.EncodeToString(extraJSON)

	fields := map[string]any{
		"partnerCode":  "PARTNER",
		"accessKey":    "access-key",
		"requestId":    "req-1",
		"orderId":      "MOMO1700000000",
		"amount":       50000,
		"orderInfo":    "Thanh toan goi basic cho nguoi dung alice",
		"orderType":    "momo_wallet",
		"transId":      987654321,
		"resultCode":   0,
		"message":      "Successful.",
		"payType":      "qr",
		"responseTime": 1700000001000,
		"extraData":    extra,
	}

	tag := signature.SignMoMo([]signature.Field{
		{Key: "accessKey", Value: "access-key"},
		{Key: "amount", Value: "50000"},
		{Key: "extraData", Value: extra},
		{Key: "message", Value: "Successful."},
		{Key: "orderId", Value: "MOMO1700000000"},
		{Key: "orderInfo", Value: "Thanh toan goi basic cho nguoi dung alice"},
		{Key: "orderType", Value: "momo_wallet"},
		{Key: "partnerCode", Value: "PARTNER"},
		{Key: "payType", Value: "qr"},
		{Key: "requestId", Value: "req-1"},
		{Key: "responseTime", Value: "1700000001000"},
		{Key: "resultCode", Value: "0"},
		{Key: "transId", Value: "987654321"},
	}, secret)
	fields["signature"] = tag

	if mutate != nil {
		mutate(fields)
	}

	payload, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal ipn payload: %v", err)
	}
	return payload
}

func TestMoMoVerifyCallbackAccepts(t *testing.T) {
	p := NewMoMoProvider(momoTestConfig("http://unused"))
	result, err := p.VerifyCallback(context.Background(), momoIPNPayload(t, "secret-key", nil))
	if err != nil {
		t.Fatalf("verify callback failed: %v", err)
	}
	if result.TransactionID != "MOMO1700000000" {
		t.Fatalf("unexpected transaction id: %s", result.TransactionID)
	}
	if result.Amount != 50000 || !result.Succeeded {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.PlanID != "basic" || result.Username != "alice" {
		t.Fatalf("expected extraData metadata to be decoded, got %+v", result)
	}
}

func TestMoMoVerifyCallbackTamperedAmount(t *testing.T) {
	p := NewMoMoProvider(momoTestConfig("http://unused"))
	payload := momoIPNPayload(t, "secret-key", func(fields map[string]any) {
		fields["amount"] = 1
	})
	_, err := p.VerifyCallback(context.Background(), payload)
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestMoMoVerifyCallbackFailedPaymentStillVerifies(t *testing.T) {
	p := NewMoMoProvider(momoTestConfig("http://unused"))
	extraJSON, _ := json.Marshal(momoExtra{Plan: "basic", Username: "alice"})
	extra := base64.StdEncoding.EncodeToString(extraJSON)

	tag := signature.SignMoMo([]signature.Field{
		{Key: "accessKey", Value: "access-key"},
		{Key: "amount", Value: "50000"},
		{Key: "extraData", Value: extra},
		{Key: "message", Value: "Transaction denied"},
		{Key: "orderId", Value: "MOMO1700000001"},
		{Key: "orderInfo", Value: "Thanh toan goi basic cho nguoi dung alice"},
		{Key: "orderType", Value: "momo_wallet"},
		{Key: "partnerCode", Value: "PARTNER"},
		{Key: "payType", Value: "qr"},
		{Key: "requestId", Value: "req-2"},
		{Key: "responseTime", Value: "1700000002000"},
		{Key: "resultCode", Value: "1006"},
		{Key: "transId", Value: "987654322"},
	}, "secret-key")

	payload, _ := json.Marshal(map[string]any{
		"partnerCode": "PARTNER", "accessKey": "access-key", "requestId": "req-2",
		"orderId": "MOMO1700000001", "amount": 50000,
		"orderInfo": "Thanh toan goi basic cho nguoi dung alice", "orderType": "momo_wallet",
		"transId": 987654322, "resultCode": 1006, "message": "Transaction denied",
		"payType": "qr", "responseTime": 1700000002000, "extraData": extra,
		"signature": tag,
	})

	result, err := p.VerifyCallback(context.Background(), payload)
	if err != nil {
		t.Fatalf("verify callback failed: %v", err)
	}
	if result.Succeeded {
		t.Fatal("expected denied payment to verify but not succeed")
	}
}

func TestMoMoVerifyCallbackMalformed(t *testing.T) {
	p := NewMoMoProvider(momoTestConfig("http://unused"))
	if _, err := p.VerifyCallback(context.Background(), []byte("not json")); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	if _, err := p.VerifyCallback(context.Background(), []byte(`{"amount":1}`)); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload for missing fields, got %v", err)
	}
}
