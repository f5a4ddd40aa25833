//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/skybox-cloud/ms-go-billing/app/types"
)

const defaultBillingHTTPBase = "http://localhost:48080"

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient() *httpClient {
	baseURL := strings.TrimSpace(os.Getenv("BILLING_HTTP_BASE"))
	if baseURL == "" {
		baseURL = defaultBillingHTTPBase
	}
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return resp.StatusCode, respBody
}

func TestHealthEndpoint(t *testing.T) {
	client := newHTTPClient()
	code, body := client.do(t, http.MethodGet, "/health", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", code, string(body))
	}

	var resp types.HealthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("parse health response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("unexpected health status: %s", resp.Status)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	client := newHTTPClient()

	code, _ := client.do(t, http.MethodPost, "/payments/paypal/orders", map[string]string{
		"username": "alice", "plan": "basic",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported provider, got %d", code)
	}

	code, _ = client.do(t, http.MethodPost, "/payments/momo/orders", map[string]string{
		"plan": "basic",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing username, got %d", code)
	}

	code, _ = client.do(t, http.MethodPost, "/payments/momo/orders", map[string]string{
		"username": "alice", "plan": "no-such-plan",
	})
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown plan, got %d", code)
	}
}

func TestZaloPayCallbackBadMAC(t *testing.T) {
	client := newHTTPClient()

	code, body := client.do(t, http.MethodPost, "/payments/zalopay/callback", map[string]string{
		"data": `{"app_trans_id":"231114_1","app_user":"alice","amount":50000}`,
		"mac":  "deadbeef",
	})
	if code != http.StatusOK {
		t.Fatalf("zalopay acks travel in the body, expected 200 got %d", code)
	}

	var resp types.ZaloPayCallbackResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("parse callback response: %v", err)
	}
	if resp.ReturnCode != -1 {
		t.Fatalf("expected return_code -1 for bad mac, got %+v", resp)
	}
}

func TestMoMoIPNRejectsUnsigned(t *testing.T) {
	client := newHTTPClient()

	code, body := client.do(t, http.MethodPost, "/payments/momo/ipn", map[string]any{
		"orderId":   "MOMO1700000000",
		"amount":    50000,
		"signature": "deadbeef",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsigned ipn, got %d body=%s", code, string(body))
	}
}

func TestVNPayReturnRejectsBadHash(t *testing.T) {
	client := newHTTPClient()
	code, _ := client.do(t, http.MethodGet, "/payments/vnpay/return?vnp_TxnRef=x&vnp_Amount=1&vnp_SecureHash=deadbeef", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad secure hash, got %d", code)
	}
}

func TestListLedger(t *testing.T) {
	client := newHTTPClient()
	code, body := client.do(t, http.MethodGet, "/ledger?limit=10", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", code, string(body))
	}

	var resp types.ListLedgerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("parse ledger response: %v", err)
	}
	if resp.Entries == nil {
		t.Fatal("expected entries array")
	}
}
