package nextcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the Nextcloud user provisioning API to set storage
// quotas after a payment settles.
type Client struct {
	baseURL       string
	adminUser     string
	adminPassword string
	client        *http.Client
}

type Config struct {
	BaseURL       string
	AdminUser     string
	AdminPassword string
	HTTPTimeout   time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		adminUser:     cfg.AdminUser,
		adminPassword: cfg.AdminPassword,
		client:        &http.Client{Timeout: timeout},
	}
}

type ocsEnvelope struct {
	OCS struct {
		Meta struct {
			Status     string `json:"status"`
			StatusCode int    `json:"statuscode"`
			Message    string `json:"message"`
		} `json:"meta"`
	} `json:"ocs"`
}

// SetQuota updates the user's quota, e.g. "50GB". The provisioning API
// reports errors inside a 200 response, so the OCS status code is the
// source of truth.
func (c *Client) SetQuota(ctx context.Context, username, quota string) error {
	endpoint := c.baseURL + "/ocs/v1.php/cloud/users/" + url.PathEscape(username) + "?format=json"

	form := url.Values{}
	form.Set("key", "quota")
	form.Set("value", quota)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("OCS-APIRequest", "true")
	req.SetBasicAuth(c.adminUser, c.adminPassword)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("nextcloud quota update failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var envelope ocsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("nextcloud quota update returned invalid response: %w", err)
	}
	if envelope.OCS.Meta.StatusCode != 100 {
		return fmt.Errorf("nextcloud quota update rejected: statuscode=%d status=%s message=%s",
			envelope.OCS.Meta.StatusCode, envelope.OCS.Meta.Status, envelope.OCS.Meta.Message)
	}

	return nil
}
