package promotion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Coupon is the promotion-coupon-service verification result.
type Coupon struct {
	Code            string  `json:"code"`
	Valid           bool    `json:"valid"`
	DiscountPercent float64 `json:"discountPercent"`
}

// Service defines what the booking engine needs from the promotion service.
// Both calls are best-effort: any failure degrades to zero discount.
type Service interface {
	VerifyCoupon(ctx context.Context, code string) (*Coupon, error)
	ApplyCoupon(ctx context.Context, code string, amount float64) (float64, error)
}

// HTTPClient is a Service backed by the promotion-coupon-service HTTP API.
type HTTPClient struct {
	BaseURL string
	Client  *http.Client
}

type verifyEnvelope struct {
	Success bool   `json:"success"`
	Data    Coupon `json:"data"`
}

type applyEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		DiscountAmount float64 `json:"discountAmount"`
	} `json:"data"`
}

func (c *HTTPClient) httpClient() *http.Client {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return c.Client
}

// VerifyCoupon checks a code with the promotion service.
func (c *HTTPClient) VerifyCoupon(ctx context.Context, code string) (*Coupon, error) {
	bodyBytes, _ := json.Marshal(map[string]string{"code": code})
	url := fmt.Sprintf("%s/api/coupons/verify", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("coupon verify: status %d body: %s", resp.StatusCode, body)
	}

	var env verifyEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// ApplyCoupon applies a verified code to an amount and returns the discount.
func (c *HTTPClient) ApplyCoupon(ctx context.Context, code string, amount float64) (float64, error) {
	bodyBytes, _ := json.Marshal(map[string]interface{}{"code": code, "amount": amount})
	url := fmt.Sprintf("%s/api/coupons/apply", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("coupon apply: status %d body: %s", resp.StatusCode, body)
	}

	var env applyEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return 0, err
	}
	return env.Data.DiscountAmount, nil
}
