package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPClient reaches the gateway through the storefront's /api/payment endpoints.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type createOrderResponse struct {
	Success bool    `json:"success"`
	Order   *Intent `json:"order"`
	Message string  `json:"message"`
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (c *HTTPClient) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency string) (*Intent, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	body := map[string]any{"amount": amount, "currency": currency}

	var out createOrderResponse
	status, err := c.post(ctx, "/api/payment/create-order", body, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || !out.Success || out.Order == nil {
		return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, out.Message)
	}
	return out.Order, nil
}

func (c *HTTPClient) VerifyPayment(ctx context.Context, payload CallbackPayload) (bool, error) {
	var out verifyResponse
	status, err := c.post(ctx, "/api/payment/verify-payment", payload, &out)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return out.Success, nil
	case http.StatusBadRequest:
		return false, nil
	default:
		return false, fmt.Errorf("verify payment: unexpected status %d: %s", status, out.Message)
	}
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) (int, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}
