package cashfree

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/cashfree-gateway/internal/obs"
	"github.com/noah-isme/cashfree-gateway/internal/resilience"
)

const apiVersion = "2023-08-01"

// Client talks to the Cashfree PG order/refund API and verifies webhook signatures.
// It carries no adapter state; all lifecycle interpretation lives in the provider.
type Client struct {
	AppID            string
	SecretKey        string
	WebhookSecret    string
	BaseURL          string
	Sandbox          bool
	WebhookTolerance time.Duration
	HTTP             resilience.HTTPClient
	Logger           zerolog.Logger
}

// NewClient builds a client with the default transport: bounded retries with
// backoff behind a circuit breaker.
func NewClient(appID, secretKey, webhookSecret, baseURL string, sandbox bool, logger zerolog.Logger) *Client {
	breaker := resilience.NewBreaker(10, 0.5, 30*time.Second).WithTarget("cashfree").WithLogger(logger)
	return &Client{
		AppID:            appID,
		SecretKey:        secretKey,
		WebhookSecret:    webhookSecret,
		BaseURL:          baseURL,
		Sandbox:          sandbox,
		WebhookTolerance: 5 * time.Minute,
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Timeout: 15 * time.Second},
			Breaker:     breaker,
			MaxAttempts: 3,
			BaseBackoff: 200 * time.Millisecond,
			Jitter:      0.2,
		},
		Logger: logger,
	}
}

// BaseHost returns the API host the client resolves requests against. Used by
// readiness probes.
func (c *Client) BaseHost() string { return c.apiHost() }

func (c *Client) apiHost() string {
	host := strings.TrimSpace(c.BaseURL)
	if host != "" {
		return strings.TrimRight(host, "/")
	}
	if c.Sandbox {
		return "https://sandbox.cashfree.com/pg"
	}
	return "https://api.cashfree.com/pg"
}

// CreateOrder creates a gateway order. The idempotency key makes repeated calls
// with the same key resolve to the same order instead of creating duplicates.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest, idempotencyKey string) (Order, error) {
	var order Order
	err := c.do(ctx, http.MethodPost, "/orders", req, idempotencyKey, &order, "create_order")
	return order, err
}

// FetchOrder retrieves the current state of a gateway order.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (Order, error) {
	var order Order
	err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, "", &order, "fetch_order")
	return order, err
}

// TerminateOrder asks the gateway to terminate an order.
func (c *Client) TerminateOrder(ctx context.Context, orderID string, req TerminateRequest) (Order, error) {
	var order Order
	err := c.do(ctx, http.MethodPatch, "/orders/"+orderID, req, "", &order, "terminate_order")
	return order, err
}

// CreateRefund issues a refund against an order. The idempotency key prevents a
// retried request from refunding twice.
func (c *Client) CreateRefund(ctx context.Context, orderID string, req RefundRequest, idempotencyKey string) (Refund, error) {
	var refund Refund
	err := c.do(ctx, http.MethodPost, "/orders/"+orderID+"/refunds", req, idempotencyKey, &refund, "create_refund")
	return refund, err
}

func (c *Client) do(ctx context.Context, method, path string, payload any, idempotencyKey string, out any, operation string) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("cashfree: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiHost()+path, body)
	if err != nil {
		return fmt.Errorf("cashfree: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-version", apiVersion)
	req.Header.Set("x-client-id", c.AppID)
	req.Header.Set("x-client-secret", c.SecretKey)
	if idempotencyKey != "" {
		req.Header.Set("x-idempotency-key", idempotencyKey)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(ctx, req)
	if obs.GatewayRequestLatency != nil {
		obs.GatewayRequestLatency.WithLabelValues(operation).Observe(obs.DurationMillis(time.Since(start)))
	}
	if err != nil {
		return fmt.Errorf("cashfree: %s: %w", operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("cashfree: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{HTTPStatus: resp.StatusCode}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, apiErr)
		}
		c.Logger.Warn().
			Str("operation", operation).
			Int("status", resp.StatusCode).
			Str("code", apiErr.Code).
			Msg("cashfree_api_error")
		return apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("cashfree: decode response: %w", err)
		}
	}
	return nil
}

// VerifyWebhookSignature authenticates an inbound webhook. The signature is an
// HMAC-SHA256 over timestamp+rawBody, base64 encoded. Verification must run
// against the exact raw bytes; a re-serialized body is not guaranteed to match.
func (c *Client) VerifyWebhookSignature(signature string, rawBody []byte, timestamp string) error {
	secret := strings.TrimSpace(c.WebhookSecret)
	if secret == "" {
		return errors.New("cashfree: webhook secret not configured")
	}
	signature = strings.TrimSpace(signature)
	timestamp = strings.TrimSpace(timestamp)
	if signature == "" {
		return errors.New("cashfree: missing webhook signature")
	}
	if timestamp == "" {
		return errors.New("cashfree: missing webhook timestamp")
	}
	if err := c.checkTimestamp(timestamp); err != nil {
		return err
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.New("cashfree: invalid webhook signature")
	}
	return nil
}

func (c *Client) checkTimestamp(timestamp string) error {
	if c.WebhookTolerance <= 0 {
		return nil
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("cashfree: malformed webhook timestamp: %w", err)
	}
	// Cashfree sends epoch milliseconds; accept seconds as well.
	var sent time.Time
	if ts > 1_000_000_000_000 {
		sent = time.UnixMilli(ts)
	} else {
		sent = time.Unix(ts, 0)
	}
	drift := time.Since(sent)
	if drift < 0 {
		drift = -drift
	}
	if drift > c.WebhookTolerance {
		return fmt.Errorf("cashfree: webhook timestamp outside tolerance (%s)", drift.Truncate(time.Second))
	}
	return nil
}
