package cashfree

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c := NewClient("app_test", "secret_test", "whsec_test", baseURL, true, zerolog.Nop())
	// Single attempt keeps error-path tests fast.
	c.HTTP.MaxAttempts = 1
	c.HTTP.BaseBackoff = time.Millisecond
	return c
}

func TestCreateOrderSendsAuthAndIdempotencyHeaders(t *testing.T) {
	t.Parallel()

	var gotReq OrderRequest
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Order{OrderID: "order_1", OrderStatus: OrderStatusActive, PaymentSessionID: "sess_x"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	order, err := c.CreateOrder(context.Background(), OrderRequest{
		OrderAmount:     100,
		OrderCurrency:   "INR",
		CustomerDetails: CustomerDetails{CustomerID: "cus_1", CustomerPhone: "+919876543210"},
	}, "payses_abc")
	require.NoError(t, err)

	require.Equal(t, "order_1", order.OrderID)
	require.Equal(t, "sess_x", order.PaymentSessionID)
	require.Equal(t, "app_test", gotHeaders.Get("x-client-id"))
	require.Equal(t, "secret_test", gotHeaders.Get("x-client-secret"))
	require.Equal(t, "2023-08-01", gotHeaders.Get("x-api-version"))
	require.Equal(t, "payses_abc", gotHeaders.Get("x-idempotency-key"))
	require.Equal(t, "INR", gotReq.OrderCurrency)
}

func TestFetchOrderOmitsIdempotencyKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/orders/order_2", r.URL.Path)
		require.Empty(t, r.Header.Get("x-idempotency-key"))
		_ = json.NewEncoder(w).Encode(Order{OrderID: "order_2", OrderStatus: OrderStatusPaid})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	order, err := c.FetchOrder(context.Background(), "order_2")
	require.NoError(t, err)
	require.Equal(t, OrderStatusPaid, order.OrderStatus)
}

func TestTerminateOrderPatchesStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/orders/order_3", r.URL.Path)
		var req TerminateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, OrderStatusTerminated, req.OrderStatus)
		_ = json.NewEncoder(w).Encode(Order{OrderID: "order_3", OrderStatus: OrderStatusTerminated})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	order, err := c.TerminateOrder(context.Background(), "order_3", TerminateRequest{OrderStatus: OrderStatusTerminated})
	require.NoError(t, err)
	require.Equal(t, OrderStatusTerminated, order.OrderStatus)
}

func TestCreateRefundSendsIdempotencyKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders/order_4/refunds", r.URL.Path)
		require.Equal(t, "refund_4_abcd1234", r.Header.Get("x-idempotency-key"))
		var req RefundRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(Refund{RefundID: req.RefundID, RefundStatus: RefundStatusPending, RefundAmount: req.RefundAmount})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	refund, err := c.CreateRefund(context.Background(), "order_4", RefundRequest{
		RefundID:     "refund_4_abcd1234",
		RefundAmount: 25,
	}, "refund_4_abcd1234")
	require.NoError(t, err)
	require.Equal(t, RefundStatusPending, refund.RefundStatus)
}

func TestAPIErrorDecoding(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"order_currency unsupported","code":"order_currency_unsupported","type":"invalid_request_error"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.FetchOrder(context.Background(), "order_5")
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
	require.Equal(t, "order_currency_unsupported", apiErr.Code)
	require.True(t, IsUnsupported(err))
}

func TestAPIHostSelection(t *testing.T) {
	t.Parallel()

	sandbox := &Client{Sandbox: true}
	require.Equal(t, "https://sandbox.cashfree.com/pg", sandbox.apiHost())

	production := &Client{Sandbox: false}
	require.Equal(t, "https://api.cashfree.com/pg", production.apiHost())

	override := &Client{BaseURL: "http://127.0.0.1:9000/pg/"}
	require.Equal(t, "http://127.0.0.1:9000/pg", override.apiHost())
}

func signWebhook(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	t.Parallel()

	body := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":"order_6"}}}`)
	c := newTestClient(t, "")

	t.Run("valid millisecond timestamp", func(t *testing.T) {
		t.Parallel()

		ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
		sig := signWebhook("whsec_test", ts, body)
		require.NoError(t, c.VerifyWebhookSignature(sig, body, ts))
	})

	t.Run("valid second timestamp", func(t *testing.T) {
		t.Parallel()

		ts := strconv.FormatInt(time.Now().Unix(), 10)
		sig := signWebhook("whsec_test", ts, body)
		require.NoError(t, c.VerifyWebhookSignature(sig, body, ts))
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()

		ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
		sig := signWebhook("whsec_other", ts, body)
		require.Error(t, c.VerifyWebhookSignature(sig, body, ts))
	})

	t.Run("tampered body", func(t *testing.T) {
		t.Parallel()

		ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
		sig := signWebhook("whsec_test", ts, body)
		tampered := append([]byte(nil), body...)
		tampered[len(tampered)-2] = 'x'
		require.Error(t, c.VerifyWebhookSignature(sig, tampered, ts))
	})

	t.Run("missing signature", func(t *testing.T) {
		t.Parallel()

		ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
		require.Error(t, c.VerifyWebhookSignature("", body, ts))
	})

	t.Run("missing timestamp", func(t *testing.T) {
		t.Parallel()

		sig := signWebhook("whsec_test", "", body)
		require.Error(t, c.VerifyWebhookSignature(sig, body, ""))
	})

	t.Run("stale timestamp", func(t *testing.T) {
		t.Parallel()

		ts := strconv.FormatInt(time.Now().Add(-time.Hour).UnixMilli(), 10)
		sig := signWebhook("whsec_test", ts, body)
		require.Error(t, c.VerifyWebhookSignature(sig, body, ts))
	})

	t.Run("malformed timestamp", func(t *testing.T) {
		t.Parallel()

		sig := signWebhook("whsec_test", "not-a-number", body)
		require.Error(t, c.VerifyWebhookSignature(sig, body, "not-a-number"))
	})

	t.Run("secret not configured", func(t *testing.T) {
		t.Parallel()

		bare := &Client{}
		require.Error(t, bare.VerifyWebhookSignature("sig", body, "123"))
	})
}

func TestFieldsRoundTrip(t *testing.T) {
	t.Parallel()

	fields := Fields(Order{OrderID: "order_8", OrderStatus: OrderStatusPaid, OrderAmount: 10.5})
	require.Equal(t, "order_8", fields["order_id"])
	require.Equal(t, OrderStatusPaid, fields["order_status"])
	require.Equal(t, 10.5, fields["order_amount"])
}
