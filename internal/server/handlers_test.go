package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cashfree-gateway/internal/common"
	"github.com/noah-isme/cashfree-gateway/internal/provider"
)

func newHandler(p provider.Provider) *Handler {
	return &Handler{Provider: p, Validate: validator.New()}
}

func doJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

const validInitiateBody = `{
	"amount": 149.50,
	"currency_code": "INR",
	"session_id": "payses_abc",
	"customer": {"id": "cus_1", "first_name": "Asha", "last_name": "Verma", "email": "asha@example.com", "phone": "+919876543210"}
}`

func TestInitiateEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		var got provider.InitiateRequest
		stub := &stubProvider{
			initiateFn: func(_ context.Context, req provider.InitiateRequest) (provider.InitiateResult, error) {
				got = req
				return provider.InitiateResult{ID: "order_1", Data: map[string]any{"order_id": "order_1"}}, nil
			},
		}
		rr := doJSON(t, newHandler(stub).Initiate, validInitiateBody)

		require.Equal(t, http.StatusCreated, rr.Code)
		require.Equal(t, "149.5", got.Amount.String())
		require.Equal(t, "payses_abc", got.SessionID)
		require.NotNil(t, got.Customer)
		require.Equal(t, "Asha", got.Customer.FirstName)

		var resp struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Equal(t, "order_1", resp.ID)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		rr := doJSON(t, newHandler(&stubProvider{}).Initiate, `{"amount":`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("dto validation", func(t *testing.T) {
		t.Parallel()

		cases := []struct {
			name string
			body string
		}{
			{"missing customer", `{"amount": 10, "currency_code": "INR", "session_id": "s"}`},
			{"bad currency", `{"amount": 10, "currency_code": "RUPEES", "session_id": "s", "customer": {"phone": "1"}}`},
			{"missing session", `{"amount": 10, "currency_code": "INR", "customer": {"phone": "1"}}`},
			{"missing phone", `{"amount": 10, "currency_code": "INR", "session_id": "s", "customer": {"id": "c"}}`},
			{"bad email", `{"amount": 10, "currency_code": "INR", "session_id": "s", "customer": {"phone": "1", "email": "nope"}}`},
		}
		for _, tc := range cases {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				stub := &stubProvider{
					initiateFn: func(context.Context, provider.InitiateRequest) (provider.InitiateResult, error) {
						t.Fatal("provider must not be reached on validation failure")
						return provider.InitiateResult{}, nil
					},
				}
				rr := doJSON(t, newHandler(stub).Initiate, tc.body)
				require.Equal(t, http.StatusBadRequest, rr.Code)
				require.Contains(t, rr.Body.String(), "VALIDATION_FAILED")
			})
		}
	})

	t.Run("classified provider error maps to its status", func(t *testing.T) {
		t.Parallel()

		stub := &stubProvider{
			initiateFn: func(context.Context, provider.InitiateRequest) (provider.InitiateResult, error) {
				return provider.InitiateResult{}, common.ErrUpstreamUnavailable("failed to create order", nil)
			},
		}
		rr := doJSON(t, newHandler(stub).Initiate, validInitiateBody)
		require.Equal(t, http.StatusBadGateway, rr.Code)
		require.Contains(t, rr.Body.String(), common.CodeUpstreamUnavailable)
	})

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()

		rr := doJSON(t, (&Handler{}).Initiate, validInitiateBody)
		require.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{
		statusFn: func(_ context.Context, data map[string]any) (provider.StatusResult, error) {
			return provider.StatusResult{Status: provider.StatusCaptured, Data: data}, nil
		},
	}
	rr := doJSON(t, newHandler(stub).Status, `{"data": {"order_id": "order_2"}}`)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "captured", resp.Status)
	require.Equal(t, "order_2", resp.Data["order_id"])
}

func TestCaptureEndpointPropagatesNotFound(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{
		captureFn: func(context.Context, map[string]any) (map[string]any, error) {
			return nil, common.ErrNotFound("Pending Payment. Try again later.")
		},
	}
	rr := doJSON(t, newHandler(stub).Capture, `{"data": {"id": "order_3"}}`)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "Pending Payment")
}

func TestCancelEndpoint(t *testing.T) {
	t.Parallel()

	stub := &stubProvider{
		cancelFn: func(_ context.Context, data map[string]any) (map[string]any, error) {
			out := map[string]any{"canceled": true}
			for k, v := range data {
				out[k] = v
			}
			return out, nil
		},
	}
	rr := doJSON(t, newHandler(stub).Cancel, `{"data": {"order_id": "order_4"}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"canceled":true`)
}

func TestRefundEndpoint(t *testing.T) {
	t.Parallel()

	var got provider.RefundRequest
	stub := &stubProvider{
		refundFn: func(_ context.Context, req provider.RefundRequest) (map[string]any, error) {
			got = req
			return map[string]any{"last_refund_index": 0}, nil
		},
	}
	rr := doJSON(t, newHandler(stub).Refund, `{"amount": 25, "refund_token": "tok-1", "data": {"id": "order_5", "order_id": "order_5"}}`)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "25", got.Amount.String())
	require.Equal(t, "tok-1", got.RefundToken)
	require.Equal(t, "order_5", got.Data["order_id"])
}

func TestSummaryEndpoint(t *testing.T) {
	t.Parallel()

	rr := doJSON(t, newHandler(&stubProvider{}).Summary, `{"data": {"order_id": "order_6", "order_status": "PAID", "order_currency": "INR", "order_amount": 149.5}}`)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Badge         string `json:"badge"`
		OrderID       string `json:"order_id"`
		DisplayAmount string `json:"display_amount"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "captured", resp.Badge)
	require.Equal(t, "order_6", resp.OrderID)
	require.Equal(t, "INR 149.50", resp.DisplayAmount)
}
