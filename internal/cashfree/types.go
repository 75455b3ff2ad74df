package cashfree

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Order statuses returned by the Cashfree PG API.
const (
	OrderStatusActive     = "ACTIVE"
	OrderStatusPaid       = "PAID"
	OrderStatusPending    = "PENDING"
	OrderStatusExpired    = "EXPIRED"
	OrderStatusTerminated = "TERMINATED"
)

// Refund statuses returned by the Cashfree PG API.
const (
	RefundStatusSuccess   = "SUCCESS"
	RefundStatusPending   = "PENDING"
	RefundStatusOnHold    = "ONHOLD"
	RefundStatusCancelled = "CANCELLED"
)

// Webhook event types this adapter understands.
const (
	EventPaymentSuccess = "PAYMENT_SUCCESS_WEBHOOK"
	EventPaymentFailed  = "PAYMENT_FAILED_WEBHOOK"
)

// CustomerDetails identifies the paying customer on an order.
type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

// OrderMeta carries redirect and notification URLs attached to an order.
type OrderMeta struct {
	ReturnURL      string `json:"return_url,omitempty"`
	NotifyURL      string `json:"notify_url,omitempty"`
	PaymentMethods string `json:"payment_methods,omitempty"`
}

// OrderRequest is the create-order payload.
type OrderRequest struct {
	OrderID         string            `json:"order_id,omitempty"`
	OrderAmount     float64           `json:"order_amount"`
	OrderCurrency   string            `json:"order_currency"`
	OrderNote       string            `json:"order_note,omitempty"`
	CustomerDetails CustomerDetails   `json:"customer_details"`
	OrderMeta       *OrderMeta        `json:"order_meta,omitempty"`
	OrderTags       map[string]string `json:"order_tags,omitempty"`
}

// Order is the gateway's order entity.
type Order struct {
	CFOrderID        string            `json:"cf_order_id,omitempty"`
	OrderID          string            `json:"order_id"`
	OrderStatus      string            `json:"order_status"`
	OrderAmount      float64           `json:"order_amount"`
	OrderCurrency    string            `json:"order_currency,omitempty"`
	OrderNote        string            `json:"order_note,omitempty"`
	OrderExpiryTime  string            `json:"order_expiry_time,omitempty"`
	CreatedAt        string            `json:"created_at,omitempty"`
	CustomerDetails  *CustomerDetails  `json:"customer_details,omitempty"`
	OrderMeta        *OrderMeta        `json:"order_meta,omitempty"`
	OrderTags        map[string]string `json:"order_tags,omitempty"`
	PaymentSessionID string            `json:"payment_session_id,omitempty"`
	PaymentLink      string            `json:"payment_link,omitempty"`
}

// TerminateRequest asks the gateway to move an order into a terminal status.
type TerminateRequest struct {
	OrderStatus string `json:"order_status"`
}

// RefundRequest is the create-refund payload.
type RefundRequest struct {
	RefundID     string  `json:"refund_id"`
	RefundAmount float64 `json:"refund_amount"`
	RefundNote   string  `json:"refund_note,omitempty"`
}

// Refund is the gateway's refund entity.
type Refund struct {
	CFRefundID     json.Number `json:"cf_refund_id,omitempty"`
	CFPaymentID    json.Number `json:"cf_payment_id,omitempty"`
	OrderID        string      `json:"order_id,omitempty"`
	RefundID       string      `json:"refund_id"`
	RefundStatus   string      `json:"refund_status"`
	RefundAmount   float64     `json:"refund_amount"`
	RefundNote     string      `json:"refund_note,omitempty"`
	RefundType     string      `json:"refund_type,omitempty"`
	StatusDesc     string      `json:"status_description,omitempty"`
	CreatedAt      string      `json:"created_at,omitempty"`
	ProcessedAt    string      `json:"processed_at,omitempty"`
	RefundCharge   float64     `json:"refund_charge,omitempty"`
	RefundCurrency string      `json:"refund_currency,omitempty"`
}

// APIError is a non-2xx response from the Cashfree API.
type APIError struct {
	HTTPStatus int    `json:"-"`
	Message    string `json:"message"`
	Code       string `json:"code"`
	Type       string `json:"type"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return fmt.Sprintf("cashfree: %s (code=%s status=%d)", e.Message, e.Code, e.HTTPStatus)
	}
	return fmt.Sprintf("cashfree: request failed with status %d", e.HTTPStatus)
}

// AsAPIError extracts an APIError from an error chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnsupported reports whether the gateway rejected the request as unsupported.
// Cashfree surfaces these as UNSUPPORTED markers in the error message or code.
func IsUnsupported(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToUpper(apiErr.Message), "UNSUPPORTED") ||
		strings.Contains(strings.ToUpper(apiErr.Code), "UNSUPPORTED")
}

// Fields converts an entity into a generic map for merging into host payment data.
func Fields(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}
