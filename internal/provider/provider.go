package provider

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/cashfree-gateway/internal/cashfree"
)

// Status is the host payment lifecycle vocabulary.
type Status string

const (
	StatusAuthorized Status = "authorized"
	StatusPending    Status = "pending"
	StatusCaptured   Status = "captured"
	StatusCanceled   Status = "canceled"
	StatusError      Status = "error"
)

// WebhookAction classifies an authenticated webhook event.
type WebhookAction string

const (
	ActionCaptured     WebhookAction = "captured"
	ActionFailed       WebhookAction = "failed"
	ActionNotSupported WebhookAction = "not_supported"
)

// Customer identifies the paying customer on an initiate request.
type Customer struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// InitiateRequest carries everything needed to open a payment with the gateway.
// SessionID doubles as the idempotency token for order creation.
type InitiateRequest struct {
	Amount       decimal.Decimal
	CurrencyCode string
	Customer     *Customer
	SessionID    string
	Data         map[string]any
}

// InitiateResult returns the external order id plus the data blob the host
// stores on its payment record.
type InitiateResult struct {
	ID   string
	Data map[string]any
}

// AuthorizeResult reports the mapped lifecycle status after authorization.
type AuthorizeResult struct {
	Status Status
	Data   map[string]any
}

// StatusResult reports the mapped lifecycle status for a status poll.
type StatusResult struct {
	Status Status
	Data   map[string]any
}

// UpdateResult returns the replacement payment data after an update.
type UpdateResult struct {
	Status Status
	Data   map[string]any
}

// RefundRequest asks for a refund against previously stored payment data.
// RefundToken, when set, makes the derived refund id stable across retries.
type RefundRequest struct {
	Amount      decimal.Decimal
	Data        map[string]any
	RefundToken string
}

// WebhookPayload is one inbound gateway notification. RawBody must be the
// exact bytes received; signature verification runs against them unmodified.
type WebhookPayload struct {
	RawBody   []byte
	Signature string
	Timestamp string
	SourceIP  string
	UserAgent string
}

// WebhookData is the normalized payload attached to a classified webhook.
type WebhookData struct {
	SessionID string          `json:"session_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// WebhookActionResult is the terminal outcome of the webhook gate.
type WebhookActionResult struct {
	Action WebhookAction `json:"action"`
	Data   WebhookData   `json:"data"`
}

// GatewayClient abstracts the operations required from the Cashfree client.
type GatewayClient interface {
	CreateOrder(ctx context.Context, req cashfree.OrderRequest, idempotencyKey string) (cashfree.Order, error)
	FetchOrder(ctx context.Context, orderID string) (cashfree.Order, error)
	TerminateOrder(ctx context.Context, orderID string, req cashfree.TerminateRequest) (cashfree.Order, error)
	CreateRefund(ctx context.Context, orderID string, req cashfree.RefundRequest, idempotencyKey string) (cashfree.Refund, error)
	VerifyWebhookSignature(signature string, rawBody []byte, timestamp string) error
}

// Provider is the fixed operation set the host framework programs against.
type Provider interface {
	Identifier() string
	InitiatePayment(ctx context.Context, req InitiateRequest) (InitiateResult, error)
	AuthorizePayment(ctx context.Context, data map[string]any) (AuthorizeResult, error)
	CapturePayment(ctx context.Context, data map[string]any) (map[string]any, error)
	CancelPayment(ctx context.Context, data map[string]any) (map[string]any, error)
	DeletePayment(ctx context.Context, data map[string]any) (map[string]any, error)
	RetrievePayment(ctx context.Context, data map[string]any) (map[string]any, error)
	GetPaymentStatus(ctx context.Context, data map[string]any) (StatusResult, error)
	UpdatePayment(ctx context.Context, req InitiateRequest) (UpdateResult, error)
	RefundPayment(ctx context.Context, req RefundRequest) (map[string]any, error)
	WebhookAction(ctx context.Context, payload WebhookPayload) (WebhookActionResult, error)

	CreateAccountHolder(ctx context.Context, data map[string]any) (map[string]any, error)
	UpdateAccountHolder(ctx context.Context, data map[string]any) (map[string]any, error)
	DeleteAccountHolder(ctx context.Context, data map[string]any) (map[string]any, error)
	SavePaymentMethod(ctx context.Context, data map[string]any) (map[string]any, error)
	ListPaymentMethods(ctx context.Context, data map[string]any) ([]map[string]any, error)
}
