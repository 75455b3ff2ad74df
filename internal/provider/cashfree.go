package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/cashfree-gateway/internal/cashfree"
	"github.com/noah-isme/cashfree-gateway/internal/common"
	"github.com/noah-isme/cashfree-gateway/internal/obs"
)

// Identifier under which the host framework registers this provider.
const Identifier = "cashfree"

// Options carries the validated provider configuration the adapter consumes.
type Options struct {
	ReturnURL string
	NotifyURL string
}

// Cashfree implements Provider against the Cashfree PG order/refund API.
// It holds no mutable state; every call is independent and concurrency-safe.
type Cashfree struct {
	client GatewayClient
	opts   Options
	log    zerolog.Logger
}

// New constructs the single owned adapter instance. There is no ambient or
// global client; callers pass the instance by reference everywhere it is used.
func New(client GatewayClient, opts Options, logger zerolog.Logger) (*Cashfree, error) {
	if client == nil {
		return nil, errors.New("provider: gateway client is required")
	}
	return &Cashfree{client: client, opts: opts, log: logger}, nil
}

// Identifier returns the provider registration key.
func (p *Cashfree) Identifier() string { return Identifier }

// InitiatePayment validates the request and opens a gateway order keyed by the
// caller-supplied session id, so repeated calls with the same session resolve
// to the same order.
func (p *Cashfree) InitiatePayment(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
	ctx, span := otel.Tracer("provider.Cashfree").Start(ctx, "Cashfree.InitiatePayment")
	defer span.End()
	result := "error"
	defer func() { recordOperation("initiate", &result) }()

	if req.Customer == nil {
		return InitiateResult{}, common.ErrInvalidInput("customer is required")
	}
	if strings.TrimSpace(req.Customer.Phone) == "" {
		return InitiateResult{}, common.ErrInvalidInput("customer phone is required")
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return InitiateResult{}, common.ErrInvalidInput("session_id is required")
	}
	customerName := strings.TrimSpace(strings.TrimSpace(req.Customer.FirstName) + " " + strings.TrimSpace(req.Customer.LastName))
	if customerName == "" {
		return InitiateResult{}, common.ErrInvalidInput("customer name is required")
	}
	if !req.Amount.IsPositive() {
		return InitiateResult{}, common.ErrInvalidInput("amount must be greater than 0")
	}

	orderReq := cashfree.OrderRequest{
		OrderAmount:   req.Amount.InexactFloat64(),
		OrderCurrency: strings.ToUpper(req.CurrencyCode),
		CustomerDetails: cashfree.CustomerDetails{
			CustomerID:    req.Customer.ID,
			CustomerName:  customerName,
			CustomerEmail: req.Customer.Email,
			CustomerPhone: formatPhoneNumber(req.Customer.Phone),
		},
		OrderTags: map[string]string{"session_id": req.SessionID},
	}
	if p.opts.ReturnURL != "" || p.opts.NotifyURL != "" {
		orderReq.OrderMeta = &cashfree.OrderMeta{ReturnURL: p.opts.ReturnURL, NotifyURL: p.opts.NotifyURL}
	}

	p.log.Info().
		Str("amount", req.Amount.String()).
		Str("currency", orderReq.OrderCurrency).
		Str("customer", truncate(customerName, 20)).
		Msg("creating cashfree order")

	span.SetAttributes(attribute.String("payment.session_id", req.SessionID))

	order, err := p.client.CreateOrder(ctx, orderReq, req.SessionID)
	if err != nil {
		span.RecordError(err)
		p.log.Error().Err(err).
			Str("currency", orderReq.OrderCurrency).
			Str("amount", req.Amount.String()).
			Bool("has_customer_email", req.Customer.Email != "").
			Bool("has_customer_phone", orderReq.CustomerDetails.CustomerPhone != "").
			Msg("error creating cashfree order")
		if cashfree.IsUnsupported(err) {
			return InitiateResult{}, common.ErrUpstreamRejected(
				"Cashfree returned an UNSUPPORTED error. Please check: currency code, amount format, or customer data.", err)
		}
		return InitiateResult{}, common.ErrUpstreamUnavailable("failed to create order", err)
	}
	if order.OrderID == "" {
		return InitiateResult{}, common.ErrNotFound("payment request failure: no order_id returned from Cashfree")
	}

	p.log.Info().Str("order_id", order.OrderID).Msg("payment initialized")

	data := cashfree.Fields(order)
	// Explicitly expose these for storefront use.
	data["payment_session_id"] = order.PaymentSessionID
	data["payment_link"] = order.PaymentLink

	result = "success"
	return InitiateResult{ID: order.OrderID, Data: data}, nil
}

// AuthorizePayment fetches the order and maps its status to the host
// authorization vocabulary.
func (p *Cashfree) AuthorizePayment(ctx context.Context, data map[string]any) (AuthorizeResult, error) {
	externalID := stringField(data, "order_id")
	if externalID == "" {
		return AuthorizeResult{}, common.ErrInvalidInput("missing order_id for authorization")
	}

	order, err := p.client.FetchOrder(ctx, externalID)
	if err != nil {
		p.log.Error().Err(err).Str("order_id", externalID).Msg("authorization failed")
		return AuthorizeResult{}, common.ErrUpstreamUnavailable("failed to authorize payment", err)
	}

	merged := cashfree.Fields(order)
	merged["id"] = externalID

	switch order.OrderStatus {
	case cashfree.OrderStatusPaid:
		return AuthorizeResult{Status: StatusAuthorized, Data: merged}, nil
	case cashfree.OrderStatusActive, cashfree.OrderStatusPending:
		// Payment is still in progress (user on redirect page).
		return AuthorizeResult{Status: StatusPending, Data: merged}, nil
	case cashfree.OrderStatusExpired:
		return AuthorizeResult{Status: StatusError, Data: merged}, nil
	case cashfree.OrderStatusTerminated:
		return AuthorizeResult{Status: StatusCanceled, Data: merged}, nil
	default:
		return AuthorizeResult{Status: StatusError, Data: merged}, nil
	}
}

// CapturePayment succeeds only when the gateway reports the order as paid.
// Every other status is surfaced as a retryable not-found with a status
// specific reason.
func (p *Cashfree) CapturePayment(ctx context.Context, data map[string]any) (map[string]any, error) {
	externalID := stringField(data, "id")
	if externalID == "" {
		return nil, common.ErrInvalidInput("missing payment id")
	}

	order, err := p.client.FetchOrder(ctx, externalID)
	if err != nil {
		p.log.Error().Err(err).Str("order_id", externalID).Msg("unexpected capture error")
		return nil, common.ErrUnexpectedState("failed to capture payment", err)
	}

	switch order.OrderStatus {
	case cashfree.OrderStatusPaid:
		merged := cashfree.Fields(order)
		merged["id"] = externalID
		return merged, nil
	case cashfree.OrderStatusActive, cashfree.OrderStatusPending:
		return nil, common.ErrNotFound("Pending Payment. Try again later.")
	case cashfree.OrderStatusExpired:
		return nil, common.ErrNotFound("Payment order expired.")
	case cashfree.OrderStatusTerminated:
		return nil, common.ErrNotFound("Payment terminated.")
	default:
		return nil, common.ErrNotFound("Payment not captured.")
	}
}

// CancelPayment terminates an unpaid order. Terminal orders short-circuit to
// success; paid orders refuse.
func (p *Cashfree) CancelPayment(ctx context.Context, data map[string]any) (map[string]any, error) {
	externalID := stringField(data, "order_id")
	if externalID == "" {
		return nil, common.ErrInvalidInput("missing order_id")
	}

	order, err := p.client.FetchOrder(ctx, externalID)
	if err != nil {
		p.log.Error().Err(err).Str("order_id", externalID).Msg("error canceling cashfree order")
		return nil, common.ErrUpstreamUnavailable("failed to cancel payment", err)
	}

	currentStatus := order.OrderStatus
	if currentStatus == "" {
		currentStatus = "UNKNOWN"
	}
	if currentStatus == cashfree.OrderStatusPaid {
		return nil, common.ErrNotAllowed("Order already paid, cannot cancel.", nil)
	}
	if currentStatus == cashfree.OrderStatusTerminated || currentStatus == cashfree.OrderStatusExpired {
		return data, nil
	}

	if _, err := p.client.TerminateOrder(ctx, externalID, cashfree.TerminateRequest{OrderStatus: cashfree.OrderStatusTerminated}); err != nil {
		p.log.Error().Err(err).Str("order_id", externalID).Msg("error canceling cashfree order")
		return nil, common.ErrUpstreamUnavailable("failed to cancel payment", err)
	}

	out := cloneData(data)
	out["canceled"] = true
	return out, nil
}

// DeletePayment is the soft variant of cancel: an already-paid order is logged
// and returned unchanged rather than refused.
func (p *Cashfree) DeletePayment(ctx context.Context, data map[string]any) (map[string]any, error) {
	externalID := stringField(data, "order_id")
	if externalID == "" {
		return nil, common.ErrInvalidInput("missing order_id")
	}

	order, err := p.client.FetchOrder(ctx, externalID)
	if err != nil {
		p.log.Error().Err(err).Str("order_id", externalID).Msg("error terminating cashfree order")
		return nil, common.ErrUpstreamUnavailable("failed to delete payment", err)
	}

	switch order.OrderStatus {
	case cashfree.OrderStatusPaid:
		p.log.Warn().Str("order_id", externalID).Msg("order already paid, cannot terminate")
		return data, nil
	case cashfree.OrderStatusTerminated, cashfree.OrderStatusExpired:
		return data, nil
	}

	if _, err := p.client.TerminateOrder(ctx, externalID, cashfree.TerminateRequest{OrderStatus: cashfree.OrderStatusTerminated}); err != nil {
		p.log.Error().Err(err).Str("order_id", externalID).Msg("error terminating cashfree order")
		return nil, common.ErrUpstreamUnavailable("failed to delete payment", err)
	}
	return data, nil
}

// RetrievePayment merges the current gateway order fields over the stored
// payment data. Gateway fields win on key collision.
func (p *Cashfree) RetrievePayment(ctx context.Context, data map[string]any) (map[string]any, error) {
	externalID := stringField(data, "order_id")
	if externalID == "" {
		return nil, common.ErrInvalidInput("retrievePayment requires order_id")
	}

	order, err := p.client.FetchOrder(ctx, externalID)
	if err != nil {
		p.log.Error().Err(err).Str("order_id", externalID).Msg("error retrieving cashfree order")
		return nil, common.ErrUpstreamUnavailable("failed to retrieve payment", err)
	}

	out := cloneData(data)
	for k, v := range cashfree.Fields(order) {
		out[k] = v
	}
	return out, nil
}

// GetPaymentStatus maps the fetched order status for a status poll. A fetch
// failure is reported as not-found; the host only needs a classification here.
func (p *Cashfree) GetPaymentStatus(ctx context.Context, data map[string]any) (StatusResult, error) {
	externalID := stringField(data, "order_id")
	if externalID == "" {
		return StatusResult{}, common.ErrInvalidInput("getPaymentStatus requires order_id")
	}

	order, err := p.client.FetchOrder(ctx, externalID)
	if err != nil {
		p.log.Error().Err(err).Str("order_id", externalID).Msg("error fetching cashfree order status")
		return StatusResult{}, common.ErrNotFound("Order not found")
	}

	var status Status
	switch order.OrderStatus {
	case cashfree.OrderStatusActive, cashfree.OrderStatusPending:
		status = StatusPending
	case cashfree.OrderStatusPaid:
		status = StatusCaptured
	case cashfree.OrderStatusExpired, cashfree.OrderStatusTerminated:
		status = StatusCanceled
	default:
		status = StatusError
	}

	out := cloneData(data)
	for k, v := range cashfree.Fields(order) {
		out[k] = v
	}
	return StatusResult{Status: status, Data: out}, nil
}

// UpdatePayment replaces the current order: the stale order is terminated on a
// best-effort basis, then a fresh initiate runs with the new request. The
// re-initiate failure is reported as a single retryable error that hides the
// underlying cause.
func (p *Cashfree) UpdatePayment(ctx context.Context, req InitiateRequest) (UpdateResult, error) {
	externalID := stringField(req.Data, "id")
	if externalID == "" {
		return UpdateResult{}, common.ErrInvalidInput("updatePayment requires order_id")
	}

	if _, err := p.DeletePayment(ctx, map[string]any{"order_id": externalID}); err != nil {
		p.log.Warn().Err(err).Str("order_id", externalID).Msg("failed to delete old order")
	}

	created, err := p.InitiatePayment(ctx, req)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to initiate new order")
		return UpdateResult{}, common.ErrNotFound("Failed to update payment. Please try again.")
	}
	return UpdateResult{Status: StatusPending, Data: created.Data}, nil
}

// RefundPayment issues an idempotent refund and appends it to the host
// record's refund ledger.
func (p *Cashfree) RefundPayment(ctx context.Context, req RefundRequest) (map[string]any, error) {
	ctx, span := otel.Tracer("provider.Cashfree").Start(ctx, "Cashfree.RefundPayment")
	defer span.End()
	result := "error"
	defer func() {
		if obs.PaymentRefundTotal != nil {
			obs.PaymentRefundTotal.WithLabelValues(result).Inc()
		}
	}()

	externalID := stringField(req.Data, "id")
	orderID := stringField(req.Data, "order_id")
	if externalID == "" || orderID == "" {
		return nil, common.ErrInvalidInput("invalid payment data for refund")
	}

	refundID, err := GenerateRefundID(orderID, req.RefundToken)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("payment.refund_id", refundID))

	refundReq := cashfree.RefundRequest{
		RefundID:     refundID,
		RefundAmount: req.Amount.InexactFloat64(),
		RefundNote:   fmt.Sprintf("Refund for %s", orderID),
	}

	// The refund id doubles as the idempotency key.
	refund, err := p.client.CreateRefund(ctx, externalID, refundReq, refundID)
	if err != nil {
		span.RecordError(err)
		var details any
		if apiErr, ok := cashfree.AsAPIError(err); ok {
			details = apiErr
		}
		appErr := common.ErrNotAllowed(fmt.Sprintf("Error: %s", err.Error()), err)
		appErr.Details = details
		return nil, appErr
	}

	switch refund.RefundStatus {
	case cashfree.RefundStatusSuccess, cashfree.RefundStatusPending, cashfree.RefundStatusOnHold:
		existing, _ := req.Data["refunds"].([]any)
		// last_refund_index records the count before appending: the index of
		// the entry just added under the old length.
		lastIndex := len(existing)
		refunds := make([]any, 0, lastIndex+1)
		refunds = append(refunds, existing...)
		refunds = append(refunds, cashfree.Fields(refund))

		out := cloneData(req.Data)
		out["refunds"] = refunds
		out["last_refund_index"] = lastIndex
		result = "success"
		return out, nil
	default:
		return nil, common.ErrUnexpectedState(fmt.Sprintf("Refund failure: %s", refund.RefundStatus), nil)
	}
}

// CreateAccountHolder is not supported by this gateway.
func (p *Cashfree) CreateAccountHolder(ctx context.Context, data map[string]any) (map[string]any, error) {
	return nil, common.ErrNotAllowed("UNSUPPORTED", nil)
}

// UpdateAccountHolder is not supported by this gateway.
func (p *Cashfree) UpdateAccountHolder(ctx context.Context, data map[string]any) (map[string]any, error) {
	return nil, common.ErrNotAllowed("UNSUPPORTED", nil)
}

// DeleteAccountHolder is not supported by this gateway.
func (p *Cashfree) DeleteAccountHolder(ctx context.Context, data map[string]any) (map[string]any, error) {
	return nil, common.ErrNotAllowed("UNSUPPORTED", nil)
}

// SavePaymentMethod is not supported by this gateway.
func (p *Cashfree) SavePaymentMethod(ctx context.Context, data map[string]any) (map[string]any, error) {
	return nil, common.ErrNotAllowed("UNSUPPORTED", nil)
}

// ListPaymentMethods is not supported by this gateway.
func (p *Cashfree) ListPaymentMethods(ctx context.Context, data map[string]any) ([]map[string]any, error) {
	return nil, common.ErrNotAllowed("UNSUPPORTED", nil)
}

// formatPhoneNumber strips everything except digits and a single leading plus.
func formatPhoneNumber(phone string) string {
	var b strings.Builder
	for i, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stringField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	if v, ok := data[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data)+2)
	for k, v := range data {
		out[k] = v
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func recordOperation(operation string, result *string) {
	if obs.PaymentOperationTotal != nil {
		obs.PaymentOperationTotal.WithLabelValues(operation, *result).Inc()
	}
}
