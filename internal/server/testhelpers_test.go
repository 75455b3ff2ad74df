package server

import (
	"context"

	"github.com/noah-isme/cashfree-gateway/internal/provider"
)

// stubProvider satisfies provider.Provider with overridable behaviour per test.
type stubProvider struct {
	initiateFn  func(ctx context.Context, req provider.InitiateRequest) (provider.InitiateResult, error)
	authorizeFn func(ctx context.Context, data map[string]any) (provider.AuthorizeResult, error)
	captureFn   func(ctx context.Context, data map[string]any) (map[string]any, error)
	cancelFn    func(ctx context.Context, data map[string]any) (map[string]any, error)
	deleteFn    func(ctx context.Context, data map[string]any) (map[string]any, error)
	retrieveFn  func(ctx context.Context, data map[string]any) (map[string]any, error)
	statusFn    func(ctx context.Context, data map[string]any) (provider.StatusResult, error)
	updateFn    func(ctx context.Context, req provider.InitiateRequest) (provider.UpdateResult, error)
	refundFn    func(ctx context.Context, req provider.RefundRequest) (map[string]any, error)
	webhookFn   func(ctx context.Context, payload provider.WebhookPayload) (provider.WebhookActionResult, error)

	webhookCalls int
}

func (s *stubProvider) Identifier() string { return "cashfree" }

func (s *stubProvider) InitiatePayment(ctx context.Context, req provider.InitiateRequest) (provider.InitiateResult, error) {
	if s.initiateFn != nil {
		return s.initiateFn(ctx, req)
	}
	return provider.InitiateResult{ID: "order_stub", Data: map[string]any{"order_id": "order_stub"}}, nil
}

func (s *stubProvider) AuthorizePayment(ctx context.Context, data map[string]any) (provider.AuthorizeResult, error) {
	if s.authorizeFn != nil {
		return s.authorizeFn(ctx, data)
	}
	return provider.AuthorizeResult{Status: provider.StatusPending, Data: data}, nil
}

func (s *stubProvider) CapturePayment(ctx context.Context, data map[string]any) (map[string]any, error) {
	if s.captureFn != nil {
		return s.captureFn(ctx, data)
	}
	return data, nil
}

func (s *stubProvider) CancelPayment(ctx context.Context, data map[string]any) (map[string]any, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, data)
	}
	return data, nil
}

func (s *stubProvider) DeletePayment(ctx context.Context, data map[string]any) (map[string]any, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, data)
	}
	return data, nil
}

func (s *stubProvider) RetrievePayment(ctx context.Context, data map[string]any) (map[string]any, error) {
	if s.retrieveFn != nil {
		return s.retrieveFn(ctx, data)
	}
	return data, nil
}

func (s *stubProvider) GetPaymentStatus(ctx context.Context, data map[string]any) (provider.StatusResult, error) {
	if s.statusFn != nil {
		return s.statusFn(ctx, data)
	}
	return provider.StatusResult{Status: provider.StatusPending, Data: data}, nil
}

func (s *stubProvider) UpdatePayment(ctx context.Context, req provider.InitiateRequest) (provider.UpdateResult, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, req)
	}
	return provider.UpdateResult{Status: provider.StatusPending, Data: req.Data}, nil
}

func (s *stubProvider) RefundPayment(ctx context.Context, req provider.RefundRequest) (map[string]any, error) {
	if s.refundFn != nil {
		return s.refundFn(ctx, req)
	}
	return req.Data, nil
}

func (s *stubProvider) WebhookAction(ctx context.Context, payload provider.WebhookPayload) (provider.WebhookActionResult, error) {
	s.webhookCalls++
	if s.webhookFn != nil {
		return s.webhookFn(ctx, payload)
	}
	return provider.WebhookActionResult{Action: provider.ActionNotSupported}, nil
}

func (s *stubProvider) CreateAccountHolder(ctx context.Context, data map[string]any) (map[string]any, error) {
	return nil, nil
}

func (s *stubProvider) UpdateAccountHolder(ctx context.Context, data map[string]any) (map[string]any, error) {
	return nil, nil
}

func (s *stubProvider) DeleteAccountHolder(ctx context.Context, data map[string]any) (map[string]any, error) {
	return nil, nil
}

func (s *stubProvider) SavePaymentMethod(ctx context.Context, data map[string]any) (map[string]any, error) {
	return nil, nil
}

func (s *stubProvider) ListPaymentMethods(ctx context.Context, data map[string]any) ([]map[string]any, error) {
	return nil, nil
}
