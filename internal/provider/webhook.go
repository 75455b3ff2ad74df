package provider

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/cashfree-gateway/internal/cashfree"
	"github.com/noah-isme/cashfree-gateway/internal/common"
	"github.com/noah-isme/cashfree-gateway/internal/obs"
)

// webhookEnvelope mirrors the shape of a Cashfree payment webhook body. Only
// the fields the classification needs are decoded.
type webhookEnvelope struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID     string            `json:"order_id"`
			OrderAmount json.Number       `json:"order_amount"`
			OrderTags   map[string]string `json:"order_tags"`
		} `json:"order"`
	} `json:"data"`
}

// WebhookAction authenticates the raw notification and classifies it into a
// host action. Authentication runs against the raw bytes before any parsing;
// once the signature checks out the call never fails, a malformed body
// degrades to a failed-payment classification instead.
func (p *Cashfree) WebhookAction(ctx context.Context, payload WebhookPayload) (WebhookActionResult, error) {
	_, span := otel.Tracer("provider.Cashfree").Start(ctx, "Cashfree.WebhookAction")
	defer span.End()

	eventType := peekEventType(payload.RawBody)
	p.log.Info().
		Str("type", eventType).
		Str("source_ip", payload.SourceIP).
		Str("user_agent", truncate(payload.UserAgent, 64)).
		Msg("webhook received")

	if err := p.client.VerifyWebhookSignature(payload.Signature, payload.RawBody, payload.Timestamp); err != nil {
		span.RecordError(err)
		recordWebhook("rejected", "unauthorized")
		p.log.Warn().Err(err).Str("source_ip", payload.SourceIP).Msg("webhook signature verification failed")
		return WebhookActionResult{}, common.ErrUnauthorized("Webhook triggered by unauthorized data.")
	}

	var env webhookEnvelope
	if err := json.Unmarshal(payload.RawBody, &env); err != nil {
		// Authenticated but unparseable. Surface as a failed payment with
		// whatever fields decoded so the host reconciles via a status poll
		// rather than dropping the event.
		p.log.Error().Err(err).Msg("failed to decode authenticated webhook body")
		recordWebhook(string(ActionFailed), "decode_error")
		return WebhookActionResult{Action: ActionFailed, Data: WebhookData{
			SessionID: env.Data.Order.OrderTags["session_id"],
			Amount:    amountFromNumber(env.Data.Order.OrderAmount),
		}}, nil
	}

	span.SetAttributes(attribute.String("webhook.type", env.Type))

	data := WebhookData{
		SessionID: env.Data.Order.OrderTags["session_id"],
		Amount:    amountFromNumber(env.Data.Order.OrderAmount),
	}

	switch env.Type {
	case cashfree.EventPaymentSuccess:
		recordWebhook(string(ActionCaptured), "success")
		return WebhookActionResult{Action: ActionCaptured, Data: data}, nil
	case cashfree.EventPaymentFailed:
		recordWebhook(string(ActionFailed), "success")
		return WebhookActionResult{Action: ActionFailed, Data: data}, nil
	default:
		recordWebhook(string(ActionNotSupported), "success")
		return WebhookActionResult{Action: ActionNotSupported}, nil
	}
}

// peekEventType extracts the event type for logging before authentication.
// It is best-effort only and never trusted for classification.
func peekEventType(rawBody []byte) string {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(rawBody, &probe); err != nil {
		return ""
	}
	return probe.Type
}

func amountFromNumber(n json.Number) decimal.Decimal {
	if n == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func recordWebhook(action, result string) {
	if obs.PaymentWebhookTotal != nil {
		obs.PaymentWebhookTotal.WithLabelValues(action, result).Inc()
	}
}
