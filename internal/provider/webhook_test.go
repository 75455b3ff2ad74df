package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cashfree-gateway/internal/common"
)

func webhookBody(eventType string) []byte {
	return []byte(`{
		"type": "` + eventType + `",
		"data": {
			"order": {
				"order_id": "order_77",
				"order_amount": 149.50,
				"order_tags": {"session_id": "payses_abc"}
			}
		}
	}`)
}

func TestWebhookActionRejectsBadSignature(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		verifyFn: func(string, []byte, string) error {
			return errors.New("signature mismatch")
		},
	}
	p := newTestProvider(t, gw)

	_, err := p.WebhookAction(context.Background(), WebhookPayload{
		RawBody:   webhookBody("PAYMENT_SUCCESS_WEBHOOK"),
		Signature: "bogus",
		Timestamp: "1726000000000",
	})
	require.Equal(t, common.CodeUnauthorized, common.CodeOf(err))
	require.Equal(t, "Webhook triggered by unauthorized data.", err.Error())
}

func TestWebhookActionClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		eventType   string
		wantAction  WebhookAction
		wantSession string
		wantAmount  string
	}{
		{"payment success", "PAYMENT_SUCCESS_WEBHOOK", ActionCaptured, "payses_abc", "149.5"},
		{"payment failed", "PAYMENT_FAILED_WEBHOOK", ActionFailed, "payses_abc", "149.5"},
		{"unknown event", "REFUND_STATUS_WEBHOOK", ActionNotSupported, "", "0"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := newTestProvider(t, &fakeGateway{})
			res, err := p.WebhookAction(context.Background(), WebhookPayload{
				RawBody:   webhookBody(tc.eventType),
				Signature: "valid",
				Timestamp: "1726000000000",
			})
			require.NoError(t, err)
			require.Equal(t, tc.wantAction, res.Action)
			require.Equal(t, tc.wantSession, res.Data.SessionID)
			require.Equal(t, tc.wantAmount, res.Data.Amount.String())
		})
	}
}

func TestWebhookActionMalformedBodyAfterAuth(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, &fakeGateway{})

	res, err := p.WebhookAction(context.Background(), WebhookPayload{
		RawBody:   []byte(`{"type": "PAYMENT_SUCCESS_WEBHOOK", "data": `),
		Signature: "valid",
		Timestamp: "1726000000000",
	})
	require.NoError(t, err, "authenticated webhooks must not error on parse failure")
	require.Equal(t, ActionFailed, res.Action)
}
