package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/cashfree-gateway/internal/common"
	"github.com/noah-isme/cashfree-gateway/internal/provider"
)

// maxWebhookBody bounds how much of an inbound notification is read.
const maxWebhookBody = 1 << 20

// Cashfree webhook headers carrying the signature material.
const (
	headerWebhookSignature = "x-webhook-signature"
	headerWebhookTimestamp = "x-webhook-timestamp"
)

// Webhook handles gateway payment notifications: authentication via the
// provider, replay suppression via redis, classification back to the caller.
type Webhook struct {
	Provider  provider.Provider
	Replay    *redis.Client
	ReplayTTL time.Duration
}

// Handle processes one inbound Cashfree notification.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Provider == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "webhook unavailable", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}

	result, err := h.Provider.WebhookAction(r.Context(), provider.WebhookPayload{
		RawBody:   body,
		Signature: r.Header.Get(headerWebhookSignature),
		Timestamp: r.Header.Get(headerWebhookTimestamp),
		SourceIP:  common.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		common.JSONAppError(w, err)
		return
	}

	// Suppress duplicates only after the signature checked out, so a
	// forged body cannot poison the replay window for the real delivery.
	if h.Replay != nil && h.ReplayTTL > 0 {
		key := fmt.Sprintf("wh:cashfree:%s", common.Sha256Hex(string(body)))
		ok, err := h.Replay.SetNX(r.Context(), key, "1", h.ReplayTTL).Result()
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "REPLAY_STORE_ERROR", err.Error(), nil)
			return
		}
		if !ok {
			common.JSONError(w, http.StatusConflict, "REPLAY", "duplicate webhook", nil)
			return
		}
	}

	common.JSON(w, http.StatusOK, result)
}
