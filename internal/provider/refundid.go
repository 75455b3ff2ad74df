package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/cashfree-gateway/internal/common"
)

const (
	orderIDPrefix  = "order_"
	refundIDPrefix = "refund_"
)

// GenerateRefundID derives a refund id from the order id by swapping the order
// prefix for a refund prefix and appending a suffix. With a refund token the
// suffix is a stable digest of (order id, token), so a retried refund reuses
// the same id and therefore the same idempotency key. Without a token the
// suffix is 3-8 hex characters drawn from a fresh UUID; callers that retry on
// that path regenerate the id and lose idempotency, so supply a token for any
// refund that may be retried.
func GenerateRefundID(orderID, token string) (string, error) {
	if !strings.HasPrefix(orderID, orderIDPrefix) {
		return "", common.ErrInvalidInput("invalid order id format")
	}
	base := refundIDPrefix + strings.TrimPrefix(orderID, orderIDPrefix)
	if strings.TrimSpace(token) != "" {
		sum := sha256.Sum256([]byte(orderID + ":" + token))
		return base + "_" + hex.EncodeToString(sum[:])[:8], nil
	}
	length := rand.Intn(6) + 3
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:length]
	return base + "_" + suffix, nil
}
