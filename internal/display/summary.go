// Package display builds read-only view models from stored payment data.
// It renders nothing itself; consumers decide presentation.
package display

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Badge is the coarse state shown next to a payment.
type Badge string

const (
	BadgeCaptured Badge = "captured"
	BadgePending  Badge = "pending"
)

// Summary is the read-only view model for one payment record.
type Summary struct {
	Badge            Badge  `json:"badge"`
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id,omitempty"`
	PaymentLink      string `json:"payment_link,omitempty"`
	DisplayAmount    string `json:"display_amount"`
}

// BuildSummary derives a Summary from the payment data blob the provider
// maintains. Anything other than a PAID order renders as pending; finer
// distinctions belong to the status endpoints, not the display surface.
func BuildSummary(data map[string]any) Summary {
	s := Summary{
		Badge:            BadgePending,
		OrderID:          str(data, "order_id"),
		PaymentSessionID: str(data, "payment_session_id"),
		PaymentLink:      str(data, "payment_link"),
		DisplayAmount:    FormatAmount(str(data, "order_currency"), amount(data, "order_amount")),
	}
	if str(data, "order_status") == "PAID" {
		s.Badge = BadgeCaptured
	}
	return s
}

// FormatAmount renders a monetary amount as "CUR 123.45". The currency code is
// upper-cased; a missing currency yields just the number.
func FormatAmount(currency string, amt decimal.Decimal) string {
	formatted := amt.StringFixed(2)
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return formatted
	}
	return currency + " " + formatted
}

func str(data map[string]any, key string) string {
	v, _ := data[key].(string)
	return v
}

func amount(data map[string]any, key string) decimal.Decimal {
	switch v := data[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	default:
		return decimal.Zero
	}
}
