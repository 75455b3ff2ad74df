package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/cashfree-gateway/internal/common"
	"github.com/noah-isme/cashfree-gateway/internal/display"
	"github.com/noah-isme/cashfree-gateway/internal/provider"
)

// Handler exposes the payment provider operations over HTTP for the host
// commerce platform. The handler is transport only; all lifecycle semantics
// live in the provider.
type Handler struct {
	Provider provider.Provider
	Validate *validator.Validate
}

type customerPayload struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"required"`
}

type initiateRequest struct {
	Amount       decimal.Decimal  `json:"amount"`
	CurrencyCode string           `json:"currency_code" validate:"required,len=3"`
	SessionID    string           `json:"session_id" validate:"required"`
	Customer     *customerPayload `json:"customer" validate:"required"`
	Data         map[string]any   `json:"data"`
}

type dataRequest struct {
	Data map[string]any `json:"data"`
}

type refundRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	RefundToken string          `json:"refund_token"`
	Data        map[string]any  `json:"data"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", validationMessage(err), nil)
			return false
		}
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.ToLower(fe.Field())+" failed "+fe.Tag())
		}
		return strings.Join(fields, "; ")
	}
	return err.Error()
}

func (r initiateRequest) toProvider() provider.InitiateRequest {
	out := provider.InitiateRequest{
		Amount:       r.Amount,
		CurrencyCode: r.CurrencyCode,
		SessionID:    r.SessionID,
		Data:         r.Data,
	}
	if r.Customer != nil {
		out.Customer = &provider.Customer{
			ID:        r.Customer.ID,
			FirstName: r.Customer.FirstName,
			LastName:  r.Customer.LastName,
			Email:     r.Customer.Email,
			Phone:     r.Customer.Phone,
		}
	}
	return out
}

// Initiate opens a payment with the gateway.
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Provider == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	var req initiateRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Provider.InitiatePayment(r.Context(), req.toProvider())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"id": res.ID, "data": res.Data})
}

// Authorize maps the gateway order state to an authorization status.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req dataRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Provider.AuthorizePayment(r.Context(), req.Data)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"status": res.Status, "data": res.Data})
}

// Capture settles a paid order.
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	var req dataRequest
	if !h.decode(w, r, &req) {
		return
	}
	data, err := h.Provider.CapturePayment(r.Context(), req.Data)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": data})
}

// Cancel terminates an unpaid order.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req dataRequest
	if !h.decode(w, r, &req) {
		return
	}
	data, err := h.Provider.CancelPayment(r.Context(), req.Data)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": data})
}

// Delete terminates an order without failing on paid ones.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req dataRequest
	if !h.decode(w, r, &req) {
		return
	}
	data, err := h.Provider.DeletePayment(r.Context(), req.Data)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": data})
}

// Retrieve refreshes stored payment data with the current gateway state.
func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req dataRequest
	if !h.decode(w, r, &req) {
		return
	}
	data, err := h.Provider.RetrievePayment(r.Context(), req.Data)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": data})
}

// Status polls the mapped payment lifecycle status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	var req dataRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Provider.GetPaymentStatus(r.Context(), req.Data)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"status": res.Status, "data": res.Data})
}

// Update replaces the current order with a fresh one.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Provider.UpdatePayment(r.Context(), req.toProvider())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"status": res.Status, "data": res.Data})
}

// Refund issues a refund against a captured payment.
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if !h.decode(w, r, &req) {
		return
	}
	data, err := h.Provider.RefundPayment(r.Context(), provider.RefundRequest{
		Amount:      req.Amount,
		Data:        req.Data,
		RefundToken: req.RefundToken,
	})
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": data})
}

// Summary builds the read-only display view model for a payment record.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	var req dataRequest
	if !h.decode(w, r, &req) {
		return
	}
	common.JSON(w, http.StatusOK, display.BuildSummary(req.Data))
}
