package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/scholarhub/apiserver/internal/metrics"
	"github.com/scholarhub/apiserver/internal/services"
	"go.uber.org/zap"
)

// PaymentHandler exchanges application fees for payment client secrets.
type PaymentHandler struct {
	paymentService *services.PaymentService
	logger         *zap.Logger
}

func NewPaymentHandler(paymentService *services.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, logger: orNop(logger)}
}

// PaymentRouter registers payment routes on the given router.
func PaymentRouter(r chi.Router, paymentService *services.PaymentService, guards *Guards, logger *zap.Logger) {
	handler := NewPaymentHandler(paymentService, logger)

	r.With(guards.RequireAuth).Post("/create-payment-intent", handler.CreateIntent)
}

// CreateIntent answers 204 without contacting the processor when the price
// is below one minor unit.
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req PaymentIntentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	secret, err := h.paymentService.CreateIntent(r.Context(), req.Price)
	if err != nil {
		metrics.RecordPaymentIntent("failed")
		writeServiceError(w, r, h.logger, err, "failed to create payment intent")
		return
	}
	if secret == "" {
		metrics.RecordPaymentIntent("skipped")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	metrics.RecordPaymentIntent("created")
	writeJSON(w, http.StatusOK, PaymentIntentResponse{ClientSecret: secret})
}

type PaymentIntentRequest struct {
	Price float64 `json:"price"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}
