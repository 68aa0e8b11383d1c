package handlers

import (
	"errors"
	"io"
	"net/http"

	"wallet/internal/gateway"

	"go.uber.org/zap"
)

const maxWebhookBody = 64 * 1024

// GatewayWebhook receives asynchronous confirmation events from the payment
// provider. Once the signature verifies, duplicate and unrecognized events
// are acknowledged success-shaped so the provider stops redelivering;
// storage failures surface as errors so redelivery retries a delivery that
// is idempotent anyway.
func (h *Handler) GatewayWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unable to read payload")
		return
	}
	event, err := h.gateway.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrNotConfigured):
			respondError(w, http.StatusServiceUnavailable, "payments_disabled")
		case errors.Is(err, gateway.ErrInvalidSignature):
			h.logger.Warn("webhook signature verification failed", zap.Error(err))
			respondError(w, http.StatusBadRequest, "invalid_signature")
		default:
			respondError(w, http.StatusBadRequest, "invalid_payload")
		}
		return
	}
	result, err := h.service.ApplyGatewayEvent(r.Context(), event)
	if err != nil {
		h.logger.Error("gateway event not applied",
			zap.String("event_id", event.ID),
			zap.String("intent_id", event.IntentID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "event_not_applied")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"received":  true,
		"duplicate": result.Duplicate,
	})
}
