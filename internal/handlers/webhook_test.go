package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wallet/internal/gateway"
	"wallet/internal/services"
)

func TestGatewayWebhookInvalidSignature(t *testing.T) {
	handler := newTestHandler(stubWalletService{
		applyEventFn: func(context.Context, gateway.Event) (services.EventResult, error) {
			t.Fatal("unverified event must not reach the service")
			return services.EventResult{}, nil
		},
	}, stubGateway{
		verifyEventFn: func([]byte, string) (gateway.Event, error) {
			return gateway.Event{}, gateway.ErrInvalidSignature
		},
	}, stubAuditStore{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	rr := httptest.NewRecorder()
	handler.GatewayWebhook(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "invalid_signature") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestGatewayWebhookNotConfigured(t *testing.T) {
	handler := newTestHandler(stubWalletService{}, gateway.Disabled{}, stubAuditStore{})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	handler.GatewayWebhook(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestGatewayWebhookApplies(t *testing.T) {
	handler := newTestHandler(stubWalletService{
		applyEventFn: func(_ context.Context, event gateway.Event) (services.EventResult, error) {
			if event.ID != "evt-1" || event.Kind != gateway.EventPaymentSucceeded {
				t.Fatalf("unexpected event: %#v", event)
			}
			return services.EventResult{Applied: true, TransactionID: "tx-1"}, nil
		},
	}, stubGateway{
		verifyEventFn: func(payload []byte, signatureHeader string) (gateway.Event, error) {
			if signatureHeader != "t=1,v1=good" {
				t.Fatalf("unexpected signature header: %s", signatureHeader)
			}
			return gateway.Event{ID: "evt-1", Kind: gateway.EventPaymentSucceeded, IntentID: "pi_1"}, nil
		},
	}, stubAuditStore{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", strings.NewReader(`{"id":"evt-1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=good")
	rr := httptest.NewRecorder()
	handler.GatewayWebhook(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["received"] != true || payload["duplicate"] != false {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestGatewayWebhookDuplicate(t *testing.T) {
	handler := newTestHandler(stubWalletService{
		applyEventFn: func(context.Context, gateway.Event) (services.EventResult, error) {
			return services.EventResult{Duplicate: true}, nil
		},
	}, stubGateway{}, stubAuditStore{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	handler.GatewayWebhook(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"duplicate":true`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestGatewayWebhookServiceFailure(t *testing.T) {
	handler := newTestHandler(stubWalletService{
		applyEventFn: func(context.Context, gateway.Event) (services.EventResult, error) {
			return services.EventResult{}, errors.New("db down")
		},
	}, stubGateway{}, stubAuditStore{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	handler.GatewayWebhook(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}
