package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet/internal/auth"
	"wallet/internal/config"
	"wallet/internal/gateway"
	"wallet/internal/middleware"
	"wallet/internal/services"
	"wallet/internal/store"
	"wallet/internal/websocket"

	"go.uber.org/zap"
)

type stubWalletService struct {
	resolveAccountFn  func(ctx context.Context, ownerID string) (store.Account, error)
	balanceFn         func(ctx context.Context, accountID string) (store.Account, error)
	historyFn         func(ctx context.Context, accountID string, filter store.HistoryFilter) ([]store.Transaction, error)
	creditFn          func(ctx context.Context, req services.MutationRequest) (store.Transaction, error)
	debitFn           func(ctx context.Context, req services.MutationRequest) (store.Transaction, error)
	createTopUpFn     func(ctx context.Context, req services.TopUpRequest) (services.TopUp, error)
	topUpStatusFn     func(ctx context.Context, accountID, intentID string) (services.IntentStatus, error)
	applyEventFn      func(ctx context.Context, event gateway.Event) (services.EventResult, error)
	ledgerSummariesFn func(ctx context.Context) ([]store.AccountLedgerSummary, error)
	createAccountFn   func(ctx context.Context, actorID, ownerID, displayName, contactEmail string) (store.Account, error)
}

func (s stubWalletService) ResolveAccount(ctx context.Context, ownerID string) (store.Account, error) {
	if s.resolveAccountFn == nil {
		return store.Account{ID: "acc-1", OwnerID: ownerID, Currency: "USD"}, nil
	}
	return s.resolveAccountFn(ctx, ownerID)
}

func (s stubWalletService) Balance(ctx context.Context, accountID string) (store.Account, error) {
	if s.balanceFn == nil {
		return store.Account{ID: accountID}, nil
	}
	return s.balanceFn(ctx, accountID)
}

func (s stubWalletService) History(ctx context.Context, accountID string, filter store.HistoryFilter) ([]store.Transaction, error) {
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(ctx, accountID, filter)
}

func (s stubWalletService) Credit(ctx context.Context, req services.MutationRequest) (store.Transaction, error) {
	if s.creditFn == nil {
		return store.Transaction{}, nil
	}
	return s.creditFn(ctx, req)
}

func (s stubWalletService) Debit(ctx context.Context, req services.MutationRequest) (store.Transaction, error) {
	if s.debitFn == nil {
		return store.Transaction{}, nil
	}
	return s.debitFn(ctx, req)
}

func (s stubWalletService) CreateTopUp(ctx context.Context, req services.TopUpRequest) (services.TopUp, error) {
	if s.createTopUpFn == nil {
		return services.TopUp{}, nil
	}
	return s.createTopUpFn(ctx, req)
}

func (s stubWalletService) TopUpStatus(ctx context.Context, accountID, intentID string) (services.IntentStatus, error) {
	if s.topUpStatusFn == nil {
		return services.IntentStatus{}, nil
	}
	return s.topUpStatusFn(ctx, accountID, intentID)
}

func (s stubWalletService) ApplyGatewayEvent(ctx context.Context, event gateway.Event) (services.EventResult, error) {
	if s.applyEventFn == nil {
		return services.EventResult{}, nil
	}
	return s.applyEventFn(ctx, event)
}

func (s stubWalletService) LedgerSummaries(ctx context.Context) ([]store.AccountLedgerSummary, error) {
	if s.ledgerSummariesFn == nil {
		return nil, nil
	}
	return s.ledgerSummariesFn(ctx)
}

func (s stubWalletService) CreateAccount(ctx context.Context, actorID, ownerID, displayName, contactEmail string) (store.Account, error) {
	if s.createAccountFn == nil {
		return store.Account{ID: "acc-1", OwnerID: ownerID, Currency: "USD"}, nil
	}
	return s.createAccountFn(ctx, actorID, ownerID, displayName, contactEmail)
}

type stubAuditStore struct {
	listFn func(ctx context.Context, limit, offset int) ([]store.AuditEntry, error)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]store.AuditEntry, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubGateway struct {
	verifyEventFn func(payload []byte, signatureHeader string) (gateway.Event, error)
}

func (s stubGateway) CreateIntent(context.Context, string, int64, string) (gateway.Intent, error) {
	return gateway.Intent{}, nil
}

func (s stubGateway) GetIntent(context.Context, string) (gateway.Intent, error) {
	return gateway.Intent{}, nil
}

func (s stubGateway) VerifyEvent(payload []byte, signatureHeader string) (gateway.Event, error) {
	if s.verifyEventFn == nil {
		return gateway.Event{}, nil
	}
	return s.verifyEventFn(payload, signatureHeader)
}

func newTestHandler(service WalletService, gw gateway.Gateway, audit AuditStore) *Handler {
	cfg := config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
		Currency:       "USD",
		MinTopUpMinor:  5000,
	}
	return New(cfg, service, gw, audit, websocket.NewHub(), zap.NewNop())
}

func serveWithAuth(t *testing.T, handler http.HandlerFunc, req *http.Request, userID string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateToken("secret", userID, admin, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	middleware.Auth("secret")(handler).ServeHTTP(rr, req)
	return rr
}

func stringPtr(value string) *string {
	return &value
}
