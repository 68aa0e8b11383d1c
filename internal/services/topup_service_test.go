package services

import (
	"context"
	"errors"
	"testing"

	"wallet/internal/gateway"
	"wallet/internal/store"
)

func TestCreateTopUpInvalidAmount(t *testing.T) {
	svc, _ := newTestService(serviceDeps{
		gateway: stubGateway{
			createIntentFn: func(context.Context, string, int64, string) (gateway.Intent, error) {
				t.Fatal("unexpected gateway call")
				return gateway.Intent{}, nil
			},
		},
	})
	_, err := svc.CreateTopUp(context.Background(), TopUpRequest{AccountID: "acc-1", AmountMinor: 0})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCreateTopUpBelowMinimum(t *testing.T) {
	svc, _ := newTestService(serviceDeps{
		gateway: stubGateway{
			createIntentFn: func(context.Context, string, int64, string) (gateway.Intent, error) {
				t.Fatal("gateway must not be called below the minimum")
				return gateway.Intent{}, nil
			},
		},
	})
	_, err := svc.CreateTopUp(context.Background(), TopUpRequest{AccountID: "acc-1", AmountMinor: 499})
	if !errors.Is(err, ErrBelowMinimumTopUp) {
		t.Fatalf("expected ErrBelowMinimumTopUp, got %v", err)
	}
}

func TestCreateTopUpNotConfigured(t *testing.T) {
	svc, _ := newTestService(serviceDeps{gateway: gateway.Disabled{}})
	_, err := svc.CreateTopUp(context.Background(), TopUpRequest{AccountID: "acc-1", AmountMinor: 1000})
	if !errors.Is(err, gateway.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestCreateTopUp(t *testing.T) {
	svc, _ := newTestService(serviceDeps{
		accounts: stubAccountStore{
			getByIDFn: func(_ context.Context, accountID string) (store.Account, error) {
				return store.Account{ID: accountID, Currency: "usd"}, nil
			},
		},
		gateway: stubGateway{
			createIntentFn: func(_ context.Context, accountID string, amountMinor int64, currency string) (gateway.Intent, error) {
				if accountID != "acc-1" || amountMinor != 1000 || currency != "usd" {
					t.Fatalf("unexpected intent params: %s %d %s", accountID, amountMinor, currency)
				}
				return gateway.Intent{ID: "pi_1", ClientSecret: "cs_1"}, nil
			},
		},
	})
	topUp, err := svc.CreateTopUp(context.Background(), TopUpRequest{AccountID: "acc-1", AmountMinor: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if topUp.IntentID != "pi_1" || topUp.ClientSecret != "cs_1" || topUp.AmountMinor != 1000 {
		t.Fatalf("unexpected top-up: %#v", topUp)
	}
}

func TestCreateTopUpReplaysCachedIntent(t *testing.T) {
	calls := 0
	cacheStub := &stubCache{}
	svc, _ := newTestService(serviceDeps{
		cache: cacheStub,
		gateway: stubGateway{
			createIntentFn: func(context.Context, string, int64, string) (gateway.Intent, error) {
				calls++
				return gateway.Intent{ID: "pi_1", ClientSecret: "cs_1"}, nil
			},
		},
	})
	requestID := "req-1"
	req := TopUpRequest{AccountID: "acc-1", AmountMinor: 1000, ClientRequestID: &requestID}

	first, err := svc.CreateTopUp(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.CreateTopUp(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 gateway call, got %d", calls)
	}
	if first.IntentID != second.IntentID {
		t.Fatalf("expected identical intents: %#v vs %#v", first, second)
	}
}

func TestCreateTopUpFreshRequestIDsOpenFreshIntents(t *testing.T) {
	calls := 0
	svc, _ := newTestService(serviceDeps{
		cache: &stubCache{},
		gateway: stubGateway{
			createIntentFn: func(context.Context, string, int64, string) (gateway.Intent, error) {
				calls++
				return gateway.Intent{ID: "pi_1", ClientSecret: "cs_1"}, nil
			},
		},
	})
	for _, requestID := range []string{"req-1", "req-2"} {
		id := requestID
		if _, err := svc.CreateTopUp(context.Background(), TopUpRequest{AccountID: "acc-1", AmountMinor: 1000, ClientRequestID: &id}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected 2 gateway calls, got %d", calls)
	}
}

func TestTopUpStatus(t *testing.T) {
	svc, _ := newTestService(serviceDeps{
		gateway: stubGateway{
			getIntentFn: func(_ context.Context, intentID string) (gateway.Intent, error) {
				if intentID != "pi_1" {
					t.Fatalf("unexpected intent id: %s", intentID)
				}
				return gateway.Intent{ID: "pi_1", AccountID: "acc-1", AmountMinor: 1000, Currency: "usd", Status: "requires_payment_method"}, nil
			},
		},
	})
	status, err := svc.TopUpStatus(context.Background(), "acc-1", "pi_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != "requires_payment_method" || status.AmountMinor != 1000 {
		t.Fatalf("unexpected status: %#v", status)
	}
}

func TestTopUpStatusWrongAccount(t *testing.T) {
	svc, _ := newTestService(serviceDeps{
		gateway: stubGateway{
			getIntentFn: func(context.Context, string) (gateway.Intent, error) {
				return gateway.Intent{ID: "pi_1", AccountID: "acc-2"}, nil
			},
		},
	})
	_, err := svc.TopUpStatus(context.Background(), "acc-1", "pi_1")
	if !errors.Is(err, ErrIntentNotFound) {
		t.Fatalf("expected ErrIntentNotFound, got %v", err)
	}
}

func TestTopUpStatusNotConfigured(t *testing.T) {
	svc, _ := newTestService(serviceDeps{gateway: gateway.Disabled{}})
	_, err := svc.TopUpStatus(context.Background(), "acc-1", "pi_1")
	if !errors.Is(err, gateway.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
