package handlers

import (
	"context"

	"wallet/internal/gateway"
	"wallet/internal/services"
	"wallet/internal/store"
)

type WalletService interface {
	ResolveAccount(ctx context.Context, ownerID string) (store.Account, error)
	Balance(ctx context.Context, accountID string) (store.Account, error)
	History(ctx context.Context, accountID string, filter store.HistoryFilter) ([]store.Transaction, error)
	Credit(ctx context.Context, req services.MutationRequest) (store.Transaction, error)
	Debit(ctx context.Context, req services.MutationRequest) (store.Transaction, error)
	CreateTopUp(ctx context.Context, req services.TopUpRequest) (services.TopUp, error)
	TopUpStatus(ctx context.Context, accountID, intentID string) (services.IntentStatus, error)
	ApplyGatewayEvent(ctx context.Context, event gateway.Event) (services.EventResult, error)
	LedgerSummaries(ctx context.Context) ([]store.AccountLedgerSummary, error)
	CreateAccount(ctx context.Context, actorID, ownerID, displayName, contactEmail string) (store.Account, error)
}

type AuditStore interface {
	List(ctx context.Context, limit, offset int) ([]store.AuditEntry, error)
}
