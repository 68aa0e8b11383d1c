package services

import (
	"context"
	"encoding/json"

	"wallet/internal/gateway"
	"wallet/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// EventResult describes what a verified confirmation event did to the ledger.
type EventResult struct {
	Applied       bool
	Duplicate     bool
	Failed        bool
	TransactionID string
}

// ApplyGatewayEvent drives the per-intent state machine: a verified succeeded
// event credits the ledger exactly once, a failed event is surfaced without
// mutation, anything else is acknowledged as a forward-compatible no-op.
//
// The dedup record and the deposit are written in one serializable
// transaction, so a replayed delivery can never double-credit: either both
// the processed-event row and the transaction exist, or neither does.
func (s *WalletService) ApplyGatewayEvent(ctx context.Context, event gateway.Event) (EventResult, error) {
	switch event.Kind {
	case gateway.EventPaymentSucceeded:
		return s.creditConfirmedTopUp(ctx, event)
	case gateway.EventPaymentFailed:
		s.metrics.GatewayEvent(event.Type, "failed")
		s.logger.Warn("payment failed at gateway",
			zap.String("event_id", event.ID),
			zap.String("intent_id", event.IntentID),
			zap.String("account_id", event.AccountID),
		)
		return EventResult{Failed: true}, nil
	default:
		s.metrics.GatewayEvent(event.Type, "ignored")
		s.logger.Info("ignoring unrecognized gateway event",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
		)
		return EventResult{}, nil
	}
}

func (s *WalletService) creditConfirmedTopUp(ctx context.Context, event gateway.Event) (EventResult, error) {
	if event.AmountMinor <= 0 {
		return EventResult{}, ErrInvalidAmount
	}
	if event.AccountID == "" {
		return EventResult{}, ErrAccountNotFound
	}
	transactionID := uuid.NewString()
	intentID := event.IntentID
	var result EventResult
	var txn store.Transaction
	var account store.Account
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		inserted, err := s.events.MarkProcessed(ctx, tx, event.ID, intentID, transactionID)
		if err != nil {
			return err
		}
		if inserted == 0 {
			result = EventResult{Duplicate: true}
			return nil
		}
		txn, account, err = s.appendLocked(ctx, tx, transactionID, MutationRequest{
			AccountID:     event.AccountID,
			Kind:          KindDeposit,
			AmountMinor:   event.AmountMinor,
			Description:   "Wallet top-up",
			ReferenceID:   &intentID,
			ReferenceKind: strPtr("payment_intent"),
		})
		if err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"event_id":  event.ID,
			"intent_id": intentID,
		})
		if err := s.audit.Log(ctx, tx, "gateway", "topup_credit", "transaction", transactionID, string(data)); err != nil {
			return err
		}
		result = EventResult{Applied: true, TransactionID: transactionID}
		return nil
	})
	if err != nil {
		return EventResult{}, err
	}
	if result.Duplicate {
		s.metrics.GatewayEvent(event.Type, "duplicate")
		s.logger.Info("duplicate gateway event ignored",
			zap.String("event_id", event.ID),
			zap.String("intent_id", intentID),
		)
		return result, nil
	}
	s.metrics.GatewayEvent(event.Type, "credited")
	s.afterCommit(account, txn)
	return result, nil
}

func strPtr(value string) *string {
	return &value
}
