package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet/internal/cache"

	"go.uber.org/zap"
)

const topUpCacheTTL = 24 * time.Hour

type TopUpRequest struct {
	AccountID       string
	AmountMinor     int64
	ClientRequestID *string
}

// TopUp is the client-facing material to complete payment with the provider.
// Nothing is written to the ledger until a confirmation event arrives.
type TopUp struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	AmountMinor  int64  `json:"amount_minor"`
	Currency     string `json:"currency"`
}

// CreateTopUp validates the amount, asks the gateway for a payment intent and
// returns the client secret. Below-minimum requests are rejected before any
// gateway call. A repeated client request id returns the previously created
// intent instead of opening a second one.
func (s *WalletService) CreateTopUp(ctx context.Context, req TopUpRequest) (TopUp, error) {
	if req.AmountMinor <= 0 {
		return TopUp{}, ErrInvalidAmount
	}
	if req.AmountMinor < s.minTopUpMinor {
		return TopUp{}, ErrBelowMinimumTopUp
	}
	account, err := s.Balance(ctx, req.AccountID)
	if err != nil {
		return TopUp{}, err
	}
	cacheKey := ""
	if s.cache != nil && req.ClientRequestID != nil && *req.ClientRequestID != "" {
		cacheKey = fmt.Sprintf("topup:%s:%s", account.ID, *req.ClientRequestID)
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			var topUp TopUp
			if err := json.Unmarshal(cached, &topUp); err == nil {
				return topUp, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("top-up cache read failed", zap.Error(err))
		}
	}
	intent, err := s.gateway.CreateIntent(ctx, account.ID, req.AmountMinor, s.currency)
	if err != nil {
		return TopUp{}, err
	}
	topUp := TopUp{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		AmountMinor:  req.AmountMinor,
		Currency:     s.currency,
	}
	if cacheKey != "" {
		payload, _ := json.Marshal(topUp)
		if err := s.cache.Set(ctx, cacheKey, payload, topUpCacheTTL); err != nil {
			s.logger.Warn("top-up cache write failed", zap.Error(err))
		}
	}
	s.metrics.TopUpIntentCreated()
	s.logger.Info("top-up intent created",
		zap.String("account_id", account.ID),
		zap.String("intent_id", intent.ID),
		zap.Int64("amount_minor", req.AmountMinor),
	)
	return topUp, nil
}

// IntentStatus is the provider-side state of a previously opened top-up.
type IntentStatus struct {
	IntentID    string `json:"intent_id"`
	Status      string `json:"status"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

// TopUpStatus looks up a pending top-up with the provider. Intents that were
// opened for a different account read as not found.
func (s *WalletService) TopUpStatus(ctx context.Context, accountID, intentID string) (IntentStatus, error) {
	intent, err := s.gateway.GetIntent(ctx, intentID)
	if err != nil {
		return IntentStatus{}, err
	}
	if intent.AccountID != accountID {
		return IntentStatus{}, ErrIntentNotFound
	}
	return IntentStatus{
		IntentID:    intent.ID,
		Status:      intent.Status,
		AmountMinor: intent.AmountMinor,
		Currency:    intent.Currency,
	}, nil
}
