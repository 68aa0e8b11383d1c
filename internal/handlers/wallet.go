package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"wallet/internal/auth"
	"wallet/internal/gateway"
	"wallet/internal/middleware"
	"wallet/internal/money"
	"wallet/internal/services"
	"wallet/internal/store"
	"wallet/internal/websocket"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"account_id": account.ID,
		"balance":    money.FormatMinor(account.Balance),
		"currency":   account.Currency,
	})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	account, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	kind := query.Get("kind")
	switch kind {
	case "", services.KindDeposit, services.KindWithdrawal, services.KindPurchase, services.KindRefund:
	default:
		respondError(w, http.StatusBadRequest, "invalid_kind")
		return
	}
	page := parseInt(query.Get("page"), 1)
	limit := parseInt(query.Get("limit"), 20)
	if limit > 100 {
		limit = 100
	}
	transactions, err := h.service.History(r.Context(), account.ID, store.HistoryFilter{
		Kind:   kind,
		From:   parseDate(query.Get("from")),
		To:     parseDate(query.Get("to")),
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	normalized := make([]map[string]any, 0, len(transactions))
	for _, txn := range transactions {
		normalized = append(normalized, transactionJSON(txn, account.Currency))
	}
	respondJSON(w, http.StatusOK, normalized)
}

type topUpRequest struct {
	Amount          string  `json:"amount"`
	ClientRequestID *string `json:"client_request_id"`
}

func (h *Handler) CreateTopUp(w http.ResponseWriter, r *http.Request) {
	account, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}
	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amountMinor, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	topUp, err := h.service.CreateTopUp(r.Context(), services.TopUpRequest{
		AccountID:       account.ID,
		AmountMinor:     amountMinor,
		ClientRequestID: req.ClientRequestID,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBelowMinimumTopUp):
			respondError(w, http.StatusBadRequest, "below_minimum_topup")
		case errors.Is(err, services.ErrInvalidAmount):
			respondError(w, http.StatusBadRequest, "invalid_amount")
		case errors.Is(err, gateway.ErrNotConfigured):
			respondError(w, http.StatusServiceUnavailable, "payments_disabled")
		default:
			respondError(w, http.StatusBadGateway, "topup_failed")
		}
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"intent_id":     topUp.IntentID,
		"client_secret": topUp.ClientSecret,
		"amount":        money.FormatMinor(topUp.AmountMinor),
		"currency":      topUp.Currency,
	})
}

// GetTopUpStatus reports where one of the caller's top-up intents stands on
// the provider side. The ledger is not consulted; only confirmed webhook
// events ever move funds.
func (h *Handler) GetTopUpStatus(w http.ResponseWriter, r *http.Request) {
	account, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}
	intentID := chi.URLParam(r, "intentID")
	if intentID == "" {
		respondError(w, http.StatusBadRequest, "intent_id is required")
		return
	}
	status, err := h.service.TopUpStatus(r.Context(), account.ID, intentID)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrNotConfigured):
			respondError(w, http.StatusServiceUnavailable, "payments_disabled")
		case errors.Is(err, services.ErrIntentNotFound):
			respondError(w, http.StatusNotFound, "intent not found")
		default:
			respondError(w, http.StatusBadGateway, "unable to fetch top-up")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"intent_id": status.IntentID,
		"status":    status.Status,
		"amount":    money.FormatMinor(status.AmountMinor),
		"currency":  status.Currency,
	})
}

type purchaseRequest struct {
	Amount      string  `json:"amount"`
	Description string  `json:"description"`
	ReferenceID *string `json:"reference_id"`
}

func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	account, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amountMinor, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Purchase"
	}
	var referenceKind *string
	if req.ReferenceID != nil {
		kind := "order"
		referenceKind = &kind
	}
	txn, err := h.service.Debit(r.Context(), services.MutationRequest{
		AccountID:     account.ID,
		Kind:          services.KindPurchase,
		AmountMinor:   amountMinor,
		Description:   description,
		ReferenceID:   req.ReferenceID,
		ReferenceKind: referenceKind,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInsufficientFunds):
			respondError(w, http.StatusBadRequest, "insufficient_funds")
		case errors.Is(err, services.ErrInvalidAmount):
			respondError(w, http.StatusBadRequest, "invalid_amount")
		default:
			respondError(w, http.StatusInternalServerError, "purchase_failed")
		}
		return
	}
	respondJSON(w, http.StatusCreated, transactionJSON(txn, account.Currency))
}

func (h *Handler) WSWallet(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID)
}

func (h *Handler) resolveAccount(w http.ResponseWriter, r *http.Request) (store.Account, bool) {
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return store.Account{}, false
	}
	account, err := h.service.ResolveAccount(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			respondError(w, http.StatusNotFound, "account not found")
			return store.Account{}, false
		}
		respondError(w, http.StatusInternalServerError, "unable to resolve account")
		return store.Account{}, false
	}
	return account, true
}

func transactionJSON(txn store.Transaction, currency string) map[string]any {
	return map[string]any{
		"id":             txn.ID,
		"account_id":     txn.AccountID,
		"kind":           txn.Kind,
		"amount":         money.FormatMinor(txn.Amount),
		"balance_before": money.FormatMinor(txn.BalanceBefore),
		"balance_after":  money.FormatMinor(txn.BalanceAfter),
		"currency":       currency,
		"description":    txn.Description,
		"reference_id":   derefString(txn.ReferenceID),
		"reference_kind": derefString(txn.ReferenceKind),
		"created_by":     derefString(txn.CreatedBy),
		"created_at":     txn.CreatedAt,
	}
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
