package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"wallet/internal/middleware"
	"wallet/internal/money"
	"wallet/internal/services"
	"wallet/internal/store"
)

type adjustmentRequest struct {
	AccountID   string `json:"account_id"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	ReferenceID string `json:"reference_id"`
}

// CreateAdjustment applies a manual ledger mutation on behalf of an
// operator. Deposits and refunds credit the account, withdrawals and
// purchases debit it.
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req adjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AccountID == "" {
		respondError(w, http.StatusBadRequest, "account_id is required")
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	description := req.Description
	if description == "" {
		description = "Manual adjustment"
	}

	mutation := services.MutationRequest{
		AccountID:   req.AccountID,
		Kind:        req.Kind,
		AmountMinor: amount,
		Description: description,
		CreatedBy:   &actorID,
	}
	if req.ReferenceID != "" {
		mutation.ReferenceID = &req.ReferenceID
		kind := "adjustment"
		mutation.ReferenceKind = &kind
	}

	var txn store.Transaction
	switch req.Kind {
	case services.KindDeposit, services.KindRefund:
		txn, err = h.service.Credit(r.Context(), mutation)
	case services.KindWithdrawal, services.KindPurchase:
		txn, err = h.service.Debit(r.Context(), mutation)
	default:
		respondError(w, http.StatusBadRequest, "invalid kind")
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			respondError(w, http.StatusNotFound, "account not found")
		case errors.Is(err, services.ErrInsufficientFunds):
			respondError(w, http.StatusBadRequest, "insufficient_funds")
		case errors.Is(err, services.ErrInvalidAmount), errors.Is(err, services.ErrInvalidKind):
			respondError(w, http.StatusBadRequest, "invalid adjustment")
		default:
			respondError(w, http.StatusInternalServerError, "unable to apply adjustment")
		}
		return
	}
	respondJSON(w, http.StatusCreated, transactionJSON(txn, h.cfg.Currency))
}

type createAccountRequest struct {
	OwnerID      string `json:"owner_id"`
	DisplayName  string `json:"display_name"`
	ContactEmail string `json:"contact_email"`
}

// CreateAccount provisions a wallet for a new owner. Wallets start at a
// zero balance; funds only ever arrive through the ledger.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OwnerID == "" {
		respondError(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	account, err := h.service.CreateAccount(r.Context(), actorID, req.OwnerID, req.DisplayName, req.ContactEmail)
	if err != nil {
		if errors.Is(err, services.ErrAccountExists) {
			respondError(w, http.StatusConflict, "account_exists")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to create account")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"account_id": account.ID,
		"owner_id":   account.OwnerID,
		"balance":    money.FormatMinor(account.Balance),
		"currency":   account.Currency,
	})
}

// Reconcile compares each account's cached balance against the signed sum
// of its ledger rows. Accounts whose two figures disagree are flagged.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.LedgerSummaries(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to reconcile")
		return
	}
	drifted := 0
	rows := make([]map[string]any, 0, len(summaries))
	for _, s := range summaries {
		match := s.StoredBalance == s.LedgerBalance
		if !match {
			drifted++
		}
		rows = append(rows, map[string]any{
			"account_id":     s.ID,
			"stored_balance": s.StoredBalance,
			"ledger_balance": s.LedgerBalance,
			"match":          match,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"accounts": rows,
		"checked":  len(summaries),
		"drifted":  drifted,
	})
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	if limit > 200 {
		limit = 200
	}
	page := parseInt(r.URL.Query().Get("page"), 1)
	if page < 1 {
		page = 1
	}
	entries, err := h.audit.List(r.Context(), limit, (page-1)*limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list audit logs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries, "page": page})
}
