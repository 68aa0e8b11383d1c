package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"wallet/internal/db"
	"wallet/internal/gateway"
	"wallet/internal/metrics"
	"wallet/internal/money"
	"wallet/internal/store"
	"wallet/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidKind       = errors.New("invalid transaction kind")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBelowMinimumTopUp = errors.New("top-up below minimum amount")
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountExists     = errors.New("account already exists")
	ErrIntentNotFound    = errors.New("top-up intent not found")
)

// Transaction kinds. Deposits and refunds add to the balance, withdrawals and
// purchases subtract from it.
const (
	KindDeposit    = "deposit"
	KindWithdrawal = "withdrawal"
	KindPurchase   = "purchase"
	KindRefund     = "refund"
)

type AccountStore interface {
	Create(ctx context.Context, tx store.Execer, id, ownerID, displayName, contactEmail, currency string) error
	GetByID(ctx context.Context, accountID string) (store.Account, error)
	GetByOwner(ctx context.Context, ownerID string) (store.Account, error)
	GetForUpdate(ctx context.Context, tx store.Getter, accountID string) (store.Account, error)
	UpdateBalance(ctx context.Context, tx store.Execer, accountID string, balance int64) error
	LedgerSummaries(ctx context.Context) ([]store.AccountLedgerSummary, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	ListByAccount(ctx context.Context, accountID string, filter store.HistoryFilter) ([]store.Transaction, error)
}

type EventStore interface {
	MarkProcessed(ctx context.Context, tx store.Execer, eventID, intentID, transactionID string) (int64, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type WalletHub interface {
	BroadcastWalletEvent(ownerID string, event websocket.WalletEvent)
}

// TopUpCache is optional; a nil cache disables request deduplication for
// intent creation (the ledger stays correct either way).
type TopUpCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type WalletService struct {
	txRunner      db.TxRunner
	accounts      AccountStore
	transactions  TransactionStore
	events        EventStore
	audit         AuditStore
	gateway       gateway.Gateway
	cache         TopUpCache
	hub           WalletHub
	metrics       *metrics.Metrics
	logger        *zap.Logger
	currency      string
	minTopUpMinor int64
}

func NewWalletService(txRunner db.TxRunner, accounts AccountStore, transactions TransactionStore, events EventStore, audit AuditStore, gw gateway.Gateway, cache TopUpCache, hub WalletHub, m *metrics.Metrics, logger *zap.Logger, currency string, minTopUpMinor int64) *WalletService {
	return &WalletService{
		txRunner:      txRunner,
		accounts:      accounts,
		transactions:  transactions,
		events:        events,
		audit:         audit,
		gateway:       gw,
		cache:         cache,
		hub:           hub,
		metrics:       m,
		logger:        logger,
		currency:      currency,
		minTopUpMinor: minTopUpMinor,
	}
}

// ResolveAccount maps an authenticated owner to their wallet account.
func (s *WalletService) ResolveAccount(ctx context.Context, ownerID string) (store.Account, error) {
	account, err := s.accounts.GetByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Account{}, ErrAccountNotFound
		}
		return store.Account{}, err
	}
	return account, nil
}

// Balance returns the account with its cached balance. The cached column is
// only ever written inside the atomic append, so it always matches the
// balance_after of the latest transaction.
func (s *WalletService) Balance(ctx context.Context, accountID string) (store.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Account{}, ErrAccountNotFound
		}
		return store.Account{}, err
	}
	return account, nil
}

// CreateAccount provisions a wallet for an owner that does not have one yet.
// The zero-balance row and the audit entry land in the same transaction.
func (s *WalletService) CreateAccount(ctx context.Context, actorID, ownerID, displayName, contactEmail string) (store.Account, error) {
	if _, err := s.accounts.GetByOwner(ctx, ownerID); err == nil {
		return store.Account{}, ErrAccountExists
	} else if !errors.Is(err, sql.ErrNoRows) {
		return store.Account{}, err
	}
	id := uuid.NewString()
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.accounts.Create(ctx, tx, id, ownerID, displayName, contactEmail, s.currency); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, actorID, "account_created", "account", id, `{"owner_id":"`+ownerID+`"}`)
	})
	if err != nil {
		// Two provisioning requests can race past the owner pre-check; the
		// unique index on owner_id decides, and the loser reads as a
		// duplicate rather than a storage failure.
		if isUniqueViolation(err) {
			return store.Account{}, ErrAccountExists
		}
		return store.Account{}, err
	}
	s.logger.Info("wallet account created",
		zap.String("account_id", id),
		zap.String("owner_id", ownerID),
	)
	return s.accounts.GetByID(ctx, id)
}

func (s *WalletService) History(ctx context.Context, accountID string, filter store.HistoryFilter) ([]store.Transaction, error) {
	return s.transactions.ListByAccount(ctx, accountID, filter)
}

func (s *WalletService) LedgerSummaries(ctx context.Context) ([]store.AccountLedgerSummary, error) {
	return s.accounts.LedgerSummaries(ctx)
}

type MutationRequest struct {
	AccountID     string
	Kind          string
	AmountMinor   int64
	Description   string
	ReferenceID   *string
	ReferenceKind *string
	CreatedBy     *string
}

// Credit adds funds to the account. Kind must be deposit or refund.
func (s *WalletService) Credit(ctx context.Context, req MutationRequest) (store.Transaction, error) {
	if req.Kind != KindDeposit && req.Kind != KindRefund {
		return store.Transaction{}, ErrInvalidKind
	}
	return s.mutate(ctx, req)
}

// Debit removes funds from the account. Kind must be withdrawal or purchase.
// The overdraft check happens inside the atomic append, under the account
// row lock, never as a separate read-then-write.
func (s *WalletService) Debit(ctx context.Context, req MutationRequest) (store.Transaction, error) {
	if req.Kind != KindWithdrawal && req.Kind != KindPurchase {
		return store.Transaction{}, ErrInvalidKind
	}
	return s.mutate(ctx, req)
}

func (s *WalletService) mutate(ctx context.Context, req MutationRequest) (store.Transaction, error) {
	if req.AmountMinor <= 0 {
		return store.Transaction{}, ErrInvalidAmount
	}
	var txn store.Transaction
	var account store.Account
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		txn, account, err = s.appendLocked(ctx, tx, uuid.NewString(), req)
		return err
	})
	if err != nil {
		return store.Transaction{}, err
	}
	s.afterCommit(account, txn)
	return txn, nil
}

// appendLocked is the single atomic unit every balance mutation goes
// through: lock the account row, derive the new balance, reject overdrafts,
// write the transaction, update the cached balance. It runs inside the
// caller's serializable transaction.
func (s *WalletService) appendLocked(ctx context.Context, tx *sqlx.Tx, txnID string, req MutationRequest) (store.Transaction, store.Account, error) {
	account, err := s.accounts.GetForUpdate(ctx, tx, req.AccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Transaction{}, store.Account{}, ErrAccountNotFound
		}
		return store.Transaction{}, store.Account{}, err
	}
	before := account.Balance
	after := before + signedAmount(req.Kind, req.AmountMinor)
	if after < 0 {
		return store.Transaction{}, store.Account{}, ErrInsufficientFunds
	}
	input := store.TransactionInput{
		ID:            txnID,
		AccountID:     req.AccountID,
		Kind:          req.Kind,
		Amount:        req.AmountMinor,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   req.Description,
		ReferenceID:   req.ReferenceID,
		ReferenceKind: req.ReferenceKind,
		CreatedBy:     req.CreatedBy,
	}
	if err := s.transactions.Create(ctx, tx, input); err != nil {
		return store.Transaction{}, store.Account{}, err
	}
	if err := s.accounts.UpdateBalance(ctx, tx, req.AccountID, after); err != nil {
		return store.Transaction{}, store.Account{}, err
	}
	txn := store.Transaction{
		ID:            txnID,
		AccountID:     req.AccountID,
		Kind:          req.Kind,
		Amount:        req.AmountMinor,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   req.Description,
		ReferenceID:   req.ReferenceID,
		ReferenceKind: req.ReferenceKind,
		CreatedBy:     req.CreatedBy,
	}
	return txn, account, nil
}

// afterCommit fans out the committed mutation: owner notification, metrics,
// log line. All best-effort; the ledger write already stands.
func (s *WalletService) afterCommit(account store.Account, txn store.Transaction) {
	s.hub.BroadcastWalletEvent(account.OwnerID, websocket.WalletEvent{
		AccountID:     txn.AccountID,
		Kind:          txn.Kind,
		Amount:        money.FormatMinor(txn.Amount),
		Balance:       money.FormatMinor(txn.BalanceAfter),
		Currency:      account.Currency,
		TransactionID: txn.ID,
	})
	s.metrics.TransactionApplied(txn.Kind)
	s.logger.Info("ledger transaction applied",
		zap.String("transaction_id", txn.ID),
		zap.String("account_id", txn.AccountID),
		zap.String("kind", txn.Kind),
		zap.Int64("amount_minor", txn.Amount),
		zap.Int64("balance_after", txn.BalanceAfter),
	)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func signedAmount(kind string, amount int64) int64 {
	if kind == KindDeposit || kind == KindRefund {
		return amount
	}
	return -amount
}
