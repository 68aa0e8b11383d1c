package store

import (
	"context"
	"time"
)

type AccountStore struct {
	db DB
}

// Account is a wallet account. Balance is a cached projection of the
// transaction chain and is only written inside the atomic append.
type Account struct {
	ID           string    `db:"id"`
	OwnerID      string    `db:"owner_id"`
	DisplayName  string    `db:"display_name"`
	ContactEmail string    `db:"contact_email"`
	Currency     string    `db:"currency"`
	Balance      int64     `db:"balance"`
	CreatedAt    time.Time `db:"created_at"`
}

// AccountLedgerSummary compares the cached balance against the signed sum of
// the account's transactions.
type AccountLedgerSummary struct {
	ID            string `db:"id"`
	OwnerID       string `db:"owner_id"`
	Currency      string `db:"currency"`
	StoredBalance int64  `db:"stored_balance"`
	LedgerBalance int64  `db:"ledger_balance"`
	Difference    int64  `db:"difference"`
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, tx Execer, id, ownerID, displayName, contactEmail, currency string) error {
	query := `
		INSERT INTO wallet_accounts (id, owner_id, display_name, contact_email, currency, balance)
		VALUES ($1, $2, $3, $4, $5, 0)
	`
	_, err := tx.ExecContext(ctx, query, id, ownerID, displayName, contactEmail, currency)
	return err
}

func (s *AccountStore) GetByID(ctx context.Context, accountID string) (Account, error) {
	var row Account
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner_id, display_name, contact_email, currency, balance, created_at
		FROM wallet_accounts
		WHERE id = $1
	`, accountID)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

func (s *AccountStore) GetByOwner(ctx context.Context, ownerID string) (Account, error) {
	var row Account
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner_id, display_name, contact_email, currency, balance, created_at
		FROM wallet_accounts
		WHERE owner_id = $1
	`, ownerID)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

// GetForUpdate locks the account row for the duration of the surrounding
// transaction. Every balance mutation for the account serializes here.
func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, accountID string) (Account, error) {
	var row Account
	err := tx.GetContext(ctx, &row, `
		SELECT id, owner_id, display_name, contact_email, currency, balance
		FROM wallet_accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

func (s *AccountStore) UpdateBalance(ctx context.Context, tx Execer, accountID string, balance int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallet_accounts
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`, balance, accountID)
	return err
}

// LedgerSummaries reports stored vs. derived balances for every account.
func (s *AccountStore) LedgerSummaries(ctx context.Context) ([]AccountLedgerSummary, error) {
	var rows []AccountLedgerSummary
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.id,
		       a.owner_id,
		       a.currency,
		       a.balance AS stored_balance,
		       COALESCE(SUM(CASE WHEN t.kind IN ('deposit', 'refund') THEN t.amount ELSE -t.amount END), 0) AS ledger_balance,
		       (a.balance - COALESCE(SUM(CASE WHEN t.kind IN ('deposit', 'refund') THEN t.amount ELSE -t.amount END), 0)) AS difference
		FROM wallet_accounts a
		LEFT JOIN wallet_transactions t ON t.account_id = a.id
		GROUP BY a.id, a.owner_id, a.currency, a.balance
		ORDER BY a.created_at
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
