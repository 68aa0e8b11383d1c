package store

import (
	"context"
	"fmt"
	"time"
)

type TransactionStore struct {
	db DB
}

// Transaction is one immutable entry in an account's ledger. Amount is always
// positive; the sign is implied by Kind.
type Transaction struct {
	ID            string    `db:"id"`
	AccountID     string    `db:"account_id"`
	Kind          string    `db:"kind"`
	Amount        int64     `db:"amount"`
	BalanceBefore int64     `db:"balance_before"`
	BalanceAfter  int64     `db:"balance_after"`
	Description   string    `db:"description"`
	ReferenceID   *string   `db:"reference_id"`
	ReferenceKind *string   `db:"reference_kind"`
	CreatedBy     *string   `db:"created_by"`
	CreatedAt     time.Time `db:"created_at"`
}

type TransactionInput struct {
	ID            string
	AccountID     string
	Kind          string
	Amount        int64
	BalanceBefore int64
	BalanceAfter  int64
	Description   string
	ReferenceID   *string
	ReferenceKind *string
	CreatedBy     *string
}

// HistoryFilter narrows ListByAccount. Zero values mean no filtering.
type HistoryFilter struct {
	Kind   string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input TransactionInput) error {
	query := `
		INSERT INTO wallet_transactions (id, account_id, kind, amount, balance_before, balance_after, description, reference_id, reference_kind, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.AccountID, input.Kind, input.Amount, input.BalanceBefore, input.BalanceAfter,
		input.Description, input.ReferenceID, input.ReferenceKind, input.CreatedBy,
	)
	return err
}

func (s *TransactionStore) ListByAccount(ctx context.Context, accountID string, filter HistoryFilter) ([]Transaction, error) {
	query := `
		SELECT id, account_id, kind, amount, balance_before, balance_after, description, reference_id, reference_kind, created_by, created_at
		FROM wallet_transactions
		WHERE account_id = $1
	`
	args := []any{accountID}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		query += ` AND kind = $2`
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += ` AND created_at >= $` + itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += ` AND created_at < $` + itoa(len(args))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args))

	var rows []Transaction
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func itoa(value int) string {
	return fmt.Sprintf("%d", value)
}
