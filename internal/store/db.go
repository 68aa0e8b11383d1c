package store

import (
	"context"
	"database/sql"
)

// The stores take the narrowest database surface they need, so a *sqlx.DB,
// a *sqlx.Tx, or a test stub all satisfy them.

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

type Selecter interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type DB interface {
	Execer
	Getter
	Selecter
}
