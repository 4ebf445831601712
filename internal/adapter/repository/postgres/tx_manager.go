package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/corebank/internal/usecase"
)

type txBeginner interface {
	Begin(context.Context) (pgx.Tx, error)
}

// TxManager starts pgx transactions behind the usecase.TransactionManager
// interface, keeping the use case layer free of driver types.
type TxManager struct {
	beginner txBeginner
}

// NewTxManager creates a TxManager backed by the connection pool.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{beginner: pool}
}

// Begin opens a new database transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx, err := m.beginner.Begin(ctx)
	if err != nil {
		return nil, err
	}

	return &Tx{tx: tx}, nil
}

// Tx adapts a pgx.Tx to usecase.Transaction.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *Tx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// PgxTx exposes the wrapped transaction to repositories in this package.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}
