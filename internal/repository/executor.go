package repository

import (
	"context"
	"database/sql"

	"github.com/garyjia/approval-engine/internal/port"
	"github.com/garyjia/approval-engine/pkg/database"
)

type contextKey string

const txKey contextKey = "tx"

// executor abstracts *sql.DB and *sql.Tx so repositories run unchanged
// inside and outside transactions.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// executorFrom returns the transaction stashed in the context, or the plain
// connection pool.
func executorFrom(ctx context.Context, db *sql.DB) executor {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return db
}

// TxManager implements port.TransactionManager on top of the database
// wrapper, carrying the open transaction through the context.
type TxManager struct {
	db *database.DB
}

// NewTxManager creates a new transaction manager
func NewTxManager(db *database.DB) port.TransactionManager {
	return &TxManager{db: db}
}

// WithTransaction executes fn within a single transaction
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.WithTransaction(func(tx *sql.Tx) error {
		return fn(context.WithValue(ctx, txKey, tx))
	})
}

// Verify interface compliance
var _ port.TransactionManager = (*TxManager)(nil)
