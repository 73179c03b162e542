package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"dressline/internal/domain/repositories"
)

// TransactionManager implements repositories.TransactionManager on SQLite.
// Nested ExecTx calls join the outer transaction.
type TransactionManager struct {
	db *sql.DB
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(db *sql.DB) repositories.TransactionManager {
	return &TransactionManager{db: db}
}

// ExecTx executes fn within a transaction
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return inTx(ctx, tm.db, fn)
}

// inTx runs fn in the transaction already carried by ctx, or in a new one.
func inTx(ctx context.Context, db *sql.DB, fn repositories.TxFn) error {
	if GetTx(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// no-op after a successful commit
	defer tx.Rollback()

	if err := fn(SetTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
