package repositories

import "context"

// TxFn is a function that runs within a transaction. Repositories called with
// the ctx it receives join the transaction.
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions
type TransactionManager interface {
	// ExecTx executes fn within a transaction, committing on nil and rolling back otherwise
	ExecTx(ctx context.Context, fn TxFn) error
}
