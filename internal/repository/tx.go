package repository

import "context"

// TxManager wraps a function in a single storage transaction. Repositories
// participating in the transaction resolve it from the context, so a whole
// lifecycle operation (status change, membership cascade, credential swap)
// commits or rolls back as one unit.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
