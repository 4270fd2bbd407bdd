package service

import "context"

// TxRepositories provides transaction-bound repositories. Order placement
// writes the order and the table transition through the same transaction.
type TxRepositories interface {
	Orders() OrderRepositoryInterface
	Tables() TableRepositoryInterface
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
