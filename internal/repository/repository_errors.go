package repository

import "errors"

var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrDuplicateTransaction = errors.New("transaction with this idempotency key already exists")
)
