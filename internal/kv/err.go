package kv

import "github.com/cockroachdb/errors"

// Common errors returned by the engine and the value store.
var (
	// ErrTransactionReadOnly is returned when attempting to call write methods on a read-only transaction.
	ErrTransactionReadOnly = errors.New("transaction is read-only")

	// ErrTransactionDiscarded is returned when calling Rollback or Commit after a transaction is no longer valid.
	ErrTransactionDiscarded = errors.New("transaction has been discarded")

	// ErrKeyNotFound is returned when the targeted key doesn't exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrCorruptedRecord is returned when a stored record cannot be parsed.
	ErrCorruptedRecord = errors.New("corrupted record")
)
