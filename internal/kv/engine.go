// Package kv stores encoded values in Pebble.
package kv

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"
)

const (
	separator   byte = 0x1F
	storePrefix      = 's'
)

// Engine represents a Pebble kv.
type Engine struct {
	DB *pebble.DB
}

// NewEngine creates a Pebble kv engine. It takes the same argument as Pebble's Open function.
func NewEngine(path string, opts *pebble.Options) (*Engine, error) {
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open %q", path)
	}

	return &Engine{
		DB: db,
	}, nil
}

// TxOptions is used to configure a transaction upon creation.
type TxOptions struct {
	Writable bool
}

// Begin creates a transaction using Pebble's batch API.
func (e *Engine) Begin(opts TxOptions) *Transaction {
	var batch *pebble.Batch

	if opts.Writable {
		batch = e.DB.NewIndexedBatch()
	}

	return &Transaction{
		ng:       e,
		batch:    batch,
		writable: opts.Writable,
	}
}

// Close the engine and underlying Pebble database.
func (e *Engine) Close() error {
	return e.DB.Close()
}

// A Transaction uses Pebble's batches.
type Transaction struct {
	ng        *Engine
	batch     *pebble.Batch
	writable  bool
	discarded bool
}

// Rollback the transaction. Can be used safely after commit.
func (t *Transaction) Rollback() error {
	if t.discarded {
		return errors.WithStack(ErrTransactionDiscarded)
	}

	if t.writable {
		_ = t.batch.Close()
	}

	t.discarded = true

	return nil
}

// Commit the transaction.
func (t *Transaction) Commit() error {
	if t.discarded {
		return errors.WithStack(ErrTransactionDiscarded)
	}

	if !t.writable {
		return errors.WithStack(ErrTransactionReadOnly)
	}

	t.discarded = true

	defer t.batch.Close()

	return t.batch.Commit(pebble.Sync)
}

func (t *Transaction) reader() pebble.Reader {
	if t.writable {
		return t.batch
	}

	return t.ng.DB
}

func buildStorePrefixKey(name []byte) []byte {
	buf := bufferPool.Get().(*[]byte)
	if cap(*buf) < len(name)+2 {
		*buf = make([]byte, 0, len(name)+2)
	}
	prefix := (*buf)[:0]
	prefix = append(prefix, storePrefix)
	prefix = append(prefix, separator)
	prefix = append(prefix, name...)

	return prefix
}

// GetStore returns a store by name.
func (t *Transaction) GetStore(name []byte) *Store {
	pkey := buildStorePrefixKey(name)

	return &Store{
		tx:       t,
		Prefix:   pkey,
		writable: t.writable,
	}
}

type pebbleLogger struct {
	zerolog.Logger
}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	l.Debug().Str("component", "pebble").Msgf(format, args...)
}

func (l pebbleLogger) Errorf(format string, args ...interface{}) {
	l.Error().Str("component", "pebble").Msgf(format, args...)
}

func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	l.Fatal().Str("component", "pebble").Msgf(format, args...)
}
