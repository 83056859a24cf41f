package kv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"

	"github.com/chaisql/wirecodec/internal/codec"
	"github.com/chaisql/wirecodec/internal/registry"
	"github.com/chaisql/wirecodec/internal/wire"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/rs/zerolog"
)

var valuesStore = []byte("values")

// Options configures a value store.
type Options struct {
	// Registry resolves type names and OIDs. Defaults to the built-in types.
	Registry *registry.Registry
	// BufferSize is the capacity of the transport buffers used to run codec operations.
	BufferSize int
	// InMemory keeps the database in memory. The path is ignored.
	InMemory bool
	Logger   *zerolog.Logger
}

// Values is a persistent map from keys to typed values.
// Each record is the uvarint OID of the value type followed by the codec payload.
type Values struct {
	ng     *Engine
	reg    *registry.Registry
	size   int
	logger zerolog.Logger
}

// Item describes a stored record.
type Item struct {
	Key  string
	OID  uint32
	Type string
	// Size of the payload in bytes.
	Size int
}

// Open opens or creates the value store at path.
func Open(path string, opts Options) (*Values, error) {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	if opts.Registry == nil {
		opts.Registry = registry.Default(registry.Options{})
	}

	popts := pebble.Options{
		Logger: pebbleLogger{logger},
	}
	if opts.InMemory {
		path = ""
		popts.FS = vfs.NewMem()
	}

	ng, err := NewEngine(path, &popts)
	if err != nil {
		return nil, err
	}

	return &Values{
		ng:     ng,
		reg:    opts.Registry,
		size:   opts.BufferSize,
		logger: logger,
	}, nil
}

// Close the underlying database.
func (s *Values) Close() error {
	return s.ng.Close()
}

func (s *Values) wireOptions() []wire.Option {
	return []wire.Option{wire.WithBufferSize(s.size), wire.WithLogger(s.logger)}
}

// Put encodes v with the codec registered under typeName and stores it under key.
func (s *Values) Put(ctx context.Context, key, typeName string, v any) error {
	if v == nil {
		return errors.Newf("cannot store NULL under %q", key)
	}

	e, err := s.reg.LookupName(typeName)
	if err != nil {
		return err
	}

	rec := binary.AppendUvarint(nil, uint64(e.OID))
	rec, err = wire.AppendPayload(ctx, rec, e.Codec, v, s.wireOptions()...)
	if err != nil {
		return err
	}

	tx := s.ng.Begin(TxOptions{Writable: true})
	defer tx.Rollback()

	err = tx.GetStore(valuesStore).Put([]byte(key), rec)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	s.logger.Debug().Str("key", key).Str("type", e.Name).Int("size", len(rec)).Msg("value stored")
	return nil
}

// Get decodes the value stored under key.
func (s *Values) Get(ctx context.Context, key string) (registry.Entry, any, error) {
	e, payload, err := s.record(key)
	if err != nil {
		return registry.Entry{}, nil, err
	}

	v, err := wire.DecodePayload(ctx, e.Codec, payload, s.wireOptions()...)
	if err != nil {
		return registry.Entry{}, nil, errors.Wrapf(err, "key %q", key)
	}

	return e, v, nil
}

// OpenText returns a reader over the text representation of the value stored under key.
// Version tags are checked before the reader is returned.
func (s *Values) OpenText(key string) (registry.Entry, *bufio.Reader, error) {
	e, payload, err := s.record(key)
	if err != nil {
		return registry.Entry{}, nil, err
	}

	r, err := codec.OpenText(e.Codec, bytes.NewReader(payload))
	if err != nil {
		return registry.Entry{}, nil, errors.Wrapf(err, "key %q", key)
	}

	return e, r, nil
}

func (s *Values) record(key string) (registry.Entry, []byte, error) {
	tx := s.ng.Begin(TxOptions{})
	defer tx.Rollback()

	rec, err := tx.GetStore(valuesStore).Get([]byte(key))
	if err != nil {
		return registry.Entry{}, nil, errors.Wrapf(err, "key %q", key)
	}

	oid, n := binary.Uvarint(rec)
	if n <= 0 || oid > uint64(^uint32(0)) {
		return registry.Entry{}, nil, errors.Wrapf(ErrCorruptedRecord, "key %q", key)
	}

	e, err := s.reg.Lookup(uint32(oid))
	if err != nil {
		return registry.Entry{}, nil, errors.Wrapf(err, "key %q", key)
	}

	return e, rec[n:], nil
}

// Delete removes the value stored under key. If not found, returns ErrKeyNotFound.
func (s *Values) Delete(key string) error {
	tx := s.ng.Begin(TxOptions{Writable: true})
	defer tx.Rollback()

	err := tx.GetStore(valuesStore).Delete([]byte(key))
	if err != nil {
		return errors.Wrapf(err, "key %q", key)
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	s.logger.Debug().Str("key", key).Msg("value deleted")
	return nil
}

// List returns the stored records in key order.
func (s *Values) List(ctx context.Context) ([]Item, error) {
	tx := s.ng.Begin(TxOptions{})
	defer tx.Rollback()

	it := tx.GetStore(valuesStore).Iterator()
	defer it.Close()

	var items []Item
	for it.First(); it.Valid(); it.Next() {
		err := ctx.Err()
		if err != nil {
			return nil, err
		}

		item := Item{Key: string(it.Key())}

		oid, n := binary.Uvarint(it.Value())
		if n <= 0 || oid > uint64(^uint32(0)) {
			return nil, errors.Wrapf(ErrCorruptedRecord, "key %q", item.Key)
		}
		item.OID = uint32(oid)
		item.Size = len(it.Value()) - n

		e, err := s.reg.Lookup(item.OID)
		if err == nil {
			item.Type = e.Name
		} else if !registry.IsNotFoundError(err) {
			return nil, err
		}

		items = append(items, item)
	}

	return items, it.Error()
}
