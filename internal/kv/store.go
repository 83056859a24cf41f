package kv

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return &[]byte{}
	},
}

// Store is a namespace of keys within a transaction.
type Store struct {
	tx       *Transaction
	Prefix   []byte
	writable bool
}

// build a long key for each key of a store
// in the form: storePrefix + <sep> + 0 + key.
// the 0 separates the actual key from the rest of the prefix
// so that a bound built with 0xff sorts after every key of the store.
func BuildKey(prefix, k []byte) []byte {
	buf := bufferPool.Get().(*[]byte)
	if cap(*buf) < len(prefix)+len(k)+2 {
		*buf = make([]byte, 0, len(prefix)+len(k)+2)
	}
	key := (*buf)[:0]
	key = append(key, prefix...)
	key = append(key, separator)
	key = append(key, 0)
	key = append(key, k...)
	return key
}

func TrimPrefix(k []byte, prefix []byte) []byte {
	return k[len(prefix)+2:]
}

// Put stores a key value pair. If it already exists, it overrides it.
func (s *Store) Put(k, v []byte) error {
	if !s.writable {
		return errors.WithStack(ErrTransactionReadOnly)
	}

	if len(k) == 0 {
		return errors.New("cannot store empty key")
	}

	if len(v) == 0 {
		return errors.New("cannot store empty value")
	}

	key := BuildKey(s.Prefix, k)
	err := s.tx.batch.Set(key, v, nil)
	bufferPool.Put(&key)
	return err
}

// Get returns a value associated with the given key. If not found, returns ErrKeyNotFound.
func (s *Store) Get(k []byte) ([]byte, error) {
	key := BuildKey(s.Prefix, k)
	value, closer, err := s.tx.reader().Get(key)
	bufferPool.Put(&key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, errors.WithStack(ErrKeyNotFound)
		}

		return nil, err
	}

	cp := make([]byte, len(value))
	copy(cp, value)

	err = closer.Close()
	if err != nil {
		return nil, err
	}

	return cp, nil
}

// Delete a record by key. If not found, returns ErrKeyNotFound.
func (s *Store) Delete(k []byte) error {
	if !s.writable {
		return errors.WithStack(ErrTransactionReadOnly)
	}

	key := BuildKey(s.Prefix, k)
	defer bufferPool.Put(&key)

	_, closer, err := s.tx.batch.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return errors.WithStack(ErrKeyNotFound)
		}

		return err
	}
	err = closer.Close()
	if err != nil {
		return err
	}

	return s.tx.batch.Delete(key, nil)
}

// Iterator returns an iterator over the keys of the store.
func (s *Store) Iterator() *Iterator {
	lowerBound := BuildKey(s.Prefix, nil)
	upperBound := BuildKey(s.Prefix, nil)
	upperBound[len(s.Prefix)+1] = 0xff

	opts := pebble.IterOptions{
		LowerBound: lowerBound,
		UpperBound: upperBound,
	}

	var it *pebble.Iterator
	if s.tx.writable {
		it = s.tx.batch.NewIter(&opts)
	} else {
		it = s.tx.ng.DB.NewIter(&opts)
	}

	return &Iterator{
		Iterator:   it,
		prefix:     s.Prefix,
		lowerBound: lowerBound,
		upperBound: upperBound,
	}
}

// Iterator iterates over the records of a store.
type Iterator struct {
	*pebble.Iterator

	prefix                 []byte
	lowerBound, upperBound []byte
}

// Key returns the current key, without the store prefix.
func (it *Iterator) Key() []byte {
	return TrimPrefix(it.Iterator.Key(), it.prefix)
}

func (it *Iterator) Close() error {
	err := it.Iterator.Close()
	bufferPool.Put(&it.lowerBound)
	bufferPool.Put(&it.upperBound)
	return err
}
