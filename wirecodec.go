package wirecodec

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/chaisql/wirecodec/internal/codec"
	"github.com/chaisql/wirecodec/internal/codec/text"
	"github.com/chaisql/wirecodec/internal/registry"
	"github.com/chaisql/wirecodec/internal/wire"
	"github.com/cockroachdb/errors"
)

// Errors matched with errors.Is.
var (
	ErrProtocolViolation = codec.ErrProtocolViolation
	ErrInvalidValue      = codec.ErrInvalidValue
	ErrNotText           = codec.ErrNotText
)

type options struct {
	bufferSize int
	encoding   string
}

// An Option configures a call.
type Option func(*options)

// WithBufferSize sets the capacity of the transport buffer the operation runs through.
func WithBufferSize(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// WithEncoding sets the character encoding of text payloads by IANA name.
// UTF-8 is used by default.
func WithEncoding(name string) Option {
	return func(o *options) {
		o.encoding = name
	}
}

func lookup(typeName string, opts []Option) (codec.Codec, options, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	enc, err := text.LookupEncoding(o.encoding)
	if err != nil {
		return nil, o, err
	}

	e, err := registry.Default(registry.Options{Encoding: enc}).LookupName(typeName)
	if err != nil {
		return nil, o, err
	}

	return e.Codec, o, nil
}

// Types returns the names of the supported types, ordered by OID.
func Types() []string {
	var names []string
	for _, e := range registry.Default(registry.Options{}).Entries() {
		names = append(names, e.Name)
	}

	return names
}

// Marshal returns the binary encoding of v as the named type.
// Text types accept string, []byte and []rune values, bytea accepts []byte and string.
func Marshal(typeName string, v any, opts ...Option) ([]byte, error) {
	c, o, err := lookup(typeName, opts)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.Newf("cannot marshal a nil %s", c.Name())
	}

	return wire.AppendPayload(context.Background(), nil, c, v, wire.WithBufferSize(o.bufferSize))
}

// Unmarshal decodes data, the binary encoding of a value of the named type.
// Text types decode to string, bytea to []byte.
func Unmarshal(typeName string, data []byte, opts ...Option) (any, error) {
	c, o, err := lookup(typeName, opts)
	if err != nil {
		return nil, err
	}

	return wire.DecodePayload(context.Background(), c, data, wire.WithBufferSize(o.bufferSize))
}

// TextReader returns a reader over the text of the complete binary payload r.
// The format version, if the type has one, is checked before returning.
func TextReader(typeName string, r io.Reader, opts ...Option) (*bufio.Reader, error) {
	c, _, err := lookup(typeName, opts)
	if err != nil {
		return nil, err
	}

	return codec.OpenText(c, r)
}

// Text is like TextReader but reads the whole text of data.
func Text(typeName string, data []byte, opts ...Option) (string, error) {
	r, err := TextReader(typeName, bytes.NewReader(data), opts...)
	if err != nil {
		return "", err
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "read text")
	}

	return string(b), nil
}

// IsProtocolViolation reports whether err was caused by a malformed payload.
func IsProtocolViolation(err error) bool {
	return codec.IsProtocolViolation(err)
}

// IsInvalidValue reports whether err was caused by a value that cannot be encoded.
func IsInvalidValue(err error) bool {
	return codec.IsInvalidValue(err)
}
