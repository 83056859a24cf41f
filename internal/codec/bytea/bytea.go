// Package bytea implements the chunked codec for raw binary values.
package bytea

import (
	"fmt"

	"github.com/chaisql/wirecodec/internal/codec"
	"github.com/cockroachdb/errors"
)

// MaxLength is the largest payload accepted on read.
const MaxLength = 1 << 30

var _ codec.Codec = Codec{}

// Codec encodes []byte and string values and decodes them as []byte.
type Codec struct{}

func (Codec) Name() string { return "bytea" }

func (c Codec) Length(v any, lc *codec.LengthCache) (int, error) {
	if lc.IsPopulated() {
		return lc.Get(), nil
	}

	p, err := c.payload(v)
	if err != nil {
		return 0, err
	}

	return lc.Set(len(p)), nil
}

func (c Codec) PrepareWrite(buf codec.WriteBuffer, v any, lc *codec.LengthCache) (codec.Writer, error) {
	p, err := c.payload(v)
	if err != nil {
		return nil, err
	}

	return &writer{buf: buf, data: p}, nil
}

func (c Codec) PrepareRead(buf codec.ReadBuffer, length int) (codec.Reader, error) {
	if length < 0 || length > MaxLength {
		return nil, codec.NewProtocolViolationError(c.Name(), fmt.Sprintf("invalid payload length %d", length), nil)
	}

	return &reader{buf: buf, data: codec.NewPayload(length), length: length}, nil
}

func (c Codec) payload(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	}

	return nil, codec.NewInvalidTypeError(c.Name(), v)
}

type writer struct {
	buf  codec.WriteBuffer
	data []byte
	pos  int
}

func (w *writer) Write() (bool, error) {
	if w.buf == nil {
		return false, errors.WithStack(codec.ErrOperationDone)
	}

	w.pos += w.buf.WriteSome(w.data[w.pos:])
	if w.pos < len(w.data) {
		return false, nil
	}

	w.buf = nil
	return true, nil
}

type reader struct {
	buf    codec.ReadBuffer
	data   []byte
	length int
}

func (r *reader) Read() (any, bool, error) {
	if r.buf == nil {
		return nil, false, errors.WithStack(codec.ErrOperationDone)
	}

	r.data = codec.ReadPayload(r.buf, r.data, r.length)
	if len(r.data) < r.length {
		return nil, false, nil
	}

	r.buf = nil
	return r.data, true, nil
}
