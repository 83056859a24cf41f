// Package text implements the chunked codec for text values.
package text

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unsafe"

	"github.com/chaisql/wirecodec/internal/codec"
	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// MaxLength is the largest payload accepted on read.
const MaxLength = 1 << 30

var (
	_ codec.Codec      = (*Codec)(nil)
	_ codec.TextViewer = (*Codec)(nil)
)

// Codec encodes string, []byte and []rune values and decodes them as strings.
type Codec struct {
	name string
	// nil means UTF-8, written and read as is.
	enc encoding.Encoding
}

// An Option configures a Codec.
type Option func(*Codec)

// WithEncoding sets the character encoding used on the wire.
func WithEncoding(enc encoding.Encoding) Option {
	return func(c *Codec) {
		c.enc = enc
	}
}

// WithName overrides the type name reported in errors.
func WithName(name string) Option {
	return func(c *Codec) {
		c.name = name
	}
}

// New returns a text codec.
func New(opts ...Option) *Codec {
	c := Codec{name: "text"}
	for _, opt := range opts {
		opt(&c)
	}

	return &c
}

// LookupEncoding returns the encoding registered under the given IANA name.
// UTF-8 and the empty name return a nil encoding.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf8", "utf-8", "unicode":
		return nil, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown encoding %q", name)
	}
	if enc == nil {
		return nil, errors.Newf("unsupported encoding %q", name)
	}

	return enc, nil
}

func (c *Codec) Name() string { return c.name }

// Encoding returns the configured encoding, nil for UTF-8.
func (c *Codec) Encoding() encoding.Encoding { return c.enc }

func (c *Codec) Length(v any, lc *codec.LengthCache) (int, error) {
	if lc.IsPopulated() {
		return lc.Get(), nil
	}

	p, err := c.payload(v)
	if err != nil {
		return 0, err
	}

	return lc.Set(len(p)), nil
}

func (c *Codec) PrepareWrite(buf codec.WriteBuffer, v any, lc *codec.LengthCache) (codec.Writer, error) {
	p, err := c.payload(v)
	if err != nil {
		return nil, err
	}

	if lc.IsPopulated() && lc.Get() != len(p) {
		return nil, errors.AssertionFailedf("%s: value is %d bytes long but %d bytes were declared", c.name, len(p), lc.Get())
	}

	return &writer{buf: buf, data: p}, nil
}

func (c *Codec) PrepareRead(buf codec.ReadBuffer, length int) (codec.Reader, error) {
	if length < 0 || length > MaxLength {
		return nil, codec.NewProtocolViolationError(c.name, fmt.Sprintf("invalid payload length %d", length), nil)
	}

	return &reader{c: c, buf: buf, data: codec.NewPayload(length), length: length}, nil
}

// TextReader returns a reader decoding r with the codec's encoding.
func (c *Codec) TextReader(r io.Reader) *bufio.Reader {
	if c.enc != nil {
		r = transform.NewReader(r, c.enc.NewDecoder())
	}

	return bufio.NewReader(r)
}

// payload returns the encoded bytes of v.
// For UTF-8 strings the returned slice shares memory with v and must not be modified.
func (c *Codec) payload(v any) ([]byte, error) {
	var s string

	switch t := v.(type) {
	case string:
		s = t
	case []byte:
		if c.enc == nil {
			return t, nil
		}
		s = string(t)
	case []rune:
		s = string(t)
	default:
		return nil, codec.NewInvalidTypeError(c.name, v)
	}

	if c.enc == nil {
		return unsafe.Slice(unsafe.StringData(s), len(s)), nil
	}

	p, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, codec.NewInvalidValueError(c.name, v, err)
	}

	return p, nil
}

func (c *Codec) decode(p []byte) (string, error) {
	if c.enc == nil {
		return string(p), nil
	}

	s, err := c.enc.NewDecoder().Bytes(p)
	if err != nil {
		return "", codec.NewProtocolViolationError(c.name, "payload cannot be decoded", err)
	}

	return string(s), nil
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

	if w.pos < len(w.data) {
		w.pos += w.buf.WriteSome(w.data[w.pos:])
	}
	if w.pos < len(w.data) {
		return false, nil
	}

	w.buf = nil
	w.data = nil
	return true, nil
}

type reader struct {
	c      *Codec
	buf    codec.ReadBuffer
	data   []byte
	length int
}

func (r *reader) Read() (any, bool, error) {
	if r.buf == nil {
		return nil, false, errors.WithStack(codec.ErrOperationDone)
	}

	if len(r.data) < r.length {
		r.data = codec.ReadPayload(r.buf, r.data, r.length)
	}
	if len(r.data) < r.length {
		return nil, false, nil
	}

	r.buf = nil
	s, err := r.c.decode(r.data)
	r.data = nil
	if err != nil {
		return nil, false, err
	}

	return s, true, nil
}
