// Package codec defines the contracts shared by every chunked codec.
//
// A chunked codec never assumes that a buffer can hold a whole value. Writing
// and reading a value is split in two: a Prepare call that builds a fresh
// operation bound to a buffer, and a step method that is called repeatedly,
// each time consuming or producing whatever the buffer currently allows.
// A step returns done == false when it ran out of buffer space or data; the
// caller is expected to flush or refill the buffer and call the same step
// again. No byte is lost or duplicated between steps.
package codec

import (
	"bufio"
	"io"

	"github.com/cockroachdb/errors"
)

// WriteBuffer is the outbound side of a size-bounded transport buffer.
type WriteBuffer interface {
	// WriteSpaceLeft returns the number of bytes that can be written
	// before the buffer must be flushed.
	WriteSpaceLeft() int
	// WriteByte appends one byte. It fails if the buffer is full.
	WriteByte(c byte) error
	// WriteSome copies as many bytes of p as fit and returns that number.
	WriteSome(p []byte) int
}

// ReadBuffer is the inbound side of a size-bounded transport buffer.
type ReadBuffer interface {
	// ReadBytesLeft returns the number of bytes available without
	// refilling the buffer.
	ReadBytesLeft() int
	// ReadByte consumes one byte. It fails if the buffer is empty.
	ReadByte() (byte, error)
	// ReadSome copies up to len(p) available bytes into p and returns that number.
	ReadSome(p []byte) int
}

// A Codec encodes and decodes one kind of value.
// Codecs hold no per-value state and can be shared; all resumption state
// lives in the Writer and Reader they return.
type Codec interface {
	// Name returns the type name used in diagnostics.
	Name() string
	// Length returns the number of bytes needed to encode v.
	// If lc is populated, implementations return its content without
	// recomputing. Otherwise they store the computed length in lc.
	// lc may be nil.
	Length(v any, lc *LengthCache) (int, error)
	// PrepareWrite returns an operation writing v to buf.
	PrepareWrite(buf WriteBuffer, v any, lc *LengthCache) (Writer, error)
	// PrepareRead returns an operation reading a value of the given
	// declared length from buf.
	PrepareRead(buf ReadBuffer, length int) (Reader, error)
}

// A Writer is an in-flight write operation.
type Writer interface {
	// Write writes as much of the value as the buffer allows.
	// It returns true once the last byte has been written.
	Write() (done bool, err error)
}

// A Reader is an in-flight read operation.
type Reader interface {
	// Read consumes as much of the value as the buffer holds.
	// Once the last byte has been consumed it returns the value and true.
	Read() (v any, done bool, err error)
}

// A TextViewer is implemented by codecs whose payload is text.
type TextViewer interface {
	// TextReader returns a reader decoding r according to the codec's
	// character encoding.
	TextReader(r io.Reader) *bufio.Reader
}

// A StreamViewer is implemented by codecs that frame a text payload and
// must check the frame before exposing the text.
type StreamViewer interface {
	TextReader(r io.Reader) (*bufio.Reader, error)
}

// OpenText returns a reader over the text held by the complete payload r.
// It returns ErrNotText if c has no text representation.
func OpenText(c Codec, r io.Reader) (*bufio.Reader, error) {
	switch t := c.(type) {
	case StreamViewer:
		return t.TextReader(r)
	case TextViewer:
		return t.TextReader(r), nil
	}

	return nil, errors.Wrapf(ErrNotText, "%s", c.Name())
}
