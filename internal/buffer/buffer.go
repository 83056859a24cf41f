// Package buffer implements size-bounded transport buffers.
//
// Unlike bufio, these buffers never flush or refill on their own: a codec
// step writes or reads what fits and reports back, and the owner of the
// buffer decides when to call Flush or Fill.
package buffer

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
)

// DefaultSize is used when a buffer is created with a non-positive size.
const DefaultSize = 8192

const maxConsecutiveEmptyReads = 100

var (
	// ErrBufferFull is returned when writing to a full buffer, or filling
	// a read buffer that has no free space.
	ErrBufferFull = errors.New("buffer is full")

	// ErrBufferEmpty is returned when reading more bytes than available.
	ErrBufferEmpty = errors.New("buffer is empty")
)

// WriteBuffer accumulates bytes until Flush sends them to the underlying writer.
type WriteBuffer struct {
	w   io.Writer
	buf []byte
	n   int
}

// NewWriteBuffer returns a buffer of the given capacity writing to w.
func NewWriteBuffer(w io.Writer, size int) *WriteBuffer {
	if size <= 0 {
		size = DefaultSize
	}

	return &WriteBuffer{
		w:   w,
		buf: make([]byte, size),
	}
}

// Size returns the capacity of the buffer.
func (b *WriteBuffer) Size() int { return len(b.buf) }

// Buffered returns the number of bytes waiting to be flushed.
func (b *WriteBuffer) Buffered() int { return b.n }

// WriteSpaceLeft returns the number of bytes that can be written before flushing.
func (b *WriteBuffer) WriteSpaceLeft() int { return len(b.buf) - b.n }

// WriteByte appends c to the buffer.
func (b *WriteBuffer) WriteByte(c byte) error {
	if b.n == len(b.buf) {
		return errors.WithStack(ErrBufferFull)
	}

	b.buf[b.n] = c
	b.n++
	return nil
}

// WriteSome copies as much of p as fits and returns the number of bytes copied.
func (b *WriteBuffer) WriteSome(p []byte) int {
	n := copy(b.buf[b.n:], p)
	b.n += n
	return n
}

// WriteInt32 appends v in big-endian order. The four bytes are written
// all at once or not at all.
func (b *WriteBuffer) WriteInt32(v int32) error {
	if b.WriteSpaceLeft() < 4 {
		return errors.WithStack(ErrBufferFull)
	}

	binary.BigEndian.PutUint32(b.buf[b.n:], uint32(v))
	b.n += 4
	return nil
}

// Flush writes the buffered bytes to the underlying writer.
// On error, the bytes that were not written are kept at the front of the buffer.
func (b *WriteBuffer) Flush() error {
	if b.n == 0 {
		return nil
	}

	n, err := b.w.Write(b.buf[:b.n])
	if n < b.n && err == nil {
		err = io.ErrShortWrite
	}
	if err != nil {
		if n > 0 && n < b.n {
			copy(b.buf[0:b.n-n], b.buf[n:b.n])
		}
		b.n -= n
		return errors.Wrap(err, "flush")
	}

	b.n = 0
	return nil
}

// ReadBuffer holds bytes read from the underlying reader until they are consumed.
type ReadBuffer struct {
	r          io.Reader
	buf        []byte
	start, end int
}

// NewReadBuffer returns a buffer of the given capacity reading from r.
func NewReadBuffer(r io.Reader, size int) *ReadBuffer {
	if size <= 0 {
		size = DefaultSize
	}

	return &ReadBuffer{
		r:   r,
		buf: make([]byte, size),
	}
}

// Size returns the capacity of the buffer.
func (b *ReadBuffer) Size() int { return len(b.buf) }

// ReadBytesLeft returns the number of bytes available without refilling.
func (b *ReadBuffer) ReadBytesLeft() int { return b.end - b.start }

// ReadByte consumes one byte.
func (b *ReadBuffer) ReadByte() (byte, error) {
	if b.start == b.end {
		return 0, errors.WithStack(ErrBufferEmpty)
	}

	c := b.buf[b.start]
	b.start++
	return c, nil
}

// ReadSome copies up to len(p) buffered bytes into p and returns the number copied.
func (b *ReadBuffer) ReadSome(p []byte) int {
	n := copy(p, b.buf[b.start:b.end])
	b.start += n
	return n
}

// ReadInt32 consumes four bytes as a big-endian integer.
func (b *ReadBuffer) ReadInt32() (int32, error) {
	if b.ReadBytesLeft() < 4 {
		return 0, errors.WithStack(ErrBufferEmpty)
	}

	v := int32(binary.BigEndian.Uint32(b.buf[b.start:]))
	b.start += 4
	return v, nil
}

// Fill reads at least one more byte from the underlying reader.
// It returns io.EOF if the reader is exhausted and nothing was read.
func (b *ReadBuffer) Fill() error {
	if b.start > 0 {
		copy(b.buf, b.buf[b.start:b.end])
		b.end -= b.start
		b.start = 0
	}

	if b.end == len(b.buf) {
		return errors.WithStack(ErrBufferFull)
	}

	for i := 0; i < maxConsecutiveEmptyReads; i++ {
		n, err := b.r.Read(b.buf[b.end:])
		if n < 0 {
			return errors.New("reader returned negative count")
		}
		b.end += n
		if n > 0 {
			return nil
		}
		if err != nil {
			return err
		}
	}

	return io.ErrNoProgress
}

// Ensure fills the buffer until at least n bytes are available.
func (b *ReadBuffer) Ensure(n int) error {
	if n > len(b.buf) {
		return errors.Newf("cannot ensure %d bytes in a buffer of %d", n, len(b.buf))
	}

	for b.ReadBytesLeft() < n {
		err := b.Fill()
		if err != nil {
			return err
		}
	}

	return nil
}
