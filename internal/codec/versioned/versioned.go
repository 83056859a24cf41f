// Package versioned implements a codec that prefixes the payload of another
// codec with a single version tag byte.
//
// The wire representation of a value is
//
//	[1 byte: version tag][N bytes: payload of the inner codec]
//
// Both directions are driven as resumable operations: the tag is handled
// exactly once, strictly before any payload byte, and a step that runs out of
// buffer space or data returns without losing its position. A tag that does
// not match the expected version is a protocol violation: the byte alignment
// of the channel is lost and the channel must be discarded.
package versioned

import (
	"bufio"
	"fmt"
	"io"

	"github.com/chaisql/wirecodec/internal/codec"
	"github.com/cockroachdb/errors"
)

var _ codec.Codec = (*Codec)(nil)

// State is the progress of a write or read operation.
type State uint8

const (
	NotStarted State = iota
	TagPending
	PayloadInProgress
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case TagPending:
		return "tag pending"
	case PayloadInProgress:
		return "payload in progress"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}

	return fmt.Sprintf("State(%d)", uint8(s))
}

// Codec wraps an inner codec with a version tag.
type Codec struct {
	name    string
	version byte
	inner   codec.Codec
}

// New returns a codec writing version before the payload of inner
// and accepting only that version on read.
func New(name string, version byte, inner codec.Codec) *Codec {
	return &Codec{
		name:    name,
		version: version,
		inner:   inner,
	}
}

func (c *Codec) Name() string { return c.name }

// Version returns the only version tag accepted by the codec.
func (c *Codec) Version() byte { return c.version }

// Length returns the encoded length of v, tag included.
// The payload length is computed once per LengthCache: while lc is
// populated the inner codec is not consulted.
func (c *Codec) Length(v any, lc *codec.LengthCache) (int, error) {
	if lc.IsPopulated() {
		return lc.Get() + 1, nil
	}

	n, err := c.inner.Length(v, lc)
	if err != nil {
		return 0, err
	}

	return lc.Set(n) + 1, nil
}

// PrepareWrite returns an operation writing the tag and v to buf.
func (c *Codec) PrepareWrite(buf codec.WriteBuffer, v any, lc *codec.LengthCache) (codec.Writer, error) {
	return c.NewWriteOp(buf, v, lc)
}

// NewWriteOp is like PrepareWrite but returns the concrete operation.
func (c *Codec) NewWriteOp(buf codec.WriteBuffer, v any, lc *codec.LengthCache) (*WriteOp, error) {
	inner, err := c.inner.PrepareWrite(buf, v, lc)
	if err != nil {
		return nil, err
	}

	return &WriteOp{
		c:     c,
		buf:   buf,
		inner: inner,
		state: TagPending,
	}, nil
}

// PrepareRead returns an operation reading a value whose encoding,
// tag included, is length bytes long.
func (c *Codec) PrepareRead(buf codec.ReadBuffer, length int) (codec.Reader, error) {
	return c.NewReadOp(buf, length)
}

// NewReadOp is like PrepareRead but returns the concrete operation.
func (c *Codec) NewReadOp(buf codec.ReadBuffer, length int) (*ReadOp, error) {
	if length < 1 {
		return nil, codec.NewProtocolViolationError(c.name, fmt.Sprintf("declared length %d cannot hold a version tag", length), nil)
	}

	inner, err := c.inner.PrepareRead(buf, length-1)
	if err != nil {
		return nil, err
	}

	return &ReadOp{
		c:     c,
		buf:   buf,
		inner: inner,
		state: TagPending,
	}, nil
}

// TextReader reads the version tag from r and returns a reader over the
// rest of the stream, decoded by the inner codec.
// It is meant for values that are already fully available, so it never suspends.
func (c *Codec) TextReader(r io.Reader) (*bufio.Reader, error) {
	tv, ok := c.inner.(codec.TextViewer)
	if !ok {
		return nil, errors.Wrapf(codec.ErrNotText, "%s", c.name)
	}

	var tag [1]byte
	_, err := io.ReadFull(r, tag[:])
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, codec.NewProtocolViolationError(c.name, "missing version tag", err)
	}

	if tag[0] != c.version {
		return nil, codec.NewTagMismatchError(c.name, c.version, tag[0])
	}

	return tv.TextReader(r), nil
}

// WriteOp writes one value. It must not be shared between goroutines.
type WriteOp struct {
	c     *Codec
	buf   codec.WriteBuffer
	inner codec.Writer
	state State
}

// State returns the progress of the operation.
func (op *WriteOp) State() State { return op.state }

// Write writes as much as buf allows. It returns false when buf is full;
// the caller must flush it and call Write again.
func (op *WriteOp) Write() (bool, error) {
	switch op.state {
	case TagPending:
		if op.buf.WriteSpaceLeft() < 1 {
			return false, nil
		}

		err := op.buf.WriteByte(op.c.version)
		if err != nil {
			return false, op.fail(err)
		}
		op.state = PayloadInProgress
	case PayloadInProgress:
	default:
		return false, errors.Wrapf(codec.ErrOperationDone, "write %s", op.state)
	}

	done, err := op.inner.Write()
	if err != nil {
		return false, op.fail(err)
	}
	if !done {
		return false, nil
	}

	op.buf = nil
	op.inner = nil
	op.state = Done
	return true, nil
}

func (op *WriteOp) fail(err error) error {
	op.buf = nil
	op.inner = nil
	op.state = Failed
	return err
}

// ReadOp reads one value. It must not be shared between goroutines.
type ReadOp struct {
	c     *Codec
	buf   codec.ReadBuffer
	inner codec.Reader
	state State
}

// State returns the progress of the operation.
func (op *ReadOp) State() State { return op.state }

// Read consumes as much as buf holds. It returns false when more bytes are
// needed; the caller must refill buf and call Read again.
// A *codec.ProtocolViolationError is fatal to the channel buf reads from.
func (op *ReadOp) Read() (any, bool, error) {
	switch op.state {
	case TagPending:
		if op.buf.ReadBytesLeft() < 1 {
			return nil, false, nil
		}

		tag, err := op.buf.ReadByte()
		if err != nil {
			return nil, false, op.fail(err)
		}
		if tag != op.c.version {
			return nil, false, op.fail(codec.NewTagMismatchError(op.c.name, op.c.version, tag))
		}
		op.state = PayloadInProgress
	case PayloadInProgress:
	default:
		return nil, false, errors.Wrapf(codec.ErrOperationDone, "read %s", op.state)
	}

	v, done, err := op.inner.Read()
	if err != nil {
		return nil, false, op.fail(err)
	}
	if !done {
		return nil, false, nil
	}

	op.buf = nil
	op.inner = nil
	op.state = Done
	return v, true, nil
}

func (op *ReadOp) fail(err error) error {
	op.buf = nil
	op.inner = nil
	op.state = Failed
	return err
}
