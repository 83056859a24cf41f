package wire

import (
	"context"
	"io"
	"math"

	"github.com/chaisql/wirecodec/internal/buffer"
	"github.com/chaisql/wirecodec/internal/codec"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Encoder writes framed values to an io.Writer.
type Encoder struct {
	buf    *buffer.WriteBuffer
	logger zerolog.Logger
	// set once a frame has been left incomplete
	err error
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer, opts ...Option) *Encoder {
	o := newOptions(opts)

	return &Encoder{
		buf:    buffer.NewWriteBuffer(w, o.size),
		logger: o.logger,
	}
}

// Encode writes v as one frame using c. A nil v is written as NULL.
// Encoded bytes may remain buffered until the next Flush.
//
// Errors returned before the frame header is written, such as invalid
// values, leave the encoder usable. Any later error breaks it and
// is returned by every subsequent call.
func (e *Encoder) Encode(ctx context.Context, c codec.Codec, v any) error {
	if e.err != nil {
		return e.err
	}

	err := ctx.Err()
	if err != nil {
		return err
	}

	if v == nil {
		return e.writeHeader(NullLength)
	}

	var lc codec.LengthCache
	n, err := c.Length(v, &lc)
	if err != nil {
		return err
	}
	if n > math.MaxInt32 {
		return codec.NewInvalidValueError(c.Name(), v, errors.Newf("encoded length %d exceeds the frame limit", n))
	}

	w, err := c.PrepareWrite(e.buf, v, &lc)
	if err != nil {
		return err
	}

	err = e.writeHeader(int32(n))
	if err != nil {
		return err
	}

	for steps := 1; ; steps++ {
		done, err := w.Write()
		if err != nil {
			return e.fail(c, err)
		}
		if done {
			e.logger.Trace().Str("codec", c.Name()).Int("length", n).Int("steps", steps).Msg("value encoded")
			return nil
		}

		e.logger.Trace().Str("codec", c.Name()).Int("buffered", e.buf.Buffered()).Msg("write suspended")

		err = ctx.Err()
		if err != nil {
			return e.fail(c, err)
		}

		err = e.buf.Flush()
		if err != nil {
			return e.fail(c, err)
		}
	}
}

func (e *Encoder) writeHeader(n int32) error {
	if e.buf.WriteSpaceLeft() < headerSize {
		err := e.buf.Flush()
		if err != nil {
			e.err = err
			return err
		}
	}

	return e.buf.WriteInt32(n)
}

func (e *Encoder) fail(c codec.Codec, err error) error {
	e.logger.Error().Err(err).Str("codec", c.Name()).Msg("frame left incomplete")
	e.err = errors.Wrapf(err, "encode %s", c.Name())
	return e.err
}

// Flush sends the buffered bytes to the underlying writer.
func (e *Encoder) Flush() error {
	if e.err != nil {
		return e.err
	}

	err := e.buf.Flush()
	if err != nil {
		e.err = err
	}
	return err
}

// Err returns the error that broke the encoder, if any.
func (e *Encoder) Err() error { return e.err }
