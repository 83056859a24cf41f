package wire

import (
	"context"
	"fmt"
	"io"

	"github.com/chaisql/wirecodec/internal/buffer"
	"github.com/chaisql/wirecodec/internal/codec"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Decoder reads framed values from an io.Reader.
type Decoder struct {
	buf    *buffer.ReadBuffer
	logger zerolog.Logger
	err    error
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	o := newOptions(opts)

	return &Decoder{
		buf:    buffer.NewReadBuffer(r, o.size),
		logger: o.logger,
	}
}

// Decode reads the next frame using c. NULL frames decode to nil.
// It returns io.EOF when the stream ends between two frames.
//
// Any other error breaks the decoder: the stream position is lost and every
// subsequent call returns the same error.
func (d *Decoder) Decode(ctx context.Context, c codec.Codec) (any, error) {
	if d.err != nil {
		return nil, d.err
	}

	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	err = d.buf.Ensure(headerSize)
	if err != nil {
		if errors.Is(err, io.EOF) {
			if d.buf.ReadBytesLeft() == 0 {
				return nil, io.EOF
			}
			err = io.ErrUnexpectedEOF
		}
		return nil, d.fail(c, err)
	}

	n, err := d.buf.ReadInt32()
	if err != nil {
		return nil, d.fail(c, err)
	}
	if n == NullLength {
		return nil, nil
	}
	if n < 0 {
		return nil, d.fail(c, codec.NewProtocolViolationError("wire", fmt.Sprintf("invalid frame length %d", n), nil))
	}

	r, err := c.PrepareRead(d.buf, int(n))
	if err != nil {
		return nil, d.fail(c, err)
	}

	for {
		v, done, err := r.Read()
		if err != nil {
			return nil, d.fail(c, err)
		}
		if done {
			return v, nil
		}

		d.logger.Trace().Str("codec", c.Name()).Int32("length", n).Msg("read suspended")

		err = ctx.Err()
		if err != nil {
			return nil, d.fail(c, err)
		}

		err = d.buf.Fill()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, d.fail(c, err)
		}
	}
}

func (d *Decoder) fail(c codec.Codec, err error) error {
	ev := d.logger.Error()
	if codec.IsProtocolViolation(err) {
		ev = d.logger.Warn().Bool("protocol_violation", true)
	}
	ev.Err(err).Str("codec", c.Name()).Msg("decoder broken")

	d.err = errors.Wrapf(err, "decode %s", c.Name())
	return d.err
}

// Err returns the error that broke the decoder, if any.
func (d *Decoder) Err() error { return d.err }
