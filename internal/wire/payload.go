package wire

import (
	"bytes"
	"context"
	"io"

	"github.com/chaisql/wirecodec/internal/buffer"
	"github.com/chaisql/wirecodec/internal/codec"
	"github.com/cockroachdb/errors"
)

// AppendPayload appends the unframed encoding of v to dst.
// The write operation runs through a transport buffer, flushed each time it suspends.
func AppendPayload(ctx context.Context, dst []byte, c codec.Codec, v any, opts ...Option) ([]byte, error) {
	o := newOptions(opts)

	var lc codec.LengthCache
	n, err := c.Length(v, &lc)
	if err != nil {
		return dst, err
	}

	out := bytes.NewBuffer(dst)
	start := out.Len()
	buf := buffer.NewWriteBuffer(out, o.size)

	w, err := c.PrepareWrite(buf, v, &lc)
	if err != nil {
		return dst, err
	}

	for {
		done, err := w.Write()
		if err != nil {
			return dst, err
		}

		err = buf.Flush()
		if err != nil {
			return dst, err
		}
		if done {
			break
		}

		o.logger.Trace().Str("codec", c.Name()).Int("written", out.Len()-start).Msg("write suspended")

		err = ctx.Err()
		if err != nil {
			return dst, err
		}
	}

	if out.Len()-start != n {
		return dst, errors.AssertionFailedf("%s: wrote %d bytes, expected %d", c.Name(), out.Len()-start, n)
	}

	return out.Bytes(), nil
}

// DecodePayload decodes an unframed payload.
// The read operation runs through a transport buffer, refilled each time it suspends.
func DecodePayload(ctx context.Context, c codec.Codec, data []byte, opts ...Option) (any, error) {
	o := newOptions(opts)

	buf := buffer.NewReadBuffer(bytes.NewReader(data), o.size)
	r, err := c.PrepareRead(buf, len(data))
	if err != nil {
		return nil, err
	}

	for {
		v, done, err := r.Read()
		if err != nil {
			return nil, err
		}
		if done {
			return v, nil
		}

		o.logger.Trace().Str("codec", c.Name()).Int("length", len(data)).Msg("read suspended")

		err = ctx.Err()
		if err != nil {
			return nil, err
		}

		err = buf.Fill()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
}
