package testutil

import (
	"bytes"
	"testing"

	"github.com/chaisql/wirecodec/internal/buffer"
	"github.com/chaisql/wirecodec/internal/codec"
	"github.com/stretchr/testify/require"
)

type chunkRecorder struct {
	chunks [][]byte
}

func (r *chunkRecorder) Write(p []byte) (int, error) {
	r.chunks = append(r.chunks, bytes.Clone(p))
	return len(p), nil
}

// WriteChunks encodes v through a write buffer of the given size, flushing
// after every step, and returns what each flush sent.
func WriteChunks(t testing.TB, c codec.Codec, v any, size int) [][]byte {
	t.Helper()

	var rec chunkRecorder
	buf := buffer.NewWriteBuffer(&rec, size)

	var lc codec.LengthCache
	n, err := c.Length(v, &lc)
	NoError(t, err)

	w, err := c.PrepareWrite(buf, v, &lc)
	NoError(t, err)

	for steps := 0; ; steps++ {
		require.LessOrEqual(t, steps, n/size+2, "too many steps")

		done, err := w.Write()
		NoError(t, err)
		NoError(t, buf.Flush())
		if done {
			break
		}
	}

	require.Len(t, bytes.Join(rec.chunks, nil), n)
	return rec.chunks
}

// Encode returns the encoding of v produced in a single step.
func Encode(t testing.TB, c codec.Codec, v any) []byte {
	t.Helper()

	return bytes.Join(WriteChunks(t, c, v, buffer.DefaultSize), nil)
}

// Decode decodes data through a read buffer of the given size,
// refilling it each time the operation suspends.
func Decode(t testing.TB, c codec.Codec, data []byte, size int) any {
	t.Helper()

	buf := buffer.NewReadBuffer(bytes.NewReader(data), size)
	r, err := c.PrepareRead(buf, len(data))
	NoError(t, err)

	for steps := 0; ; steps++ {
		require.LessOrEqual(t, steps, len(data)/size+2, "too many steps")

		v, done, err := r.Read()
		NoError(t, err)
		if done {
			require.Zero(t, buf.ReadBytesLeft(), "unread bytes left in the buffer")
			return v
		}

		NoError(t, buf.Fill())
	}
}
