package wire_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/chaisql/wirecodec/internal/codec"
	"github.com/chaisql/wirecodec/internal/codec/jsonb"
	"github.com/chaisql/wirecodec/internal/codec/text"
	"github.com/chaisql/wirecodec/internal/testutil"
	"github.com/chaisql/wirecodec/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestPayload(t *testing.T) {
	ctx := context.Background()
	c := jsonb.New()
	v := `{"key": "value", "list": [1, 2, 3]}`

	for _, size := range []int{4, 7, 64} {
		t.Run(fmt.Sprintf("size %d", size), func(t *testing.T) {
			data, err := wire.AppendPayload(ctx, []byte("prefix"), c, v, wire.WithBufferSize(size))
			testutil.NoError(t, err)
			require.Equal(t, "prefix\x01"+v, string(data))

			got, err := wire.DecodePayload(ctx, c, data[len("prefix"):], wire.WithBufferSize(size))
			testutil.NoError(t, err)
			require.Equal(t, v, got)
		})
	}
}

func TestPayloadErrors(t *testing.T) {
	ctx := context.Background()

	dst := []byte("keep")
	data, err := wire.AppendPayload(ctx, dst, text.New(), 1.5)
	require.True(t, codec.IsInvalidValue(err))
	require.Equal(t, "keep", string(data))

	_, err = wire.DecodePayload(ctx, jsonb.New(), []byte{0x03, '1'})
	require.True(t, codec.IsProtocolViolation(err))

	_, err = wire.DecodePayload(ctx, jsonb.New(), nil)
	require.True(t, codec.IsProtocolViolation(err))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = wire.AppendPayload(canceled, nil, text.New(), "a long enough value", wire.WithBufferSize(4))
	testutil.ErrorIs(t, err, context.Canceled)
}
