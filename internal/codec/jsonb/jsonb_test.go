package jsonb_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/chaisql/wirecodec/internal/buffer"
	"github.com/chaisql/wirecodec/internal/codec"
	"github.com/chaisql/wirecodec/internal/codec/jsonb"
	"github.com/chaisql/wirecodec/internal/codec/text"
	"github.com/chaisql/wirecodec/internal/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestValidate(t *testing.T) {
	valid := []string{
		`{}`,
		`[]`,
		`null`,
		`true`,
		`42`,
		`-1.5e10`,
		`"string"`,
		`  {"a": 1}  `,
		`{"a": [1, 2.5, -3e2, {"b": null, "c": true}], "d": "x"}`,
		`[[[]], {"a": {"b": {}}}]`,
	}

	for _, s := range valid {
		t.Run(s, func(t *testing.T) {
			require.NoError(t, jsonb.Validate([]byte(s)))
		})
	}

	invalid := []string{
		``,
		`   `,
		`{`,
		`[1, 2`,
		`not json`,
		`{"a": }`,
		`{"a": tru}`,
		`{"a": 1} trailing`,
		`[1, nul]`,
		`{"a": [1, 2, x]}`,
	}

	for _, s := range invalid {
		t.Run(s, func(t *testing.T) {
			require.Error(t, jsonb.Validate([]byte(s)))
		})
	}
}

func TestJSONB(t *testing.T) {
	c := jsonb.New()
	require.Equal(t, "jsonb", c.Name())
	require.Equal(t, jsonb.Version, c.Version())

	v := `{"a": [1, 2, 3]}`
	enc := testutil.Encode(t, c, v)
	require.Equal(t, append([]byte{0x01}, v...), enc)

	for _, size := range []int{1, 4, buffer.DefaultSize} {
		require.Equal(t, v, testutil.Decode(t, c, enc, size))
	}

	r, err := c.TextReader(bytes.NewReader(enc))
	require.NoError(t, err)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, v, string(b))
}

func TestJSONBInvalidValue(t *testing.T) {
	c := jsonb.New()

	var lc codec.LengthCache
	_, err := c.Length(`{"a": }`, &lc)
	require.True(t, codec.IsInvalidValue(err))
	require.Contains(t, err.Error(), "jsonb")
	require.False(t, lc.IsPopulated())

	_, err = c.Length(12, &lc)
	require.True(t, codec.IsInvalidValue(err))

	// values written without a length computation are validated too
	buf := buffer.NewWriteBuffer(io.Discard, 16)
	_, err = c.PrepareWrite(buf, `[1, 2`, nil)
	require.True(t, codec.IsInvalidValue(err))
	require.Zero(t, buf.Buffered())

	// a cache filled by another value of the same length does not skip validation
	lc.Reset()
	n, err := c.Length(`[1]`, &lc)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	_, err = c.PrepareWrite(buf, `[1,`, &lc)
	require.True(t, codec.IsInvalidValue(err))
	require.Zero(t, buf.Buffered())
}

func TestJSON(t *testing.T) {
	c := jsonb.NewJSON()
	require.Equal(t, "json", c.Name())

	enc := testutil.Encode(t, c, []byte(`[true]`))
	require.Equal(t, []byte(`[true]`), enc)
	require.Equal(t, `[true]`, testutil.Decode(t, c, enc, 2))

	_, err := c.Length("nope", nil)
	require.True(t, codec.IsInvalidValue(err))
}

func TestJSONPath(t *testing.T) {
	c := jsonb.NewPath()
	require.Equal(t, "jsonpath", c.Name())

	// jsonpath expressions are not JSON documents
	v := `$.a[*] ? (@ > 2)`
	enc := testutil.Encode(t, c, v)
	require.Equal(t, byte(jsonb.PathVersion), enc[0])
	require.Equal(t, v, testutil.Decode(t, c, enc, 3))

	_, err := c.TextReader(strings.NewReader("\x02$"))
	require.True(t, codec.IsProtocolViolation(err))
}

func TestEncoding(t *testing.T) {
	c := jsonb.New(text.WithEncoding(charmap.ISO8859_1))

	enc := testutil.Encode(t, c, `"é"`)
	require.Equal(t, []byte{0x01, '"', 0xe9, '"'}, enc)
	require.Equal(t, `"é"`, testutil.Decode(t, c, enc, 1))
}
