package kv_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/chaisql/wirecodec/internal/codec"
	"github.com/chaisql/wirecodec/internal/codec/text"
	"github.com/chaisql/wirecodec/internal/kv"
	"github.com/chaisql/wirecodec/internal/registry"
	"github.com/chaisql/wirecodec/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func openValues(t testing.TB, opts kv.Options) *kv.Values {
	t.Helper()

	opts.InMemory = true
	s, err := kv.Open("", opts)
	testutil.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestValues(t *testing.T) {
	ctx := context.Background()
	s := openValues(t, kv.Options{BufferSize: 4})

	tests := []struct {
		key, typ string
		in, want any
	}{
		{"doc", "jsonb", `{"a": [1, 2, 3]}`, `{"a": [1, 2, 3]}`},
		{"name", "text", []byte("hello world"), "hello world"},
		{"raw", "bytea", []byte{0, 1, 2}, []byte{0, 1, 2}},
		{"path", "jsonpath", "$.a[0]", "$.a[0]"},
		{"plain", "json", `[null]`, `[null]`},
	}

	for _, test := range tests {
		t.Run(test.key, func(t *testing.T) {
			testutil.NoError(t, s.Put(ctx, test.key, test.typ, test.in))

			e, v, err := s.Get(ctx, test.key)
			testutil.NoError(t, err)
			require.Equal(t, test.typ, e.Name)
			require.Equal(t, test.want, v)
		})
	}

	items, err := s.List(ctx)
	require.NoError(t, err)
	want := []kv.Item{
		{Key: "doc", OID: registry.JSONBOID, Type: "jsonb", Size: 17},
		{Key: "name", OID: registry.TextOID, Type: "text", Size: 11},
		{Key: "path", OID: registry.JSONPathOID, Type: "jsonpath", Size: 7},
		{Key: "plain", OID: registry.JSONOID, Type: "json", Size: 6},
		{Key: "raw", OID: registry.ByteaOID, Type: "bytea", Size: 3},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Fatalf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestValuesErrors(t *testing.T) {
	ctx := context.Background()
	s := openValues(t, kv.Options{})

	err := s.Put(ctx, "k", "jsonb", `{"a":`)
	require.True(t, codec.IsInvalidValue(err))

	err = s.Put(ctx, "k", "hstore", "a=>1")
	require.True(t, registry.IsNotFoundError(err))

	require.Error(t, s.Put(ctx, "k", "text", nil))
	require.Error(t, s.Put(ctx, "", "text", "a"))

	_, _, err = s.Get(ctx, "k")
	testutil.ErrorIs(t, err, kv.ErrKeyNotFound)

	testutil.ErrorIs(t, s.Delete("k"), kv.ErrKeyNotFound)

	require.NoError(t, s.Put(ctx, "k", "text", "a"))
	require.NoError(t, s.Delete("k"))
	_, _, err = s.Get(ctx, "k")
	testutil.ErrorIs(t, err, kv.ErrKeyNotFound)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestOpenText(t *testing.T) {
	ctx := context.Background()
	s := openValues(t, kv.Options{})

	require.NoError(t, s.Put(ctx, "doc", "jsonb", `{"b": true}`))
	require.NoError(t, s.Put(ctx, "name", "text", "plain"))
	require.NoError(t, s.Put(ctx, "raw", "bytea", []byte{1}))

	e, r, err := s.OpenText("doc")
	require.NoError(t, err)
	require.Equal(t, "jsonb", e.Name)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, `{"b": true}`, string(b))

	_, r, err = s.OpenText("name")
	require.NoError(t, err)
	b, err = io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "plain", string(b))

	_, _, err = s.OpenText("raw")
	testutil.ErrorIs(t, err, codec.ErrNotText)

	_, _, err = s.OpenText("missing")
	testutil.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func TestUnknownOID(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(testutil.TempDir(t), "values")

	reg := registry.New()
	require.NoError(t, reg.Register(registry.Entry{OID: 1043, Name: "varchar", Codec: text.New(text.WithName("varchar"))}))

	s, err := kv.Open(path, kv.Options{Registry: reg})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "k", "varchar", "v"))
	require.NoError(t, s.Close())

	// reopened with the built-in types only
	s, err = kv.Open(path, kv.Options{})
	require.NoError(t, err)
	defer s.Close()

	_, _, err = s.Get(ctx, "k")
	require.True(t, registry.IsNotFoundError(err))

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []kv.Item{{Key: "k", OID: 1043, Size: 1}}, items)
}

func TestEncoding(t *testing.T) {
	ctx := context.Background()
	reg := registry.Default(registry.Options{Encoding: charmap.ISO8859_1})
	s := openValues(t, kv.Options{Registry: reg})

	require.NoError(t, s.Put(ctx, "k", "text", "déjà"))

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, items[0].Size)

	_, v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "déjà", v)
}
