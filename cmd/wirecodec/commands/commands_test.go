package commands_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chaisql/wirecodec/cmd/wirecodec/commands"
	"github.com/chaisql/wirecodec/internal/codec"
	"github.com/chaisql/wirecodec/internal/kv"
	"github.com/chaisql/wirecodec/internal/testutil"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	app := commands.NewApp()

	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader(stdin)

	err := app.Run(append([]string{"wirecodec"}, args...))
	return out.String(), err
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"jsonb", []string{"encode", "--type", "jsonb", `{"a":1}`}, "017b2261223a317d\n"},
		{"default type", []string{"encode", `[]`}, "015b5d\n"},
		{"framed", []string{"encode", "--frame", "-t", "text", "a"}, "0000000161\n"},
		{"bytea", []string{"encode", "-t", "bytea", "ab"}, "6162\n"},
		{"encoding", []string{"--encoding", "ISO-8859-1", "encode", "-t", "text", "é"}, "e9\n"},
		{"small buffer", []string{"--buffer-size", "1", "encode", "-t", "jsonpath", "$.a"}, "01242e61\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out, err := run(t, "", test.args...)
			testutil.NoError(t, err)
			require.Equal(t, test.want, out)
		})
	}

	t.Run("stdin", func(t *testing.T) {
		out, err := run(t, `{"b":2}`, "encode", "-")
		testutil.NoError(t, err)
		require.Equal(t, "017b2262223a327d\n", out)
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := run(t, "", "encode", "-t", "jsonb", `{"b":`)
		require.True(t, codec.IsInvalidValue(err))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := run(t, "", "encode", "-t", "hstore", `a=>1`)
		require.Error(t, err)
	})
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"jsonb", []string{"decode", "-t", "jsonb", "017b7d"}, "{}\n"},
		{"bytea", []string{"decode", "-t", "bytea", "dead"}, `\xdead` + "\n"},
		{"framed", []string{"decode", "--frame", "-t", "text", "0000000161ffffffff0000000162"}, "a\nNULL\nb\n"},
		{"encoding", []string{"--encoding", "ISO-8859-1", "decode", "-t", "text", "e9"}, "é\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out, err := run(t, "", test.args...)
			testutil.NoError(t, err)
			require.Equal(t, test.want, out)
		})
	}

	t.Run("version mismatch", func(t *testing.T) {
		_, err := run(t, "", "decode", "-t", "jsonb", "027b7d")
		require.True(t, codec.IsProtocolViolation(err))
	})

	t.Run("invalid hex", func(t *testing.T) {
		_, err := run(t, "", "decode", "-t", "jsonb", "zz")
		require.Error(t, err)
	})
}

func TestRoundtrip(t *testing.T) {
	out, err := run(t, "", "roundtrip", "--type", "jsonb", "--buffer-size", "4", `{"a": [1, 2, 3]}`, `[]`, `"x"`)
	testutil.NoError(t, err)
	require.Equal(t, "{\"a\": [1, 2, 3]}\n[]\n\"x\"\n", out)

	out, err = run(t, "", "--buffer-size", "5", "roundtrip", "-t", "text", "hello world")
	testutil.NoError(t, err)
	require.Equal(t, "hello world\n", out)

	_, err = run(t, "", "roundtrip", "-t", "jsonb", `[1`)
	require.True(t, codec.IsInvalidValue(err))

	_, err = run(t, "", "roundtrip", "-t", "jsonb")
	require.Error(t, err)
}

func TestStore(t *testing.T) {
	db := filepath.Join(testutil.TempDir(t), "values")

	store := func(args ...string) (string, error) {
		return run(t, "", append([]string{"store", "--db", db}, args...)...)
	}

	_, err := store("put", "-t", "jsonb", "doc", `{"a": 1}`)
	testutil.NoError(t, err)
	_, err = store("put", "-t", "bytea", "raw", "ab")
	testutil.NoError(t, err)

	out, err := store("get", "doc")
	testutil.NoError(t, err)
	require.Equal(t, "{\"a\": 1}\n", out)

	out, err = store("get", "raw")
	testutil.NoError(t, err)
	require.Equal(t, "\\x6162\n", out)

	out, err = store("text", "doc")
	testutil.NoError(t, err)
	require.Equal(t, "{\"a\": 1}\n", out)

	_, err = store("text", "raw")
	testutil.ErrorIs(t, err, codec.ErrNotText)

	out, err = store("list")
	testutil.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, []string{"KEY", "TYPE", "OID", "SIZE"}, strings.Fields(lines[0]))
	require.Equal(t, []string{"doc", "jsonb", "3802", "9"}, strings.Fields(lines[1]))
	require.Equal(t, []string{"raw", "bytea", "17", "2"}, strings.Fields(lines[2]))

	_, err = store("del", "doc")
	testutil.NoError(t, err)

	_, err = store("get", "doc")
	testutil.ErrorIs(t, err, kv.ErrKeyNotFound)

	_, err = store("get")
	require.Error(t, err)
}

func TestTypes(t *testing.T) {
	out, err := run(t, "", "types")
	testutil.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	require.Equal(t, []string{"17", "bytea", "-"}, strings.Fields(lines[1]))
	require.Equal(t, []string{"3802", "jsonb", "1"}, strings.Fields(lines[4]))
}

func TestConfig(t *testing.T) {
	dir := testutil.TempDir(t)
	path := filepath.Join(dir, "wirecodec.toml")
	content := `
encoding = "ISO-8859-1"
buffer_size = 4
log_level = "off"
db_path = "` + filepath.Join(dir, "db") + `"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	out, err := run(t, "", "--config", path, "encode", "-t", "text", "é")
	testutil.NoError(t, err)
	require.Equal(t, "e9\n", out)

	// flags override the file
	out, err = run(t, "", "--config", path, "--encoding", "utf-8", "encode", "-t", "text", "é")
	testutil.NoError(t, err)
	require.Equal(t, "c3a9\n", out)

	// the store is opened at db_path
	_, err = run(t, "", "--config", path, "store", "put", "-t", "text", "k", "v")
	testutil.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "db"))
	require.NoError(t, err)

	_, err = run(t, "", "--config", filepath.Join(dir, "missing.toml"), "types")
	require.Error(t, err)

	_, err = run(t, "", "--log-level", "loud", "types")
	require.Error(t, err)

	_, err = run(t, "", "--buffer-size", "-1", "types")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	testutil.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "wirecodec"))
}
