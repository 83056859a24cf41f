package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chaisql/wirecodec/internal/config"
	"github.com/chaisql/wirecodec/internal/testutil"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(testutil.TempDir(t), "wirecodec.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
buffer_size = 16
encoding = "ISO-8859-1"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	want := config.Default()
	want.BufferSize = 16
	want.Encoding = "ISO-8859-1"
	require.Equal(t, want, cfg)

	enc, err := cfg.TextEncoding()
	require.NoError(t, err)
	require.NotNil(t, enc)
	b, err := enc.NewEncoder().String("é")
	require.NoError(t, err)
	require.Equal(t, "\xe9", b)
}

func TestLoadAll(t *testing.T) {
	path := writeConfig(t, `
buffer_size = 4
encoding = "utf8"
log_level = "debug"
db_path = "/tmp/values"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, config.Config{
		BufferSize: 4,
		Encoding:   "utf8",
		LogLevel:   "debug",
		DBPath:     "/tmp/values",
	}, cfg)

	enc, err := cfg.TextEncoding()
	require.NoError(t, err)
	require.Nil(t, enc)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `buffer_size = `},
		{"unknown key", `buffer = 12`},
		{"buffer size", `buffer_size = 0`},
		{"encoding", `encoding = "klingon"`},
		{"log level", `log_level = "loud"`},
		{"db path", `db_path = " "`},
		{"type", `buffer_size = "big"`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, test.content))
			require.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(testutil.TempDir(t), "missing.toml"))
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}
