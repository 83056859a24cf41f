// Package config loads the command line configuration from a TOML file.
package config

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/chaisql/wirecodec/internal/buffer"
	"github.com/chaisql/wirecodec/internal/codec/text"
	"github.com/chaisql/wirecodec/internal/logging"
	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding"
)

// MaxBufferSize bounds the configurable transport buffer size.
const MaxBufferSize = 1 << 24

// Config holds the settings shared by the commands.
type Config struct {
	// BufferSize is the capacity of the transport buffers.
	BufferSize int
	// Encoding is the IANA name of the text encoding.
	Encoding string
	LogLevel string
	// DBPath is the location of the value store.
	DBPath string
}

type fileConfig struct {
	BufferSize int    `toml:"buffer_size"`
	Encoding   string `toml:"encoding"`
	LogLevel   string `toml:"log_level"`
	DBPath     string `toml:"db_path"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		BufferSize: buffer.DefaultSize,
		Encoding:   "utf-8",
		LogLevel:   "info",
		DBPath:     "wirecodec.db",
	}
}

// Load reads the file at path on top of the defaults.
// Keys absent from the file keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Newf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("buffer_size") {
		cfg.BufferSize = raw.BufferSize
	}

	if meta.IsDefined("encoding") {
		cfg.Encoding = strings.TrimSpace(raw.Encoding)
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("db_path") {
		cfg.DBPath = strings.TrimSpace(raw.DBPath)
	}

	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.BufferSize <= 0 || c.BufferSize > MaxBufferSize {
		return errors.Newf("buffer_size must be between 1 and %d, got %d", MaxBufferSize, c.BufferSize)
	}

	_, err := c.TextEncoding()
	if err != nil {
		return err
	}

	_, err = logging.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}

	if c.DBPath == "" {
		return errors.New("db_path cannot be empty")
	}

	return nil
}

// TextEncoding returns the configured text encoding, nil for UTF-8.
func (c Config) TextEncoding() (encoding.Encoding, error) {
	return text.LookupEncoding(c.Encoding)
}
