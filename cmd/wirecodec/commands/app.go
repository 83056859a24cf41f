package commands

import (
	"github.com/chaisql/wirecodec/internal/config"
	"github.com/chaisql/wirecodec/internal/logging"
	"github.com/chaisql/wirecodec/internal/registry"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

const settingsKey = "settings"

// NewApp creates the wirecodec CLI app.
func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = "wirecodec"
	app.Usage = "Encode, decode and store values in the PostgreSQL binary formats"
	app.EnableBashCompletion = true
	app.Metadata = make(map[string]interface{})

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "path of a TOML configuration file",
			EnvVars: []string{"WIRECODEC_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "trace, debug, info, warn, error or off",
			EnvVars: []string{"WIRECODEC_LOG_LEVEL"},
		},
		&cli.IntFlag{
			Name:    "buffer-size",
			Usage:   "capacity in bytes of the transport buffers",
			EnvVars: []string{"WIRECODEC_BUFFER_SIZE"},
		},
		&cli.StringFlag{
			Name:    "encoding",
			Usage:   "IANA name of the text encoding",
			EnvVars: []string{"WIRECODEC_ENCODING"},
		},
	}

	app.Commands = []*cli.Command{
		NewEncodeCommand(),
		NewDecodeCommand(),
		NewRoundtripCommand(),
		NewStoreCommand(),
		NewTypesCommand(),
		NewVersionCommand(),
	}

	app.Before = func(c *cli.Context) error {
		s, err := loadSettings(c)
		if err != nil {
			return err
		}

		c.App.Metadata[settingsKey] = s
		return nil
	}

	return app
}

// settings are resolved once per run from the configuration file,
// then the global flags and environment variables.
type settings struct {
	cfg    config.Config
	logger zerolog.Logger
	reg    *registry.Registry
}

func loadSettings(c *cli.Context) (*settings, error) {
	cfg := config.Default()

	if c.IsSet("config") {
		var err error
		cfg, err = config.Load(c.String("config"))
		if err != nil {
			return nil, err
		}
	}

	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("buffer-size") {
		cfg.BufferSize = c.Int("buffer-size")
	}
	if c.IsSet("encoding") {
		cfg.Encoding = c.String("encoding")
	}

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	enc, err := cfg.TextEncoding()
	if err != nil {
		return nil, err
	}

	return &settings{
		cfg:    cfg,
		logger: logging.New(c.App.ErrWriter, level),
		reg:    registry.Default(registry.Options{Encoding: enc}),
	}, nil
}

func getSettings(c *cli.Context) (*settings, error) {
	s, ok := c.App.Metadata[settingsKey].(*settings)
	if !ok {
		return nil, errors.AssertionFailedf("settings not loaded")
	}

	return s, nil
}

// lookupType returns the codec selected by the --type flag.
func lookupType(c *cli.Context, s *settings) (registry.Entry, error) {
	name := c.String("type")
	if name == "" {
		return registry.Entry{}, errors.New("missing --type")
	}

	return s.reg.LookupName(name)
}

func newTypeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "type",
		Aliases: []string{"t"},
		Usage:   "name of the value type, see the types command",
		Value:   "jsonb",
	}
}
