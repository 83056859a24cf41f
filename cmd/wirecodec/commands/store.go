package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chaisql/wirecodec/internal/kv"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"
)

// NewStoreCommand returns a cli.Command for "wirecodec store".
func NewStoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Manage values persisted in a Pebble database",
		Description: `Values are stored in their binary encoding, along with the OID of their type.

$ wirecodec store put --type jsonb doc '{"a": 1}'
$ wirecodec store get doc
{"a": 1}`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "path of the database, defaults to db_path from the configuration",
				EnvVars: []string{"WIRECODEC_DB"},
			},
		},
		Subcommands: []*cli.Command{
			{
				Name:      "put",
				Usage:     "Store a value",
				UsageText: `wirecodec store put [options] KEY VALUE`,
				Flags:     []cli.Flag{newTypeFlag()},
				Action: withValues(2, func(c *cli.Context, s *settings, values *kv.Values) error {
					e, err := lookupType(c, s)
					if err != nil {
						return err
					}

					return values.Put(c.Context, c.Args().Get(0), e.Name, c.Args().Get(1))
				}),
			},
			{
				Name:      "get",
				Usage:     "Print a stored value",
				UsageText: `wirecodec store get KEY`,
				Action: withValues(1, func(c *cli.Context, s *settings, values *kv.Values) error {
					_, v, err := values.Get(c.Context, c.Args().First())
					if err != nil {
						return err
					}

					_, err = fmt.Fprintln(c.App.Writer, formatValue(v))
					return err
				}),
			},
			{
				Name:      "text",
				Usage:     "Stream the text of a stored value",
				UsageText: `wirecodec store text KEY`,
				Action: withValues(1, func(c *cli.Context, s *settings, values *kv.Values) error {
					_, r, err := values.OpenText(c.Args().First())
					if err != nil {
						return err
					}

					_, err = io.Copy(c.App.Writer, r)
					if err != nil {
						return err
					}

					_, err = fmt.Fprintln(c.App.Writer)
					return err
				}),
			},
			{
				Name:      "del",
				Usage:     "Delete a stored value",
				UsageText: `wirecodec store del KEY`,
				Action: withValues(1, func(c *cli.Context, s *settings, values *kv.Values) error {
					return values.Delete(c.Args().First())
				}),
			},
			{
				Name:      "list",
				Usage:     "List the stored values",
				UsageText: `wirecodec store list`,
				Action: withValues(0, func(c *cli.Context, s *settings, values *kv.Values) error {
					items, err := values.List(c.Context)
					if err != nil {
						return err
					}

					w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "KEY\tTYPE\tOID\tSIZE")
					for _, it := range items {
						typ := it.Type
						if typ == "" {
							typ = "?"
						}
						fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", it.Key, typ, it.OID, it.Size)
					}

					return w.Flush()
				}),
			},
		},
	}
}

// withValues opens the value store for the duration of fn.
func withValues(nargs int, fn func(c *cli.Context, s *settings, values *kv.Values) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() != nargs {
			return errors.Newf("expected %d arguments, got %d", nargs, c.NArg())
		}

		s, err := getSettings(c)
		if err != nil {
			return err
		}

		path := s.cfg.DBPath
		if c.IsSet("db") {
			path = c.String("db")
		}

		values, err := kv.Open(path, kv.Options{
			Registry:   s.reg,
			BufferSize: s.cfg.BufferSize,
			Logger:     &s.logger,
		})
		if err != nil {
			return err
		}
		defer values.Close()

		s.logger.Debug().Str("path", path).Msg("value store opened")
		return fn(c, s, values)
	}
}
