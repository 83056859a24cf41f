package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/chaisql/wirecodec/internal/codec/versioned"
	"github.com/urfave/cli/v2"
)

// NewTypesCommand returns a cli.Command for "wirecodec types".
func NewTypesCommand() *cli.Command {
	return &cli.Command{
		Name:  "types",
		Usage: "List the supported types",
		Action: func(c *cli.Context) error {
			s, err := getSettings(c)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "OID\tNAME\tVERSION")
			for _, e := range s.reg.Entries() {
				version := "-"
				if vc, ok := e.Codec.(*versioned.Codec); ok {
					version = fmt.Sprint(vc.Version())
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", e.OID, e.Name, version)
			}

			return w.Flush()
		},
	}
}
