package commands

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/chaisql/wirecodec/internal/wire"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

// NewEncodeCommand returns a cli.Command for "wirecodec encode".
func NewEncodeCommand() *cli.Command {
	cmd := cli.Command{
		Name:      "encode",
		Usage:     "Print the binary encoding of a value as hexadecimal",
		UsageText: `wirecodec encode [options] VALUE`,
		Description: `The encode command prints the payload of a value:

$ wirecodec encode --type jsonb '{"a": 1}'
017b2261223a20317d

If VALUE is "-", the value is read from the standard input.
With --frame, the payload is preceded by its length, as sent on a connection.`,
		Flags: []cli.Flag{
			newTypeFlag(),
			&cli.BoolFlag{
				Name:  "frame",
				Usage: "prefix the payload with its int32 length",
			},
		},
	}

	cmd.Action = func(c *cli.Context) error {
		s, err := getSettings(c)
		if err != nil {
			return err
		}

		e, err := lookupType(c, s)
		if err != nil {
			return err
		}

		v, err := readValue(c)
		if err != nil {
			return err
		}

		opts := []wire.Option{wire.WithBufferSize(s.cfg.BufferSize), wire.WithLogger(s.logger)}

		var data []byte
		if c.Bool("frame") {
			var buf bytes.Buffer
			enc := wire.NewEncoder(&buf, opts...)
			err = enc.Encode(c.Context, e.Codec, v)
			if err == nil {
				err = enc.Flush()
			}
			data = buf.Bytes()
		} else {
			data, err = wire.AppendPayload(c.Context, nil, e.Codec, v, opts...)
		}
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(c.App.Writer, hex.EncodeToString(data))
		return err
	}

	return &cmd
}

// NewDecodeCommand returns a cli.Command for "wirecodec decode".
func NewDecodeCommand() *cli.Command {
	cmd := cli.Command{
		Name:      "decode",
		Usage:     "Decode a hexadecimal payload",
		UsageText: `wirecodec decode [options] HEX`,
		Description: `The decode command prints the value held by a payload:

$ wirecodec decode --type jsonb 017b7d
{}

With --frame, HEX holds a sequence of length-prefixed values, each printed on its own line.`,
		Flags: []cli.Flag{
			newTypeFlag(),
			&cli.BoolFlag{
				Name:  "frame",
				Usage: "read int32 length-prefixed payloads",
			},
		},
	}

	cmd.Action = func(c *cli.Context) error {
		s, err := getSettings(c)
		if err != nil {
			return err
		}

		e, err := lookupType(c, s)
		if err != nil {
			return err
		}

		raw, err := readValue(c)
		if err != nil {
			return err
		}

		data, err := hex.DecodeString(strings.TrimSpace(raw))
		if err != nil {
			return errors.Wrap(err, "invalid hexadecimal input")
		}

		opts := []wire.Option{wire.WithBufferSize(s.cfg.BufferSize), wire.WithLogger(s.logger)}

		if !c.Bool("frame") {
			v, err := wire.DecodePayload(c.Context, e.Codec, data, opts...)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(c.App.Writer, formatValue(v))
			return err
		}

		dec := wire.NewDecoder(bytes.NewReader(data), opts...)
		for {
			v, err := dec.Decode(c.Context, e.Codec)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(c.App.Writer, formatValue(v))
			if err != nil {
				return err
			}
		}
	}

	return &cmd
}

// NewRoundtripCommand returns a cli.Command for "wirecodec roundtrip".
func NewRoundtripCommand() *cli.Command {
	cmd := cli.Command{
		Name:      "roundtrip",
		Usage:     "Send values through an in-memory connection and print what is received",
		UsageText: `wirecodec roundtrip [options] VALUE...`,
		Description: `The roundtrip command encodes each VALUE on one end of a synchronous
in-memory connection and decodes it on the other end. Both ends use buffers
of --buffer-size bytes, so large values are sent in several chunks.`,
		Flags: []cli.Flag{
			newTypeFlag(),
			&cli.IntFlag{
				Name:  "buffer-size",
				Usage: "capacity in bytes of the transport buffers",
			},
		},
	}

	cmd.Action = func(c *cli.Context) error {
		s, err := getSettings(c)
		if err != nil {
			return err
		}

		e, err := lookupType(c, s)
		if err != nil {
			return err
		}

		if c.NArg() == 0 {
			return errors.New(cmd.UsageText)
		}

		size := s.cfg.BufferSize
		if c.IsSet("buffer-size") {
			size = c.Int("buffer-size")
		}
		opts := []wire.Option{wire.WithBufferSize(size), wire.WithLogger(s.logger)}

		client, server := net.Pipe()
		defer server.Close()

		g, ctx := errgroup.WithContext(c.Context)
		g.Go(func() error {
			defer client.Close()

			enc := wire.NewEncoder(client, opts...)
			for _, v := range c.Args().Slice() {
				err := enc.Encode(ctx, e.Codec, v)
				if err != nil {
					return err
				}
			}

			return enc.Flush()
		})

		g.Go(func() error {
			// unblocks the writer if decoding stops early
			defer server.Close()

			dec := wire.NewDecoder(server, opts...)
			for {
				v, err := dec.Decode(ctx, e.Codec)
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(c.App.Writer, formatValue(v))
				if err != nil {
					return err
				}
			}
		})

		return g.Wait()
	}

	return &cmd
}

func readValue(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", errors.Newf("expected exactly one argument, got %d", c.NArg())
	}

	arg := c.Args().First()
	if arg != "-" {
		return arg, nil
	}

	b, err := io.ReadAll(c.App.Reader)
	if err != nil {
		return "", errors.Wrap(err, "read standard input")
	}

	return string(b), nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return `\x` + hex.EncodeToString(t)
	case string:
		return t
	}

	return fmt.Sprint(v)
}
