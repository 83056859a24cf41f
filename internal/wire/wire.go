// Package wire frames codec payloads on a byte stream.
//
// Each value is sent as a big-endian int32 length followed by the codec
// payload. A length of -1 denotes NULL.
package wire

import (
	"github.com/chaisql/wirecodec/internal/buffer"
	"github.com/rs/zerolog"
)

// NullLength is the frame length of a NULL value.
const NullLength = -1

const headerSize = 4

type options struct {
	size   int
	logger zerolog.Logger
}

// An Option configures an Encoder or a Decoder.
type Option func(*options)

// WithBufferSize sets the capacity of the transport buffer.
// It is raised to the frame header size if smaller.
func WithBufferSize(size int) Option {
	return func(o *options) {
		o.size = size
	}
}

// WithLogger sets the logger. Nothing is logged by default.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) options {
	o := options{
		size:   buffer.DefaultSize,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.size <= 0 {
		o.size = buffer.DefaultSize
	}
	if o.size < headerSize {
		o.size = headerSize
	}

	return o
}
