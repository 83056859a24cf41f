// Package jsonb provides the codecs of the JSON family of types.
//
// jsonb and jsonpath values are sent as a version tag followed by their text
// representation. json values are sent as plain text.
package jsonb

import (
	"bytes"
	"strconv"

	"github.com/buger/jsonparser"
	"github.com/chaisql/wirecodec/internal/codec"
	"github.com/chaisql/wirecodec/internal/codec/text"
	"github.com/chaisql/wirecodec/internal/codec/versioned"
	"github.com/cockroachdb/errors"
)

const (
	// Version is the only jsonb binary format version.
	Version byte = 1
	// PathVersion is the only jsonpath binary format version.
	PathVersion byte = 1
)

const maxDepth = 1000

// New returns the jsonb codec. Values are validated before being written.
func New(opts ...text.Option) *versioned.Codec {
	return versioned.New("jsonb", Version, NewValidating(named("jsonb", opts)...))
}

// NewJSON returns the json codec: validated text without a version tag.
func NewJSON(opts ...text.Option) codec.Codec {
	return NewValidating(named("json", opts)...)
}

// NewPath returns the jsonpath codec.
func NewPath(opts ...text.Option) *versioned.Codec {
	return versioned.New("jsonpath", PathVersion, text.New(named("jsonpath", opts)...))
}

func named(name string, opts []text.Option) []text.Option {
	return append([]text.Option{text.WithName(name)}, opts...)
}

// ValidatingCodec is a text codec refusing to write malformed JSON.
type ValidatingCodec struct {
	*text.Codec
}

var (
	_ codec.Codec      = ValidatingCodec{}
	_ codec.TextViewer = ValidatingCodec{}
)

// NewValidating returns a validating text codec.
func NewValidating(opts ...text.Option) ValidatingCodec {
	return ValidatingCodec{Codec: text.New(opts...)}
}

func (c ValidatingCodec) Length(v any, lc *codec.LengthCache) (int, error) {
	if lc.IsPopulated() {
		return lc.Get(), nil
	}

	err := c.validate(v)
	if err != nil {
		return 0, err
	}

	return c.Codec.Length(v, lc)
}

func (c ValidatingCodec) PrepareWrite(buf codec.WriteBuffer, v any, lc *codec.LengthCache) (codec.Writer, error) {
	err := c.validate(v)
	if err != nil {
		return nil, err
	}

	return c.Codec.PrepareWrite(buf, v, lc)
}

func (c ValidatingCodec) validate(v any) error {
	var data []byte
	switch t := v.(type) {
	case string:
		data = []byte(t)
	case []byte:
		data = t
	case []rune:
		data = []byte(string(t))
	default:
		// reported by the text codec
		return nil
	}

	err := Validate(data)
	if err != nil {
		return codec.NewInvalidValueError(c.Name(), v, err)
	}

	return nil
}

// Validate reports whether data holds exactly one well-formed JSON value,
// optionally surrounded by white space.
func Validate(data []byte) error {
	value, dt, end, err := jsonparser.Get(data)
	if err != nil {
		return errors.Wrap(err, "malformed json")
	}

	if len(bytes.TrimSpace(data[end:])) > 0 {
		return errors.Newf("malformed json: unexpected data after offset %d", end)
	}

	return validateValue(value, dt, 0)
}

func validateValue(value []byte, dt jsonparser.ValueType, depth int) error {
	if depth > maxDepth {
		return errors.Newf("malformed json: nesting deeper than %d", maxDepth)
	}

	switch dt {
	case jsonparser.Object:
		err := jsonparser.ObjectEach(value, func(_ []byte, v []byte, t jsonparser.ValueType, _ int) error {
			return validateValue(v, t, depth+1)
		})
		return errors.Wrap(err, "malformed json object")
	case jsonparser.Array:
		var inner error
		_, err := jsonparser.ArrayEach(value, func(v []byte, t jsonparser.ValueType, _ int, err error) {
			if inner != nil {
				return
			}
			if err != nil {
				inner = err
				return
			}
			inner = validateValue(v, t, depth+1)
		})
		if err == nil {
			err = inner
		}
		return errors.Wrap(err, "malformed json array")
	case jsonparser.Number:
		_, err := strconv.ParseFloat(string(value), 64)
		if err != nil && errors.Is(err, strconv.ErrSyntax) {
			return errors.Newf("malformed json number %q", value)
		}
		return nil
	case jsonparser.String, jsonparser.Boolean, jsonparser.Null:
		return nil
	}

	return errors.Newf("malformed json: unexpected %s value", dt)
}
