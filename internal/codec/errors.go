package codec

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrProtocolViolation is matched by every ProtocolViolationError.
	// It means the byte alignment of the channel is lost: the caller must
	// stop using the connection the value was read from.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrInvalidValue is matched by every InvalidValueError.
	ErrInvalidValue = errors.New("invalid value")

	// ErrOperationDone is returned when a step is called on an operation
	// that already completed or failed.
	ErrOperationDone = errors.New("operation already done")

	// ErrNotText is returned when a text view is requested from a codec
	// whose payload is not text.
	ErrNotText = errors.New("payload is not text")
)

// ProtocolViolationError is returned when the bytes on the wire cannot be
// interpreted by the codec, most commonly because of an unexpected version tag.
type ProtocolViolationError struct {
	Codec string
	// Expected and Got are only meaningful for tag mismatches.
	Expected byte
	Got      byte
	Reason   string
	Err      error
}

func (e *ProtocolViolationError) Error() string {
	var msg string
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: protocol violation: %s", e.Codec, e.Reason)
	} else {
		msg = fmt.Sprintf("%s: protocol violation: unsupported version tag %d, expected %d", e.Codec, e.Got, e.Expected)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ProtocolViolationError) Is(target error) bool {
	return target == ErrProtocolViolation
}

func (e *ProtocolViolationError) Unwrap() error {
	return e.Err
}

// NewTagMismatchError returns a ProtocolViolationError for an unexpected version tag.
func NewTagMismatchError(codec string, expected, got byte) error {
	return errors.WithStack(&ProtocolViolationError{
		Codec:    codec,
		Expected: expected,
		Got:      got,
	})
}

// NewProtocolViolationError returns a ProtocolViolationError described by reason.
func NewProtocolViolationError(codec, reason string, cause error) error {
	return errors.WithStack(&ProtocolViolationError{
		Codec:  codec,
		Reason: reason,
		Err:    cause,
	})
}

// IsProtocolViolation reports whether err, or one of its causes, is a protocol violation.
func IsProtocolViolation(err error) bool {
	return errors.Is(err, ErrProtocolViolation)
}

// InvalidValueError is returned when a value cannot be encoded by a codec,
// either because of its Go type or because of its content.
// It is always raised before any byte is written.
type InvalidValueError struct {
	Codec string
	Value any
	Err   error
}

func (e *InvalidValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: invalid value: %v", e.Codec, e.Err)
	}

	return fmt.Sprintf("%s: cannot encode value of type %T", e.Codec, e.Value)
}

func (e *InvalidValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

func (e *InvalidValueError) Unwrap() error {
	return e.Err
}

// NewInvalidTypeError returns an InvalidValueError for a value of the wrong Go type.
func NewInvalidTypeError(codec string, v any) error {
	return errors.WithStack(&InvalidValueError{Codec: codec, Value: v})
}

// NewInvalidValueError returns an InvalidValueError caused by err.
func NewInvalidValueError(codec string, v any, err error) error {
	return errors.WithStack(&InvalidValueError{Codec: codec, Value: v, Err: err})
}

// IsInvalidValue reports whether err, or one of its causes, is an InvalidValueError.
func IsInvalidValue(err error) bool {
	return errors.Is(err, ErrInvalidValue)
}
