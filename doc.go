/*
Package wirecodec encodes and decodes values in the binary formats of the
PostgreSQL wire protocol.

Codecs are chunked: a value is written to, or read from, a size-bounded
transport buffer in as many steps as the buffer requires, so that arbitrarily
large values never have to be held by the transport at once. The jsonb and
jsonpath codecs prefix the text representation of a value with a one byte
format version, and refuse payloads carrying any other version.

The functions of this package run whole operations over in-memory data:

	data, err := wirecodec.Marshal("jsonb", `{"a": 1}`)
	// data is "\x01{\"a\": 1}"

	v, err := wirecodec.Unmarshal("jsonb", data)
	// v is the string `{"a": 1}`

Errors caused by malformed input are reported by IsInvalidValue. Errors
caused by malformed payloads are reported by IsProtocolViolation; a
connection that produced one cannot be trusted anymore.
*/
package wirecodec
