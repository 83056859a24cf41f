package codec

import "golang.org/x/exp/slices"

// InitialPayloadCap bounds the memory reserved for a payload before any of
// its bytes are read.
const InitialPayloadCap = 4096

// NewPayload returns an empty slice meant to receive a payload of n bytes.
func NewPayload(n int) []byte {
	return make([]byte, 0, min(n, InitialPayloadCap))
}

// ReadPayload appends the bytes available in buf to p, never growing p past n bytes.
func ReadPayload(buf ReadBuffer, p []byte, n int) []byte {
	want := min(n-len(p), buf.ReadBytesLeft())
	if want <= 0 {
		return p
	}

	p = slices.Grow(p, want)
	got := buf.ReadSome(p[len(p) : len(p)+want])
	return p[:len(p)+got]
}
