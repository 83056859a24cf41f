package codec

// LengthCache memoizes the encoded length of one pending write.
// Callers may ask for the length of a value several times before deciding
// how to batch it; the first computation is kept until Reset is called.
//
// The zero value is an empty cache.
type LengthCache struct {
	n         int
	populated bool
}

// IsPopulated reports whether a length has been stored.
func (lc *LengthCache) IsPopulated() bool {
	return lc != nil && lc.populated
}

// Get returns the cached length. It panics if the cache is empty.
func (lc *LengthCache) Get() int {
	if !lc.IsPopulated() {
		panic("length cache is empty")
	}

	return lc.n
}

// Set stores n and returns it. Set on a nil cache is a no-op.
func (lc *LengthCache) Set(n int) int {
	if lc == nil {
		return n
	}

	lc.n = n
	lc.populated = true
	return n
}

// Reset empties the cache so it can be used for another value.
func (lc *LengthCache) Reset() {
	if lc == nil {
		return
	}

	*lc = LengthCache{}
}
