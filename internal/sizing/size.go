// Package sizing holds overflow-checked arithmetic for offsets and lengths
// read out of untrusted container metadata.
package sizing

import (
	"io"
	"math"
)

// ToInt converts n to int, returning overflowErr if it does not fit.
func ToInt(n uint64, overflowErr error) (int, error) {
	if n > uint64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(n), nil
}

// ToInt64 converts n to int64, returning overflowErr if it does not fit.
func ToInt64(n uint64, overflowErr error) (int64, error) {
	if n > uint64(math.MaxInt64) {
		return 0, overflowErr
	}
	return int64(n), nil
}

// AddUint64 returns a+b and false if the sum wraps.
func AddUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// Within reports whether [off, off+n) lies inside a region of the given size.
func Within(off, n uint64, size int64) bool {
	if size < 0 {
		return false
	}
	end, ok := AddUint64(off, n)
	return ok && end <= uint64(size)
}

// ReadAllWithLimit reads r to EOF but fails with overflowErr once more than
// limit bytes have been produced.
func ReadAllWithLimit(r io.Reader, limit uint64, overflowErr error) ([]byte, error) {
	if limit > uint64(math.MaxInt-1) {
		return nil, overflowErr
	}
	lr := &io.LimitedReader{R: r, N: int64(limit) + 1} //nolint:gosec // checked above
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > limit {
		return nil, overflowErr
	}
	return data, nil
}
