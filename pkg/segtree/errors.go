package segtree

import (
	"errors"
	"fmt"
	"math/bits"
)

var (
	// ErrInvalidRange is returned for indices or ranges outside the tree.
	ErrInvalidRange = errors.New("segtree: invalid range")
	// ErrNotBuilt is returned by every operation issued before Build.
	ErrNotBuilt = errors.New("segtree: tree not built")
	// ErrSizeMismatch is returned by Build when the input length differs from the tree size.
	ErrSizeMismatch = errors.New("segtree: size mismatch")
	// ErrBatchOpen is returned by aggregate reads while a batch update is open.
	ErrBatchOpen = errors.New("segtree: batch update in progress")
	// ErrNoBatch is returned by EndBatch without a matching BeginBatch.
	ErrNoBatch = errors.New("segtree: no batch update in progress")
)

// RangeError describes a rejected index or half-open range.
type RangeError struct {
	Op   string
	L, R int
	Size int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("segtree: %s [%d, %d) out of range for size %d", e.Op, e.L, e.R, e.Size)
}

func (e *RangeError) Unwrap() error {
	return ErrInvalidRange
}

// checkRange validates 0 <= l <= r <= size.
func checkRange(op string, l, r, size int) error {
	if l < 0 || l > r || r > size {
		return &RangeError{Op: op, L: l, R: r, Size: size}
	}
	return nil
}

// checkIndex validates 0 <= i < size.
func checkIndex(op string, i, size int) error {
	if i < 0 || i >= size {
		return &RangeError{Op: op, L: i, R: i + 1, Size: size}
	}
	return nil
}

func sizeMismatch(got, want int) error {
	return fmt.Errorf("%w: build got %d values for size %d", ErrSizeMismatch, got, want)
}

// arenaSize returns the leaf capacity (a power of two, at least 1) for n
// leaves and its base-2 logarithm. Node k has children 2k and 2k+1, leaf i
// lives at capacity+i, and slot 0 is unused.
func arenaSize(n int) (capacity, log int) {
	if n <= 1 {
		return 1, 0
	}
	log = bits.Len(uint(n - 1))
	return 1 << log, log
}
