// Package segtree provides array-backed segment trees over caller-supplied
// monoids.
//
// LazySegmentTree supports range updates through a second monoid of pending
// updates, range aggregate queries, hard point assignment, and monotone
// binary searches over prefix (FindFirst) and suffix (FindLast) aggregates.
// SegmentTree is the non-lazy sibling: point assignment, range queries, the
// same searches, and batch updates that defer ancestor recomputation until
// the batch closes.
//
// Both trees store nodes in one flat slice. The leaf capacity is the
// smallest power of two not below the size; node k has children 2k and 2k+1,
// leaf i sits at capacity+i, and padding leaves hold the identity.
//
// Ranges are half-open. Out-of-range arguments return a *RangeError wrapping
// ErrInvalidRange, and any operation before Build returns ErrNotBuilt.
// Neither tree is safe for concurrent use; lazy push-down means even queries
// write to the tree.
package segtree
