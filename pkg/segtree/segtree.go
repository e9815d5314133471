package segtree

// SegmentTree is an array of values of a monoid T with point assignment and
// range aggregate queries.
//
// Assignments made between BeginBatch and the matching EndBatch only write
// leaves; the ancestors are recomputed once, bottom-up, when the outermost
// batch closes.
type SegmentTree[T any] struct {
	n        int
	capacity int

	combine  func(T, T) T
	identity T

	data  []T
	built bool

	batchDepth int
}

// New creates a tree of size leaves. combine must be associative with
// identity as its identity element.
func New[T any](size int, combine func(T, T) T, identity T) (*SegmentTree[T], error) {
	if size < 0 {
		return nil, &RangeError{Op: "new", L: 0, R: size, Size: size}
	}
	capacity, _ := arenaSize(size)
	return &SegmentTree[T]{
		n:        size,
		capacity: capacity,
		combine:  combine,
		identity: identity,
		data:     make([]T, 2*capacity),
	}, nil
}

// Len returns the number of leaves.
func (t *SegmentTree[T]) Len() int {
	return t.n
}

// Build initialises leaf i to values[i], discarding prior state and closing
// any open batch.
func (t *SegmentTree[T]) Build(values []T) error {
	if len(values) != t.n {
		return sizeMismatch(len(values), t.n)
	}
	for i := range t.data {
		t.data[i] = t.identity
	}
	copy(t.data[t.capacity:], values)
	t.rebuild()
	t.batchDepth = 0
	t.built = true
	return nil
}

// Reset returns the tree to its unbuilt state.
func (t *SegmentTree[T]) Reset() {
	t.built = false
	t.batchDepth = 0
}

// Get returns leaf i. Leaves are current even inside a batch.
func (t *SegmentTree[T]) Get(i int) (T, error) {
	if err := t.ready(); err != nil {
		return t.identity, err
	}
	if err := checkIndex("get", i, t.n); err != nil {
		return t.identity, err
	}
	return t.data[t.capacity+i], nil
}

// Set overwrites leaf i with v.
func (t *SegmentTree[T]) Set(i int, v T) error {
	if err := t.ready(); err != nil {
		return err
	}
	if err := checkIndex("set", i, t.n); err != nil {
		return err
	}
	p := t.capacity + i
	t.data[p] = v
	if t.batchDepth > 0 {
		return nil
	}
	for p >>= 1; p >= 1; p >>= 1 {
		t.update(p)
	}
	return nil
}

// BeginBatch opens a batch update. Batches nest.
func (t *SegmentTree[T]) BeginBatch() {
	t.batchDepth++
}

// EndBatch closes a batch update. Closing the outermost batch recomputes
// every internal node.
func (t *SegmentTree[T]) EndBatch() error {
	if t.batchDepth == 0 {
		return ErrNoBatch
	}
	t.batchDepth--
	if t.batchDepth == 0 {
		t.rebuild()
	}
	return nil
}

// InBatch reports whether a batch update is open.
func (t *SegmentTree[T]) InBatch() bool {
	return t.batchDepth > 0
}

// Batch runs fn inside a batch update. The batch is closed on every exit
// path, including a panic in fn.
func (t *SegmentTree[T]) Batch(fn func() error) (err error) {
	t.BeginBatch()
	defer func() {
		if endErr := t.EndBatch(); err == nil {
			err = endErr
		}
	}()
	return fn()
}

// Query returns the combination of leaves in [l, r).
func (t *SegmentTree[T]) Query(l, r int) (T, error) {
	if err := t.readable(); err != nil {
		return t.identity, err
	}
	if err := checkRange("query", l, r, t.n); err != nil {
		return t.identity, err
	}

	left, right := t.identity, t.identity
	for l, r = l+t.capacity, r+t.capacity; l < r; l, r = l>>1, r>>1 {
		if l&1 == 1 {
			left = t.combine(left, t.data[l])
			l++
		}
		if r&1 == 1 {
			r--
			right = t.combine(t.data[r], right)
		}
	}
	return t.combine(left, right), nil
}

// All returns the combination of every leaf.
func (t *SegmentTree[T]) All() (T, error) {
	if err := t.readable(); err != nil {
		return t.identity, err
	}
	return t.data[1], nil
}

// Values returns a copy of every leaf.
func (t *SegmentTree[T]) Values() ([]T, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	out := make([]T, t.n)
	copy(out, t.data[t.capacity:t.capacity+t.n])
	return out, nil
}

// FindFirst returns the smallest r in [start, size] such that
// pred(Query(start, r)) holds, or size if there is none.
func (t *SegmentTree[T]) FindFirst(start int, pred func(T) bool) (int, error) {
	if err := t.readable(); err != nil {
		return t.n, err
	}
	if err := checkRange("find first", start, t.n, t.n); err != nil {
		return t.n, err
	}
	if pred(t.identity) {
		return start, nil
	}
	if start == t.n {
		return t.n, nil
	}

	l := start + t.capacity
	acc := t.identity
	for {
		for l%2 == 0 {
			l >>= 1
		}
		if next := t.combine(acc, t.data[l]); pred(next) {
			for l < t.capacity {
				l = 2 * l
				if next := t.combine(acc, t.data[l]); !pred(next) {
					acc = next
					l++
				}
			}
			return l - t.capacity + 1, nil
		}
		acc = t.combine(acc, t.data[l])
		l++
		if l&-l == l {
			return t.n, nil
		}
	}
}

// FindLast returns the largest l in [0, end] such that pred(Query(l, end))
// holds, or -1 if there is none. When pred(identity) holds the empty range
// [end, end) qualifies and the result is end itself.
func (t *SegmentTree[T]) FindLast(end int, pred func(T) bool) (int, error) {
	if err := t.readable(); err != nil {
		return -1, err
	}
	if err := checkRange("find last", 0, end, t.n); err != nil {
		return -1, err
	}
	if pred(t.identity) {
		return end, nil
	}
	if end == 0 {
		return -1, nil
	}

	r := end + t.capacity
	acc := t.identity
	for {
		r--
		for r > 1 && r%2 == 1 {
			r >>= 1
		}
		if next := t.combine(t.data[r], acc); pred(next) {
			for r < t.capacity {
				r = 2*r + 1
				if next := t.combine(t.data[r], acc); !pred(next) {
					acc = next
					r--
				}
			}
			return r - t.capacity, nil
		}
		acc = t.combine(t.data[r], acc)
		if r&-r == r {
			return -1, nil
		}
	}
}

func (t *SegmentTree[T]) ready() error {
	if !t.built {
		return ErrNotBuilt
	}
	return nil
}

// readable is ready plus a check that no batch has left internal nodes stale.
func (t *SegmentTree[T]) readable() error {
	if err := t.ready(); err != nil {
		return err
	}
	if t.batchDepth > 0 {
		return ErrBatchOpen
	}
	return nil
}

func (t *SegmentTree[T]) update(k int) {
	t.data[k] = t.combine(t.data[2*k], t.data[2*k+1])
}

func (t *SegmentTree[T]) rebuild() {
	for k := t.capacity - 1; k >= 1; k-- {
		t.update(k)
	}
}
