package segtree

// LazySegmentTree is an array of values of a monoid T that supports range
// aggregate queries and range updates drawn from a second monoid E.
//
// A node's stored value always reflects every update applied to it; pending
// updates for its children are kept in lazy and pushed down on the next
// descent through the node. Pushes are not visible to callers, but they do
// mutate the tree, so even queries need exclusive access.
type LazySegmentTree[T, E any] struct {
	n        int
	capacity int
	log      int

	combine func(T, T) T
	apply   func(T, E) T
	compose func(E, E) E

	identity     T
	lazyIdentity E

	data  []T // 2*capacity slots, leaf i at capacity+i
	lazy  []E // capacity slots, internal nodes only
	built bool
}

// NewLazy creates a tree of size leaves.
//
// combine and compose must be associative, and identity and lazyIdentity
// must be their identities. apply must satisfy apply(x, lazyIdentity) == x and
// apply(apply(x, a), b) == apply(x, compose(a, b)), and must be consistent
// with how combine aggregates, e.g. subtracting amount*size from a sum that
// carries its own size. None of this is checked.
func NewLazy[T, E any](
	size int,
	combine func(T, T) T,
	apply func(T, E) T,
	compose func(E, E) E,
	identity T,
	lazyIdentity E,
) (*LazySegmentTree[T, E], error) {
	if size < 0 {
		return nil, &RangeError{Op: "new", L: 0, R: size, Size: size}
	}
	capacity, log := arenaSize(size)
	return &LazySegmentTree[T, E]{
		n:            size,
		capacity:     capacity,
		log:          log,
		combine:      combine,
		apply:        apply,
		compose:      compose,
		identity:     identity,
		lazyIdentity: lazyIdentity,
		data:         make([]T, 2*capacity),
		lazy:         make([]E, capacity),
	}, nil
}

// Len returns the number of leaves.
func (t *LazySegmentTree[T, E]) Len() int {
	return t.n
}

// Build initialises leaf i to values[i] and discards any prior state.
func (t *LazySegmentTree[T, E]) Build(values []T) error {
	if len(values) != t.n {
		return sizeMismatch(len(values), t.n)
	}
	for i := range t.data {
		t.data[i] = t.identity
	}
	for i := range t.lazy {
		t.lazy[i] = t.lazyIdentity
	}
	copy(t.data[t.capacity:], values)
	for k := t.capacity - 1; k >= 1; k-- {
		t.update(k)
	}
	t.built = true
	return nil
}

// Reset returns the tree to its unbuilt state.
func (t *LazySegmentTree[T, E]) Reset() {
	t.built = false
}

// Get returns leaf i with all pending updates folded in.
func (t *LazySegmentTree[T, E]) Get(i int) (T, error) {
	if err := t.ready(); err != nil {
		return t.identity, err
	}
	if err := checkIndex("get", i, t.n); err != nil {
		return t.identity, err
	}
	p := i + t.capacity
	for s := t.log; s >= 1; s-- {
		t.push(p >> s)
	}
	return t.data[p], nil
}

// Set overwrites leaf i with v. Unlike ApplyAt it does not compose with the
// current value.
func (t *LazySegmentTree[T, E]) Set(i int, v T) error {
	if err := t.ready(); err != nil {
		return err
	}
	if err := checkIndex("set", i, t.n); err != nil {
		return err
	}
	p := i + t.capacity
	for s := t.log; s >= 1; s-- {
		t.push(p >> s)
	}
	t.data[p] = v
	for s := 1; s <= t.log; s++ {
		t.update(p >> s)
	}
	return nil
}

// Query returns the combination of leaves in [l, r). Query(i, i) is the identity.
func (t *LazySegmentTree[T, E]) Query(l, r int) (T, error) {
	if err := t.ready(); err != nil {
		return t.identity, err
	}
	if err := checkRange("query", l, r, t.n); err != nil {
		return t.identity, err
	}
	if l == r {
		return t.identity, nil
	}

	l += t.capacity
	r += t.capacity
	t.pushBounds(l, r)

	left, right := t.identity, t.identity
	for l < r {
		if l&1 == 1 {
			left = t.combine(left, t.data[l])
			l++
		}
		if r&1 == 1 {
			r--
			right = t.combine(t.data[r], right)
		}
		l >>= 1
		r >>= 1
	}
	return t.combine(left, right), nil
}

// All returns the combination of every leaf.
func (t *LazySegmentTree[T, E]) All() (T, error) {
	if err := t.ready(); err != nil {
		return t.identity, err
	}
	return t.data[1], nil
}

// Values returns a copy of every leaf with pending updates folded in.
func (t *LazySegmentTree[T, E]) Values() ([]T, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	for k := 1; k < t.capacity; k++ {
		t.push(k)
	}
	out := make([]T, t.n)
	copy(out, t.data[t.capacity:t.capacity+t.n])
	return out, nil
}

// ApplyAt applies e to leaf i. It is Apply(i, i+1, e).
func (t *LazySegmentTree[T, E]) ApplyAt(i int, e E) error {
	if err := t.ready(); err != nil {
		return err
	}
	if err := checkIndex("apply", i, t.n); err != nil {
		return err
	}
	p := i + t.capacity
	for s := t.log; s >= 1; s-- {
		t.push(p >> s)
	}
	t.data[p] = t.apply(t.data[p], e)
	for s := 1; s <= t.log; s++ {
		t.update(p >> s)
	}
	return nil
}

// Apply applies e to every leaf in [l, r). Successive updates compose as
// compose(earlier, later).
func (t *LazySegmentTree[T, E]) Apply(l, r int, e E) error {
	if err := t.ready(); err != nil {
		return err
	}
	if err := checkRange("apply", l, r, t.n); err != nil {
		return err
	}
	if l == r {
		return nil
	}

	l += t.capacity
	r += t.capacity
	t.pushBounds(l, r)

	for l2, r2 := l, r; l2 < r2; l2, r2 = l2>>1, r2>>1 {
		if l2&1 == 1 {
			t.applyNode(l2, e)
			l2++
		}
		if r2&1 == 1 {
			r2--
			t.applyNode(r2, e)
		}
	}

	for s := 1; s <= t.log; s++ {
		if (l>>s)<<s != l {
			t.update(l >> s)
		}
		if (r>>s)<<s != r {
			t.update((r - 1) >> s)
		}
	}
	return nil
}

// FindFirst returns the smallest r in [start, size] such that
// pred(Query(start, r)) holds, or size if there is none. pred must be
// monotone: once true it stays true as r grows.
func (t *LazySegmentTree[T, E]) FindFirst(start int, pred func(T) bool) (int, error) {
	if err := t.ready(); err != nil {
		return t.n, err
	}
	if err := checkRange("find first", start, t.n, t.n); err != nil {
		return t.n, err
	}
	if pred(t.identity) {
		return start, nil
	}
	r := t.maxRight(start, func(v T) bool { return !pred(v) })
	if r == t.n {
		return t.n, nil
	}
	return r + 1, nil
}

// FindLast returns the largest l in [0, end] such that pred(Query(l, end))
// holds, or -1 if there is none. When pred(identity) holds the result is end
// itself. pred must be monotone: once true it stays true as l shrinks.
func (t *LazySegmentTree[T, E]) FindLast(end int, pred func(T) bool) (int, error) {
	if err := t.ready(); err != nil {
		return -1, err
	}
	if err := checkRange("find last", 0, end, t.n); err != nil {
		return -1, err
	}
	if pred(t.identity) {
		return end, nil
	}
	l := t.minLeft(end, func(v T) bool { return !pred(v) })
	if l == 0 {
		return -1, nil
	}
	return l - 1, nil
}

// maxRight returns the largest r such that g(Query(l, r)) holds; g(identity)
// must hold.
func (t *LazySegmentTree[T, E]) maxRight(l int, g func(T) bool) int {
	if l == t.n {
		return t.n
	}
	l += t.capacity
	for s := t.log; s >= 1; s-- {
		t.push(l >> s)
	}
	acc := t.identity
	for {
		for l%2 == 0 {
			l >>= 1
		}
		if !g(t.combine(acc, t.data[l])) {
			for l < t.capacity {
				t.push(l)
				l = 2 * l
				if next := t.combine(acc, t.data[l]); g(next) {
					acc = next
					l++
				}
			}
			return l - t.capacity
		}
		acc = t.combine(acc, t.data[l])
		l++
		if l&-l == l {
			break
		}
	}
	return t.n
}

// minLeft returns the smallest l such that g(Query(l, r)) holds; g(identity)
// must hold.
func (t *LazySegmentTree[T, E]) minLeft(r int, g func(T) bool) int {
	if r == 0 {
		return 0
	}
	r += t.capacity
	for s := t.log; s >= 1; s-- {
		t.push((r - 1) >> s)
	}
	acc := t.identity
	for {
		r--
		for r > 1 && r%2 == 1 {
			r >>= 1
		}
		if !g(t.combine(t.data[r], acc)) {
			for r < t.capacity {
				t.push(r)
				r = 2*r + 1
				if next := t.combine(t.data[r], acc); g(next) {
					acc = next
					r--
				}
			}
			return r + 1 - t.capacity
		}
		acc = t.combine(t.data[r], acc)
		if r&-r == r {
			break
		}
	}
	return 0
}

func (t *LazySegmentTree[T, E]) ready() error {
	if !t.built {
		return ErrNotBuilt
	}
	return nil
}

func (t *LazySegmentTree[T, E]) update(k int) {
	t.data[k] = t.combine(t.data[2*k], t.data[2*k+1])
}

func (t *LazySegmentTree[T, E]) applyNode(k int, e E) {
	t.data[k] = t.apply(t.data[k], e)
	if k < t.capacity {
		t.lazy[k] = t.compose(t.lazy[k], e)
	}
}

func (t *LazySegmentTree[T, E]) push(k int) {
	t.applyNode(2*k, t.lazy[k])
	t.applyNode(2*k+1, t.lazy[k])
	t.lazy[k] = t.lazyIdentity
}

// pushBounds pushes down every ancestor of the arena slots l and r-1 that
// is only partially covered by [l, r).
func (t *LazySegmentTree[T, E]) pushBounds(l, r int) {
	for s := t.log; s >= 1; s-- {
		if (l>>s)<<s != l {
			t.push(l >> s)
		}
		if (r>>s)<<s != r {
			t.push((r - 1) >> s)
		}
	}
}
