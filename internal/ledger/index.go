package ledger

// index is a swap-and-pop list with a 1-based position table (0 = absent).
// Insert and Remove are both O(1); removal swaps the last member into the
// freed slot and truncates. One small container backs every id list and the
// tracked-address list.
type index[T comparable] struct {
	members []T
	pos     map[T]int
}

func newIndex[T comparable]() *index[T] {
	return &index[T]{pos: make(map[T]int)}
}

func (x *index[T]) Insert(v T) {
	if x.pos[v] != 0 {
		return
	}
	x.members = append(x.members, v)
	x.pos[v] = len(x.members)
}

// Remove fails loudly when v is absent: a missing member on a lifecycle
// transition means the ledger and its indexes have diverged.
func (x *index[T]) Remove(v T) error {
	p := x.pos[v]
	if p == 0 {
		return ErrNotIndexed
	}
	last := len(x.members)
	moved := x.members[last-1]
	x.members[p-1] = moved
	x.pos[moved] = p
	x.members = x.members[:last-1]
	delete(x.pos, v)
	return nil
}

func (x *index[T]) Contains(v T) bool {
	return x.pos[v] != 0
}

func (x *index[T]) Len() int {
	return len(x.members)
}

// Members returns a copy; callers iterate and mutate the index freely.
func (x *index[T]) Members() []T {
	out := make([]T, len(x.members))
	copy(out, x.members)
	return out
}

// Clear drops every member. Used by the maintenance sweep when purging an
// address's history lists.
func (x *index[T]) Clear() {
	x.members = nil
	x.pos = make(map[T]int)
}
