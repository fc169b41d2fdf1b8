package entity

// Arena is a contiguous, append-only allocator owning values of type V,
// indexed by a strongly-typed Idx[K]. K and V are distinct type parameters
// so callers can use a lightweight marker type as K (to get a distinctly
// named handle type) while storing a larger construction-time struct as V.
// It is the primary map: every entity's owning, authoritative storage.
//
// Capacity grows geometrically (like Go's append), so Alloc is amortized
// O(1). There is no Free: entities live for the arena's lifetime, matching
// the "no block/value/instruction deletion" lifecycle rule.
type Arena[K, V any] struct {
	items []V
}

// NewArena returns an empty arena.
func NewArena[K, V any]() *Arena[K, V] {
	return &Arena[K, V]{}
}

// Alloc appends v and returns its freshly allocated handle.
func (a *Arena[K, V]) Alloc(v V) Idx[K] {
	idx := MakeIdx[K](uint32(len(a.items)))
	a.items = append(a.items, v)
	return idx
}

// Len returns the number of allocated entities.
func (a *Arena[K, V]) Len() int { return len(a.items) }

// Get returns a copy of the data at idx. Panics if idx is out of range or
// invalid: an out-of-range Idx that this arena itself produced is a bug in
// the caller, not a recoverable condition.
func (a *Arena[K, V]) Get(idx Idx[K]) V {
	return a.items[a.checked(idx)]
}

// GetPtr returns a mutable pointer to the data at idx.
func (a *Arena[K, V]) GetPtr(idx Idx[K]) *V {
	return &a.items[a.checked(idx)]
}

// Set overwrites the data at idx.
func (a *Arena[K, V]) Set(idx Idx[K], v V) {
	a.items[a.checked(idx)] = v
}

func (a *Arena[K, V]) checked(idx Idx[K]) int {
	if !idx.Valid() {
		panic("entity: use of invalid Idx")
	}
	raw := int(idx.Raw())
	if raw < 0 || raw >= len(a.items) {
		panic("entity: Idx out of range for this arena")
	}
	return raw
}

// PrimaryIter is the pair yielded while iterating a primary map in order.
type PrimaryIter[K, V any] struct {
	Idx  Idx[K]
	Data V
}

// All returns every (Idx, data) pair in allocation order, the arena's
// in-order iteration guarantee.
func (a *Arena[K, V]) All() []PrimaryIter[K, V] {
	out := make([]PrimaryIter[K, V], len(a.items))
	for i, v := range a.items {
		out[i] = PrimaryIter[K, V]{Idx: MakeIdx[K](uint32(i)), Data: v}
	}
	return out
}

// PrimaryMap is for readers who think of "primary map" and "arena" as
// separate concepts: it embeds an Arena and exposes all of its methods.
type PrimaryMap[K, V any] struct{ Arena[K, V] }
