package entity

// SparseMap is a hash-backed secondary map from Idx[K] to V, suited to
// components present on only a few entities. It keys the underlying map by
// the handle's raw u32 id rather than the handle itself, so it stays
// agnostic to how K's zero value behaves.
type SparseMap[K, V any] struct {
	m map[uint32]V
}

// NewSparseMap returns an empty sparse secondary map.
func NewSparseMap[K, V any]() *SparseMap[K, V] {
	return &SparseMap[K, V]{m: make(map[uint32]V)}
}

// Insert stores v at idx, returning the previous value if any.
func (m *SparseMap[K, V]) Insert(idx Idx[K], v V) (prev V, had bool) {
	if !idx.Valid() {
		panic("entity: use of invalid Idx")
	}
	prev, had = m.m[idx.Raw()]
	m.m[idx.Raw()] = v
	return prev, had
}

// Get returns the value at idx and whether it was present.
func (m *SparseMap[K, V]) Get(idx Idx[K]) (V, bool) {
	v, ok := m.m[idx.Raw()]
	return v, ok
}

// MustGet returns the value at idx, panicking if absent.
func (m *SparseMap[K, V]) MustGet(idx Idx[K]) V {
	v, ok := m.Get(idx)
	if !ok {
		panic("entity: no sparse component for key")
	}
	return v
}

// Contains reports whether idx has an associated component.
func (m *SparseMap[K, V]) Contains(idx Idx[K]) bool {
	_, ok := m.m[idx.Raw()]
	return ok
}

// Remove deletes the component for idx, if any, returning it.
func (m *SparseMap[K, V]) Remove(idx Idx[K]) (V, bool) {
	v, ok := m.m[idx.Raw()]
	delete(m.m, idx.Raw())
	return v, ok
}

// Len returns the number of components currently stored.
func (m *SparseMap[K, V]) Len() int { return len(m.m) }

// Clear empties the map.
func (m *SparseMap[K, V]) Clear() {
	for k := range m.m {
		delete(m.m, k)
	}
}

// Entry returns a handle for in-place get-or-insert manipulation.
type Entry[K, V any] struct {
	m   *SparseMap[K, V]
	idx Idx[K]
}

// Entry begins an entry-API operation for idx.
func (m *SparseMap[K, V]) Entry(idx Idx[K]) Entry[K, V] {
	return Entry[K, V]{m: m, idx: idx}
}

// OrInsertWith returns the existing value at the entry's key, or computes,
// stores and returns a fresh one via f.
func (e Entry[K, V]) OrInsertWith(f func() V) V {
	if v, ok := e.m.Get(e.idx); ok {
		return v
	}
	v := f()
	e.m.Insert(e.idx, v)
	return v
}

// OrDefault returns the existing value at the entry's key, or the zero value
// of V, inserted and returned.
func (e Entry[K, V]) OrDefault() V {
	var zero V
	return e.OrInsertWith(func() V { return zero })
}

// Keys returns every key currently present, in unspecified order.
func (m *SparseMap[K, V]) Keys() []Idx[K] {
	out := make([]Idx[K], 0, len(m.m))
	for k := range m.m {
		out = append(out, MakeIdx[K](k))
	}
	return out
}
