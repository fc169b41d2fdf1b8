package interp

// Memory is a growable linear memory in Wasm page units, the runtime
// counterpart of an ir.Mem operand. It exists only to give the test
// interpreter somewhere to point load/store/memory.size/memory.grow at;
// the IR itself is agnostic to how memories are allocated.
type Memory struct {
	data []byte
}

// PageSize is the Wasm linear-memory page size in bytes.
const PageSize = 65536

// NewMemory allocates a memory of initialPages pages, zero-filled.
func NewMemory(initialPages uint32) *Memory {
	return &Memory{data: make([]byte, uint64(initialPages)*PageSize)}
}

// Pages reports the current size in pages.
func (m *Memory) Pages() uint32 { return uint32(len(m.data) / PageSize) }

// maxPages bounds a 32-bit address space: 2^32 bytes / PageSize.
const maxPages = (1 << 32) / PageSize

// Grow appends delta pages, returning the previous page count. ok is false
// if the growth would exceed the 32-bit address space (mirrors Wasm's
// memory.grow failure mode, reported as -1 rather than a trap).
func (m *Memory) Grow(delta uint32) (previous uint32, ok bool) {
	previous = m.Pages()
	if uint64(previous)+uint64(delta) > maxPages {
		return previous, false
	}
	if delta == 0 {
		return previous, true
	}
	grown := make([]byte, uint64(len(m.data))+uint64(delta)*PageSize)
	copy(grown, m.data)
	m.data = grown
	return previous, true
}

func (m *Memory) bounds(addr uint64, size int) ([]byte, bool) {
	if addr+uint64(size) > uint64(len(m.data)) {
		return nil, false
	}
	return m.data[addr : addr+uint64(size)], true
}

func (m *Memory) read(addr uint64, size int) (uint64, bool) {
	b, ok := m.bounds(addr, size)
	if !ok {
		return 0, false
	}
	var v uint64
	for i := size - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, true
}

func (m *Memory) write(addr uint64, size int, v uint64) bool {
	b, ok := m.bounds(addr, size)
	if !ok {
		return false
	}
	for i := 0; i < size; i++ {
		b[i] = byte(v)
		v >>= 8
	}
	return true
}
