package intcode

// DefaultMaxCells is the default upper bound on memory size (16M cells, 128MB).
const DefaultMaxCells = 1 << 24

// maxAddressableCells bounds memory even when the configured limit is
// disabled, so a huge address faults instead of failing the allocation.
const maxAddressableCells = 1<<31 - 1

// Memory is the VM's cell store. It grows on demand: any access at or past
// the current length zero-fills up to and including the target address
// before the access completes. Existing cells are never moved or truncated.
type Memory struct {
	cells    []int64
	maxCells int64 // 0 disables the limit
}

// NewMemory creates a memory holding a private copy of image.
func NewMemory(image []int64, maxCells int64) *Memory {
	cells := make([]int64, len(image))
	copy(cells, image)
	return &Memory{
		cells:    cells,
		maxCells: maxCells,
	}
}

// Len returns the current number of cells.
func (m *Memory) Len() int {
	return len(m.cells)
}

// ensure grows the store so that addr is a valid index.
func (m *Memory) ensure(addr int64) error {
	if addr < 0 {
		return ErrInvalidAddress
	}
	if addr < int64(len(m.cells)) {
		return nil
	}
	if m.maxCells > 0 && addr >= m.maxCells {
		return ErrMemoryLimit
	}
	if addr >= maxAddressableCells {
		return ErrMemoryLimit
	}

	need := int(addr) + 1
	if need <= cap(m.cells) {
		// Spare capacity is never written, so it is still zero.
		m.cells = m.cells[:need]
		return nil
	}

	newCap := 2 * cap(m.cells)
	if newCap < need {
		newCap = need
	}
	if m.maxCells > 0 && int64(newCap) > m.maxCells {
		newCap = int(m.maxCells)
	}
	if newCap > maxAddressableCells {
		newCap = maxAddressableCells
	}
	grown := make([]int64, need, newCap)
	copy(grown, m.cells)
	m.cells = grown
	return nil
}

// Read returns the cell at addr, growing the store if needed.
func (m *Memory) Read(addr int64) (int64, error) {
	if err := m.ensure(addr); err != nil {
		return 0, err
	}
	return m.cells[addr], nil
}

// Write stores value at addr, growing the store if needed.
func (m *Memory) Write(addr int64, value int64) error {
	if err := m.ensure(addr); err != nil {
		return err
	}
	m.cells[addr] = value
	return nil
}

// Snapshot returns a copy of the current cells.
func (m *Memory) Snapshot() []int64 {
	out := make([]int64, len(m.cells))
	copy(out, m.cells)
	return out
}
