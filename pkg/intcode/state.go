package intcode

import "fmt"

// State is a detached copy of everything a VM needs to continue running.
// It is what checkpoints persist.
type State struct {
	Memory       []int64
	PC           int64
	RelativeBase int64
	Halted       bool
	Inputs       []int64
	InputPos     int
	Outputs      []int64
	Stats        Stats
}

// State returns a deep copy of the VM's execution state.
func (vm *VM) State() State {
	s := State{
		Memory:       vm.mem.Snapshot(),
		PC:           vm.pc,
		RelativeBase: vm.rb,
		Halted:       vm.halted,
		Inputs:       make([]int64, len(vm.input)),
		InputPos:     vm.inPos,
		Outputs:      vm.Outputs(),
		Stats:        vm.stats,
	}
	copy(s.Inputs, vm.input)
	return s
}

// Restore rebuilds a VM from a saved state. The restored VM continues
// exactly as the original would have.
func Restore(s State, opts ...Option) (*VM, error) {
	if s.PC < 0 {
		return nil, fmt.Errorf("restore: pc %d: %w", s.PC, ErrInvalidAddress)
	}
	if s.InputPos < 0 || s.InputPos > len(s.Inputs) {
		return nil, fmt.Errorf("restore: input cursor %d out of range [0,%d]", s.InputPos, len(s.Inputs))
	}

	vm := New(s.Memory, s.Inputs, opts...)
	if vm.cfg.maxCells > 0 && int64(len(s.Memory)) > vm.cfg.maxCells {
		return nil, fmt.Errorf("restore: %d cells: %w", len(s.Memory), ErrMemoryLimit)
	}
	vm.pc = s.PC
	vm.rb = s.RelativeBase
	vm.halted = s.Halted
	vm.inPos = s.InputPos
	vm.output = append(vm.output, s.Outputs...)
	vm.stats = s.Stats
	return vm, nil
}
