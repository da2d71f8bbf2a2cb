// Package intcode implements the Intcode stored-program virtual machine.
//
// An Intcode program is a sequence of signed 64-bit cells that is both code
// and data. The VM executes nine operations plus halt, with three addressing
// modes (position, immediate, relative), and grows its memory on demand.
//
// Execution is a plain synchronous call. Run returns when the program halts,
// when it faults, or, if requested, right after an output instruction. All
// resumption state (program counter, relative base, memory, input cursor,
// output queue) lives in the VM, so the next Run continues exactly where the
// previous one stopped:
//
//	vm := intcode.New(image, []int64{phase})
//	vm.Feed(signal)
//	if err := vm.RunToNextOutput(); err != nil {
//		return err
//	}
//	signal, _ = vm.LastOutput()
package intcode

import (
	"fmt"

	"github.com/tliron/commonlog"
)

// Stats counts work done by a VM over its lifetime.
type Stats struct {
	Steps   uint64 // Instructions executed
	Inputs  uint64 // Input values consumed
	Outputs uint64 // Output values produced
}

// Sub returns the work done between an earlier snapshot o and s.
func (s Stats) Sub(o Stats) Stats {
	return Stats{
		Steps:   s.Steps - o.Steps,
		Inputs:  s.Inputs - o.Inputs,
		Outputs: s.Outputs - o.Outputs,
	}
}

// Option configures a VM.
type Option func(*config)

type config struct {
	maxCells  int64
	stepLimit uint64
	trace     bool
	log       commonlog.Logger
}

func defaultConfig() config {
	return config{
		maxCells: DefaultMaxCells,
		log:      commonlog.GetLogger("intcode.vm"),
	}
}

// WithMemoryLimit caps memory at n cells. Zero removes the limit.
func WithMemoryLimit(n int64) Option {
	return func(c *config) {
		c.maxCells = n
	}
}

// WithStepLimit bounds the number of instructions a single Run call may
// execute. Zero means unbounded.
func WithStepLimit(n uint64) Option {
	return func(c *config) {
		c.stepLimit = n
	}
}

// WithTrace logs every executed instruction at debug level.
func WithTrace(enabled bool) Option {
	return func(c *config) {
		c.trace = enabled
	}
}

// WithLogger replaces the VM logger.
func WithLogger(log commonlog.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// VM is an Intcode virtual machine instance. A VM is not safe for
// concurrent use; each instance owns its memory and queues exclusively.
type VM struct {
	mem *Memory

	// Program counter and relative base
	pc int64
	rb int64

	// Input queue and the index of the next value to consume
	input []int64
	inPos int

	output []int64

	// Execution state
	halted bool
	err    error
	stats  Stats

	cfg config
}

// New creates a VM over a private copy of image. inputs seeds the input
// queue (for example a pipeline phase setting) and may be nil.
func New(image []int64, inputs []int64, opts ...Option) *VM {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	vm := &VM{
		mem: NewMemory(image, cfg.maxCells),
		cfg: cfg,
	}
	vm.input = append(vm.input, inputs...)
	return vm
}

// Feed appends a value to the input queue.
func (vm *VM) Feed(values ...int64) {
	vm.input = append(vm.input, values...)
}

// Run executes instructions until the program halts, faults, or, when
// suspendOnOutput is set, right after an output instruction completes.
//
// A fault halts the VM; the fault is returned and stays available from Err.
// Running an already halted VM returns ErrHalted and executes nothing.
func (vm *VM) Run(suspendOnOutput bool) error {
	if vm.halted {
		return ErrHalted
	}
	return vm.execute(suspendOnOutput)
}

// RunToHalt runs until the program halts or faults.
func (vm *VM) RunToHalt() error {
	return vm.Run(false)
}

// RunToNextOutput runs until the next output is produced or the program
// halts. Use Halted to tell the two apart.
func (vm *VM) RunToNextOutput() error {
	return vm.Run(true)
}

// Halted reports whether the VM has stopped for good, either by executing
// halt or by faulting.
func (vm *VM) Halted() bool {
	return vm.halted
}

// Err returns the fault that halted the VM, or nil.
func (vm *VM) Err() error {
	return vm.err
}

// LastOutput returns the most recent output value.
func (vm *VM) LastOutput() (int64, error) {
	if len(vm.output) == 0 {
		return 0, ErrNoOutput
	}
	return vm.output[len(vm.output)-1], nil
}

// Outputs returns a copy of every output produced so far.
func (vm *VM) Outputs() []int64 {
	out := make([]int64, len(vm.output))
	copy(out, vm.output)
	return out
}

// OutputCount returns the number of outputs produced so far.
func (vm *VM) OutputCount() int {
	return len(vm.output)
}

// PendingInputs returns the number of queued inputs not yet consumed.
func (vm *VM) PendingInputs() int {
	return len(vm.input) - vm.inPos
}

// Peek returns the memory cell at addr without growing memory. Cells past
// the end read as zero.
func (vm *VM) Peek(addr int64) (int64, error) {
	if addr < 0 {
		return 0, ErrInvalidAddress
	}
	if addr >= int64(vm.mem.Len()) {
		return 0, nil
	}
	return vm.mem.cells[addr], nil
}

// Poke writes a memory cell, typically to patch a program before running it.
func (vm *VM) Poke(addr int64, value int64) error {
	if err := vm.mem.Write(addr, value); err != nil {
		return fmt.Errorf("poke %d: %w", addr, err)
	}
	return nil
}

// Memory returns a copy of the current memory image.
func (vm *VM) Memory() []int64 {
	return vm.mem.Snapshot()
}

// MemorySize returns the current memory size in cells.
func (vm *VM) MemorySize() int {
	return vm.mem.Len()
}

// PC returns the current program counter.
func (vm *VM) PC() int64 {
	return vm.pc
}

// RelativeBase returns the current relative base.
func (vm *VM) RelativeBase() int64 {
	return vm.rb
}

// Stats returns execution counters.
func (vm *VM) Stats() Stats {
	return vm.stats
}
