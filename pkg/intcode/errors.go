package intcode

import (
	"errors"
	"fmt"
	"math"
)

// NoAddress marks an ExecError that does not involve a memory address.
const NoAddress int64 = math.MinInt64

// Standard Intcode errors.
var (
	// ErrMalformedProgram is returned when program text contains a token
	// that is not a base-10 integer.
	ErrMalformedProgram = errors.New("malformed program")

	// ErrInvalidAddress is returned when a negative memory address is accessed.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrUnknownOpcode is returned when the decoded opcode is not in the table.
	ErrUnknownOpcode = errors.New("unknown opcode")

	// ErrInputUnderflow is returned when an input instruction finds the
	// input queue exhausted.
	ErrInputUnderflow = errors.New("input underflow")

	// ErrInvalidMode is returned for a mode digit outside 0-2, or for an
	// immediate-mode destination operand.
	ErrInvalidMode = errors.New("invalid parameter mode")

	// ErrHalted is returned when resuming a VM that has already halted.
	ErrHalted = errors.New("vm halted")

	// ErrMemoryLimit is returned when an access would grow memory past the
	// configured cell limit.
	ErrMemoryLimit = errors.New("memory limit exceeded")

	// ErrStepLimit is returned when a run exhausts its step budget. The VM
	// is left resumable.
	ErrStepLimit = errors.New("step limit reached")

	// ErrNoOutput is returned when a caller asks for output that was never
	// produced.
	ErrNoOutput = errors.New("no output produced")
)

// ExecError wraps an engine fault with the VM state at the time of the fault.
type ExecError struct {
	Err     error
	PC      int64 // Program counter of the faulting instruction
	Opcode  int64 // Raw cell at PC (opcode plus mode digits)
	Address int64 // Memory address involved, NoAddress if none
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	if e.Address != NoAddress {
		return fmt.Sprintf("intcode error at pc=%d opcode=%d addr=%d: %v",
			e.PC, e.Opcode, e.Address, e.Err)
	}
	return fmt.Sprintf("intcode error at pc=%d opcode=%d: %v", e.PC, e.Opcode, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error.
func (e *ExecError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExecError creates a new ExecError.
func NewExecError(err error, pc, opcode, address int64) *ExecError {
	return &ExecError{
		Err:     err,
		PC:      pc,
		Opcode:  opcode,
		Address: address,
	}
}

// ParseError reports the offending token of a malformed program.
type ParseError struct {
	Index int    // Zero-based token index
	Token string // Token text after trimming
	Err   error  // Underlying strconv error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: token %d %q: %v", ErrMalformedProgram, e.Index, e.Token, e.Err)
}

// Unwrap returns ErrMalformedProgram so callers can match with errors.Is.
func (e *ParseError) Unwrap() error {
	return ErrMalformedProgram
}
