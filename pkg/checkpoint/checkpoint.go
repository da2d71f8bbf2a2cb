// Package checkpoint persists suspended Intcode VMs.
//
// A checkpoint captures the full execution state of a VM together with the
// hash of the program it was started from, so a run can be stopped at an
// output, stored, and resumed later in another process. Checkpoints are
// encoded in a compact little-endian layout and compressed with zstd before
// they reach a Store.
package checkpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/types"
	"github.com/tliron/commonlog"
)

// MaxNameLen is the longest checkpoint name accepted.
const MaxNameLen = 255

var (
	// ErrNotFound is returned when no checkpoint has the requested name.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrInvalidName is returned for empty or oversized names.
	ErrInvalidName = errors.New("invalid checkpoint name")

	// ErrInvalidCheckpoint is returned when stored bytes cannot be decoded.
	ErrInvalidCheckpoint = errors.New("invalid checkpoint data")

	// ErrProgramMismatch is returned when a checkpoint is resumed against a
	// different program than the one it was taken from.
	ErrProgramMismatch = errors.New("checkpoint program mismatch")
)

// Checkpoint is a named, suspended VM.
type Checkpoint struct {
	Name      string
	Program   types.Hash
	State     intcode.State
	CreatedAt time.Time
}

// New captures the current state of vm under name.
func New(name string, program types.Hash, vm *intcode.VM) (*Checkpoint, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return &Checkpoint{
		Name:      name,
		Program:   program,
		State:     vm.State(),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ValidateName checks that name can be stored.
func ValidateName(name string) error {
	if name == "" || len(name) > MaxNameLen {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Verify checks that image is the program the checkpoint was taken from.
func (cp *Checkpoint) Verify(image []int64) error {
	if got := types.ProgramHash(image); got != cp.Program {
		return fmt.Errorf("%w: checkpoint %s has %s, program is %s",
			ErrProgramMismatch, cp.Name, cp.Program.Short(), got.Short())
	}
	return nil
}

// Resume rebuilds a VM from the checkpoint.
func (cp *Checkpoint) Resume(opts ...intcode.Option) (*intcode.VM, error) {
	vm, err := intcode.Restore(cp.State, opts...)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", cp.Name, err)
	}
	commonlog.GetLogger("intcode.checkpoint").Debugf("resumed %s at pc=%d after %d steps", cp.Name, cp.State.PC, cp.State.Stats.Steps)
	return vm, nil
}
