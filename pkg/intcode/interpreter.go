package intcode

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"
)

// execute runs the main interpreter loop.
func (vm *VM) execute(suspendOnOutput bool) error {
	var steps uint64
	for !vm.halted {
		if vm.cfg.stepLimit > 0 && steps >= vm.cfg.stepLimit {
			return fmt.Errorf("%w: %d steps, pc=%d", ErrStepLimit, steps, vm.pc)
		}

		emitted, err := vm.step()
		steps++
		if err != nil {
			vm.fault(err)
			return err
		}

		if emitted && suspendOnOutput {
			return nil
		}
	}
	return nil
}

// fault halts the VM and records err as the reason.
func (vm *VM) fault(err error) {
	vm.halted = true
	vm.err = err

	var execErr *ExecError
	if errors.As(err, &execErr) && errors.Is(err, ErrUnknownOpcode) {
		vm.cfg.log.Errorf("unknown opcode %d at pc=%d, halting", execErr.Opcode, execErr.PC)
		return
	}
	vm.cfg.log.Errorf("vm fault: %v", err)
}

// decode reads and splits the instruction at the program counter.
func (vm *VM) decode() (*instruction, error) {
	pc := vm.pc
	raw, err := vm.mem.Read(pc)
	if err != nil {
		return nil, NewExecError(err, pc, 0, pc)
	}

	opcode, modes := splitOpcode(raw)
	if _, ok := opTable[opcode]; !ok {
		return nil, NewExecError(ErrUnknownOpcode, pc, raw, NoAddress)
	}

	return &instruction{
		pc:     pc,
		raw:    raw,
		opcode: opcode,
		modes:  modes,
	}, nil
}

// step executes a single instruction. It reports whether the instruction
// produced an output. Only instructions that complete are counted.
func (vm *VM) step() (bool, error) {
	in, err := vm.decode()
	if err != nil {
		return false, err
	}

	if vm.cfg.trace && vm.cfg.log.AllowLevel(commonlog.Debug) {
		vm.cfg.log.Debugf("%s", vm.traceLine(in))
	}

	emitted, err := vm.exec(in)
	if err != nil {
		return false, err
	}
	vm.stats.Steps++
	return emitted, nil
}

// exec applies a decoded instruction to the VM state.
func (vm *VM) exec(in *instruction) (bool, error) {
	switch in.opcode {
	case OpAdd, OpMul, OpLess, OpEqual:
		a, err := vm.load(in, 1)
		if err != nil {
			return false, err
		}
		b, err := vm.load(in, 2)
		if err != nil {
			return false, err
		}

		var v int64
		switch in.opcode {
		case OpAdd:
			v = a + b
		case OpMul:
			v = a * b
		case OpLess:
			v = boolCell(a < b)
		case OpEqual:
			v = boolCell(a == b)
		}

		if err := vm.store(in, 3, v); err != nil {
			return false, err
		}
		vm.pc += 4

	case OpIn:
		if vm.inPos >= len(vm.input) {
			return false, in.fail(ErrInputUnderflow, NoAddress)
		}
		if err := vm.store(in, 1, vm.input[vm.inPos]); err != nil {
			return false, err
		}
		vm.inPos++
		vm.stats.Inputs++
		vm.pc += 2

	case OpOut:
		a, err := vm.load(in, 1)
		if err != nil {
			return false, err
		}
		vm.output = append(vm.output, a)
		vm.stats.Outputs++
		vm.pc += 2
		return true, nil

	case OpJumpT, OpJumpF:
		a, err := vm.load(in, 1)
		if err != nil {
			return false, err
		}
		b, err := vm.load(in, 2)
		if err != nil {
			return false, err
		}

		if (a != 0) == (in.opcode == OpJumpT) {
			if b < 0 {
				return false, in.fail(ErrInvalidAddress, b)
			}
			vm.pc = b
		} else {
			vm.pc += 3
		}

	case OpAdjRB:
		a, err := vm.load(in, 1)
		if err != nil {
			return false, err
		}
		vm.rb += a
		vm.pc += 2

	case OpHalt:
		vm.pc++
		vm.halted = true
	}

	return false, nil
}

func boolCell(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// traceLine renders the instruction about to execute.
func (vm *VM) traceLine(in *instruction) string {
	inst, err := Decode(vm.mem.cells, in.pc)
	if err != nil {
		return fmt.Sprintf("%6d: <%v>", in.pc, err)
	}
	return fmt.Sprintf("%6d: %-28s rb=%d", in.pc, inst.String(), vm.rb)
}
