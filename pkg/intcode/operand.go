package intcode

// instruction is the decoded view of the cell at the program counter.
type instruction struct {
	pc     int64
	raw    int64
	opcode int64
	modes  [maxParams]Mode
}

// fail wraps err with the instruction's location.
func (in *instruction) fail(err error, addr int64) error {
	return NewExecError(err, in.pc, in.raw, addr)
}

// param returns the literal parameter p (1-based) of in.
func (vm *VM) param(in *instruction, p int) (int64, error) {
	addr := in.pc + int64(p)
	v, err := vm.mem.Read(addr)
	if err != nil {
		return 0, in.fail(err, addr)
	}
	return v, nil
}

// address resolves the effective address of parameter p. Immediate mode has
// no address and is rejected.
func (vm *VM) address(in *instruction, p int) (int64, error) {
	raw, err := vm.param(in, p)
	if err != nil {
		return 0, err
	}

	switch in.modes[p-1] {
	case ModePosition:
		return raw, nil
	case ModeRelative:
		return vm.rb + raw, nil
	default:
		return 0, in.fail(ErrInvalidMode, NoAddress)
	}
}

// load resolves the value of source parameter p.
func (vm *VM) load(in *instruction, p int) (int64, error) {
	if in.modes[p-1] == ModeImmediate {
		return vm.param(in, p)
	}

	addr, err := vm.address(in, p)
	if err != nil {
		return 0, err
	}
	v, err := vm.mem.Read(addr)
	if err != nil {
		return 0, in.fail(err, addr)
	}
	return v, nil
}

// store writes v to the destination named by parameter p.
func (vm *VM) store(in *instruction, p int, v int64) error {
	addr, err := vm.address(in, p)
	if err != nil {
		return err
	}
	if err := vm.mem.Write(addr, v); err != nil {
		return in.fail(err, addr)
	}
	return nil
}
