package intcode

import (
	"fmt"
	"strings"
)

// Instruction is a decoded instruction suitable for display.
type Instruction struct {
	PC     int64
	Raw    int64
	Opcode int64
	Modes  []Mode
	Params []int64
}

// Decode decodes the instruction at pc in image. Cells past the end of the
// image read as zero, matching the VM's memory growth.
func Decode(image []int64, pc int64) (Instruction, error) {
	if pc < 0 {
		return Instruction{}, ErrInvalidAddress
	}

	cell := func(addr int64) int64 {
		if addr < int64(len(image)) {
			return image[addr]
		}
		return 0
	}

	raw := cell(pc)
	opcode, modes := splitOpcode(raw)
	info, ok := opTable[opcode]
	if !ok {
		return Instruction{}, fmt.Errorf("%w: %d", ErrUnknownOpcode, raw)
	}

	inst := Instruction{
		PC:     pc,
		Raw:    raw,
		Opcode: opcode,
		Modes:  make([]Mode, info.params),
		Params: make([]int64, info.params),
	}
	for i := 0; i < info.params; i++ {
		if modes[i] > ModeRelative || (modes[i] == ModeImmediate && info.writes == i+1) {
			return Instruction{}, fmt.Errorf("%w: %d for parameter %d", ErrInvalidMode, modes[i], i+1)
		}
		inst.Modes[i] = modes[i]
		inst.Params[i] = cell(pc + int64(i) + 1)
	}
	return inst, nil
}

// Name returns the instruction mnemonic.
func (i Instruction) Name() string {
	return OpcodeName(i.Opcode)
}

// Size returns the number of cells the instruction occupies.
func (i Instruction) Size() int {
	return 1 + len(i.Params)
}

// String renders the instruction as assembly text. Position operands print
// as [addr], relative operands as [rb+off], immediates as bare numbers.
func (i Instruction) String() string {
	if len(i.Params) == 0 {
		return i.Name()
	}

	ops := make([]string, len(i.Params))
	for n, p := range i.Params {
		switch i.Modes[n] {
		case ModeImmediate:
			ops[n] = fmt.Sprintf("%d", p)
		case ModeRelative:
			ops[n] = fmt.Sprintf("[rb%+d]", p)
		default:
			ops[n] = fmt.Sprintf("[%d]", p)
		}
	}
	return i.Name() + " " + strings.Join(ops, ", ")
}

// Disassemble walks image linearly and renders one line per instruction.
// Cells that do not decode are emitted as data.
func Disassemble(image []int64) []string {
	var lines []string
	for pc := int64(0); pc < int64(len(image)); {
		inst, err := Decode(image, pc)
		if err != nil {
			lines = append(lines, fmt.Sprintf("%6d: data %d", pc, image[pc]))
			pc++
			continue
		}
		lines = append(lines, fmt.Sprintf("%6d: %s", pc, inst.String()))
		pc += int64(inst.Size())
	}
	return lines
}
