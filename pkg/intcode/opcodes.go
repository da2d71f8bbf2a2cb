package intcode

// Intcode instruction format (one signed cell):
//
//	value = mode3*10000 + mode2*1000 + mode1*100 + opcode
//
// The low two decimal digits select the operation; each higher digit is the
// addressing mode of the matching parameter.

// Opcodes
const (
	OpAdd   = 1
	OpMul   = 2
	OpIn    = 3
	OpOut   = 4
	OpJumpT = 5
	OpJumpF = 6
	OpLess  = 7
	OpEqual = 8
	OpAdjRB = 9
	OpHalt  = 99
)

// maxParams is the widest parameter list of any opcode.
const maxParams = 3

// Mode is a parameter addressing mode.
type Mode int64

// Addressing modes
const (
	ModePosition  Mode = 0 // operand is memory[param]
	ModeImmediate Mode = 1 // operand is param itself
	ModeRelative  Mode = 2 // operand is memory[relative base + param]
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModePosition:
		return "position"
	case ModeImmediate:
		return "immediate"
	case ModeRelative:
		return "relative"
	default:
		return "invalid"
	}
}

// opInfo describes one row of the opcode table.
type opInfo struct {
	name   string
	params int
	writes int // index (1-based) of the destination parameter, 0 if none
}

var opTable = map[int64]opInfo{
	OpAdd:   {"add", 3, 3},
	OpMul:   {"mul", 3, 3},
	OpIn:    {"in", 1, 1},
	OpOut:   {"out", 1, 0},
	OpJumpT: {"jt", 2, 0},
	OpJumpF: {"jf", 2, 0},
	OpLess:  {"lt", 3, 3},
	OpEqual: {"eq", 3, 3},
	OpAdjRB: {"arb", 1, 0},
	OpHalt:  {"halt", 0, 0},
}

// OpcodeName returns the mnemonic for an opcode.
func OpcodeName(opcode int64) string {
	if info, ok := opTable[opcode]; ok {
		return info.name
	}
	return "UNKNOWN"
}

// ParamCount returns the number of parameters an opcode takes, or -1 if the
// opcode is unknown.
func ParamCount(opcode int64) int {
	if info, ok := opTable[opcode]; ok {
		return info.params
	}
	return -1
}

// splitOpcode separates a raw instruction cell into its opcode and the three
// parameter modes. Negative cells never decode to a valid opcode.
func splitOpcode(raw int64) (int64, [maxParams]Mode) {
	var modes [maxParams]Mode
	if raw < 0 {
		return raw, modes
	}
	opcode := raw % 100
	rest := raw / 100
	for i := range modes {
		modes[i] = Mode(rest % 10)
		rest /= 10
	}
	return opcode, modes
}
