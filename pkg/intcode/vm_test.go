package intcode

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/commonlog"
)

// Helper function to build a VM from program text.
func mustVM(t *testing.T, text string, inputs ...int64) *VM {
	t.Helper()
	image, err := ParseProgram(text)
	require.NoError(t, err)
	return New(image, inputs)
}

// runOutputs runs text to halt with the given inputs and returns the outputs.
func runOutputs(t *testing.T, text string, inputs ...int64) []int64 {
	t.Helper()
	vm := mustVM(t, text, inputs...)
	require.NoError(t, vm.RunToHalt())
	require.True(t, vm.Halted())
	return vm.Outputs()
}

const quine = "109,1,204,-1,1001,100,1,100,1008,100,16,101,1006,101,0,99"

func TestAddMulTraces(t *testing.T) {
	tests := []struct {
		program string
		want    []int64
	}{
		{"1,9,10,3,2,3,11,0,99,30,40,50", []int64{3500, 9, 10, 70, 2, 3, 11, 0, 99, 30, 40, 50}},
		{"1,0,0,0,99", []int64{2, 0, 0, 0, 99}},
		{"2,3,0,3,99", []int64{2, 3, 0, 6, 99}},
		{"2,4,4,5,99,0", []int64{2, 4, 4, 5, 99, 9801}},
		{"1,1,1,4,99,5,6,0,99", []int64{30, 1, 1, 4, 2, 5, 6, 0, 99}},
	}

	for _, tc := range tests {
		t.Run(tc.program, func(t *testing.T) {
			vm := mustVM(t, tc.program)
			require.NoError(t, vm.RunToHalt())
			assert.True(t, vm.Halted())
			if diff := cmp.Diff(tc.want, vm.Memory()); diff != "" {
				t.Errorf("memory mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHaltAdvancesPC(t *testing.T) {
	vm := mustVM(t, "1,0,0,0,99")
	require.NoError(t, vm.RunToHalt())
	assert.Equal(t, int64(5), vm.PC())
	assert.Equal(t, uint64(2), vm.Stats().Steps)
}

func TestPeekAfterHalt(t *testing.T) {
	vm := mustVM(t, "1,9,10,3,2,3,11,0,99,30,40,50")
	require.NoError(t, vm.RunToHalt())

	v, err := vm.Peek(0)
	require.NoError(t, err)
	assert.Equal(t, int64(3500), v)

	// Peek past the end reads zero and does not grow memory.
	v, err = vm.Peek(1000)
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.Len(t, vm.Memory(), 12)

	_, err = vm.Peek(-1)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestPokeBeforeRun(t *testing.T) {
	// add [4] + [4] -> [0], with cells 1 and 2 patched to point at the halt.
	vm := mustVM(t, "1,0,0,0,99")
	require.NoError(t, vm.Poke(1, 4))
	require.NoError(t, vm.Poke(2, 4))
	require.NoError(t, vm.RunToHalt())

	v, err := vm.Peek(0)
	require.NoError(t, err)
	assert.Equal(t, int64(198), v)

	assert.ErrorIs(t, vm.Poke(-3, 1), ErrInvalidAddress)
}

func TestImmediateModeMatchesPosition(t *testing.T) {
	// mul 6, 7 -> [7]; out [7]
	immediate := runOutputs(t, "1102,6,7,7,4,7,99,0")
	// same computation with the operands pre-placed at cells 8 and 9
	position := runOutputs(t, "2,8,9,7,4,7,99,0,6,7")

	assert.Equal(t, []int64{42}, immediate)
	assert.Equal(t, immediate, position)
}

func TestNegativeImmediate(t *testing.T) {
	vm := mustVM(t, "1101,100,-1,4,0")
	require.NoError(t, vm.RunToHalt())
	assert.Equal(t, []int64{1101, 100, -1, 4, 99}, vm.Memory())

	vm = mustVM(t, "1002,4,3,4,33")
	require.NoError(t, vm.RunToHalt())
	assert.Equal(t, []int64{1002, 4, 3, 4, 99}, vm.Memory())
}

func TestCompareAndJump(t *testing.T) {
	const large = "3,21,1008,21,8,20,1005,20,22,107,8,21,20,1006,20,31," +
		"1106,0,36,98,0,0,1002,21,125,20,4,20,1105,1,46,104," +
		"999,1105,1,46,1101,1000,1,20,4,20,1105,1,46,98,99"

	tests := []struct {
		name    string
		program string
		input   int64
		want    int64
	}{
		{"eq position hit", "3,9,8,9,10,9,4,9,99,-1,8", 8, 1},
		{"eq position miss", "3,9,8,9,10,9,4,9,99,-1,8", 7, 0},
		{"lt position hit", "3,9,7,9,10,9,4,9,99,-1,8", 5, 1},
		{"lt position miss", "3,9,7,9,10,9,4,9,99,-1,8", 8, 0},
		{"eq immediate hit", "3,3,1108,-1,8,3,4,3,99", 8, 1},
		{"eq immediate miss", "3,3,1108,-1,8,3,4,3,99", 9, 0},
		{"lt immediate hit", "3,3,1107,-1,8,3,4,3,99", -4, 1},
		{"lt immediate miss", "3,3,1107,-1,8,3,4,3,99", 12, 0},
		{"jump position zero", "3,12,6,12,15,1,13,14,13,4,13,99,-1,0,1,9", 0, 0},
		{"jump position nonzero", "3,12,6,12,15,1,13,14,13,4,13,99,-1,0,1,9", 5, 1},
		{"jump immediate zero", "3,3,1105,-1,9,1101,0,0,12,4,12,99,1", 0, 0},
		{"jump immediate nonzero", "3,3,1105,-1,9,1101,0,0,12,4,12,99,1", -2, 1},
		{"below eight", large, 7, 999},
		{"equal eight", large, 8, 1000},
		{"above eight", large, 9, 1001},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, []int64{tc.want}, runOutputs(t, tc.program, tc.input))
		})
	}
}

func TestQuine(t *testing.T) {
	image, err := ParseProgram(quine)
	require.NoError(t, err)

	vm := New(image, nil)
	require.NoError(t, vm.RunToHalt())

	if diff := cmp.Diff(image, vm.Outputs()); diff != "" {
		t.Errorf("quine output mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, uint64(len(image)), vm.Stats().Outputs)
	assert.Greater(t, len(vm.Memory()), len(image))
}

func TestLargeValues(t *testing.T) {
	assert.Equal(t, []int64{1219070632396864}, runOutputs(t, "1102,34915192,34915192,7,4,7,99,0"))
	assert.Equal(t, []int64{1125899906842624}, runOutputs(t, "104,1125899906842624,99"))
}

func TestRelativeWriteBeyondImage(t *testing.T) {
	// arb 2000; add 7, 8 -> [rb+5]; out [rb+5]
	vm := mustVM(t, "109,2000,21101,7,8,5,204,5,99")
	require.NoError(t, vm.RunToHalt())

	assert.Equal(t, []int64{15}, vm.Outputs())
	assert.Equal(t, int64(2000), vm.RelativeBase())
	assert.Len(t, vm.Memory(), 2006)

	v, err := vm.Peek(2005)
	require.NoError(t, err)
	assert.Equal(t, int64(15), v)

	// The original cells survive growth untouched.
	assert.Equal(t, []int64{109, 2000, 21101, 7, 8, 5, 204, 5, 99}, vm.Memory()[:9])
}

func TestRelativeInput(t *testing.T) {
	// arb 10; in [rb+5]; arb -3; out [rb+8]
	vm := mustVM(t, "109,10,203,5,109,-3,204,8,99", 77)
	require.NoError(t, vm.RunToHalt())
	assert.Equal(t, []int64{77}, vm.Outputs())
	assert.Equal(t, uint64(1), vm.Stats().Inputs)
}

func TestResumeEquivalence(t *testing.T) {
	programs := []struct {
		name    string
		program string
		inputs  []int64
	}{
		{"quine", quine, nil},
		{"compare", "3,9,8,9,10,9,4,9,99,-1,8", []int64{8}},
		{"large", "104,1125899906842624,99", nil},
	}

	for _, tc := range programs {
		t.Run(tc.name, func(t *testing.T) {
			once := mustVM(t, tc.program, tc.inputs...)
			require.NoError(t, once.RunToHalt())

			stepped := mustVM(t, tc.program, tc.inputs...)
			calls := 0
			for !stepped.Halted() {
				require.NoError(t, stepped.RunToNextOutput())
				calls++
			}

			assert.Equal(t, once.Outputs(), stepped.Outputs())
			assert.Equal(t, once.Memory(), stepped.Memory())
			assert.Equal(t, len(once.Outputs())+1, calls)
		})
	}
}

func TestSuspendKeepsState(t *testing.T) {
	vm := mustVM(t, quine)

	require.NoError(t, vm.RunToNextOutput())
	assert.False(t, vm.Halted())
	assert.Equal(t, 1, vm.OutputCount())
	last, err := vm.LastOutput()
	require.NoError(t, err)
	assert.Equal(t, int64(109), last)
	assert.Equal(t, int64(4), vm.PC())
	assert.Equal(t, int64(1), vm.RelativeBase())
}

func TestRunHaltedVM(t *testing.T) {
	vm := mustVM(t, "99")
	require.NoError(t, vm.RunToHalt())
	steps := vm.Stats().Steps

	assert.ErrorIs(t, vm.RunToHalt(), ErrHalted)
	assert.ErrorIs(t, vm.RunToNextOutput(), ErrHalted)
	assert.Equal(t, steps, vm.Stats().Steps)
	assert.NoError(t, vm.Err())
}

func TestLastOutputEmpty(t *testing.T) {
	vm := mustVM(t, "99")
	_, err := vm.LastOutput()
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestUnknownOpcode(t *testing.T) {
	vm := mustVM(t, "1,0,0,0,42,99")
	err := vm.RunToHalt()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownOpcode)
	assert.True(t, vm.Halted())
	assert.Equal(t, err, vm.Err())

	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, int64(4), execErr.PC)
	assert.Equal(t, int64(42), execErr.Opcode)
	assert.Equal(t, NoAddress, execErr.Address)

	// Memory stays inspectable after the fault.
	v, err := vm.Peek(0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestNegativeOpcodeCell(t *testing.T) {
	vm := mustVM(t, "-1")
	assert.ErrorIs(t, vm.RunToHalt(), ErrUnknownOpcode)
	assert.True(t, vm.Halted())
}

func TestInputUnderflow(t *testing.T) {
	vm := mustVM(t, "3,0,99")
	err := vm.RunToHalt()
	assert.ErrorIs(t, err, ErrInputUnderflow)
	assert.True(t, vm.Halted())
	assert.Equal(t, int64(0), vm.PC())
	assert.Equal(t, 0, vm.PendingInputs())
}

func TestNegativeAddress(t *testing.T) {
	vm := mustVM(t, "1,-1,0,0,99")
	err := vm.RunToHalt()
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.True(t, vm.Halted())

	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, int64(-1), execErr.Address)
	assert.Equal(t, int64(0), execErr.PC)
}

func TestNegativeJumpTarget(t *testing.T) {
	vm := mustVM(t, "1105,1,-7")
	assert.ErrorIs(t, vm.RunToHalt(), ErrInvalidAddress)
	assert.True(t, vm.Halted())
}

func TestImmediateDestination(t *testing.T) {
	vm := mustVM(t, "11101,1,1,0,99")
	assert.ErrorIs(t, vm.RunToHalt(), ErrInvalidMode)
	assert.True(t, vm.Halted())

	vm = mustVM(t, "103,0,99", 5)
	assert.ErrorIs(t, vm.RunToHalt(), ErrInvalidMode)
}

func TestInvalidModeDigit(t *testing.T) {
	vm := mustVM(t, "304,0,99")
	assert.ErrorIs(t, vm.RunToHalt(), ErrInvalidMode)
}

func TestStepLimit(t *testing.T) {
	// jump-if-true 1 -> 0, forever
	image := []int64{1105, 1, 0}
	vm := New(image, nil, WithStepLimit(100))

	err := vm.RunToHalt()
	assert.ErrorIs(t, err, ErrStepLimit)
	assert.False(t, vm.Halted())
	assert.NoError(t, vm.Err())
	assert.Equal(t, uint64(100), vm.Stats().Steps)

	// The budget applies per call; the VM resumes where it stopped.
	assert.ErrorIs(t, vm.RunToHalt(), ErrStepLimit)
	assert.Equal(t, uint64(200), vm.Stats().Steps)
}

func TestMemoryLimitFault(t *testing.T) {
	vm := New([]int64{1101, 1, 1, 5000, 99}, nil, WithMemoryLimit(1000))
	err := vm.RunToHalt()
	assert.ErrorIs(t, err, ErrMemoryLimit)
	assert.True(t, vm.Halted())
}

func TestUnlimitedMemoryFaultsOnHugeAddress(t *testing.T) {
	vm := New([]int64{1101, 1, 1, 1 << 50, 99}, nil, WithMemoryLimit(0))
	err := vm.RunToHalt()
	assert.ErrorIs(t, err, ErrMemoryLimit)
	assert.True(t, vm.Halted())
	assert.Equal(t, 5, vm.MemorySize())
}

func TestFaultingInstructionIsNotCounted(t *testing.T) {
	tests := []struct {
		name    string
		program []int64
		inputs  []int64
		steps   uint64
	}{
		{"bad operand address", []int64{1, -1, 0, 0, 99}, nil, 0},
		{"input underflow", []int64{3, 0, 99}, nil, 0},
		{"fault after progress", []int64{3, 0, 1001, 0, 1, 0, 1, -1, 0, 0, 99}, []int64{4}, 2},
		{"unknown opcode", []int64{1101, 1, 1, 0, 98}, nil, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vm := New(tc.program, tc.inputs)
			assert.Error(t, vm.RunToHalt())
			assert.Equal(t, tc.steps, vm.Stats().Steps)
		})
	}
}

func TestWithLogger(t *testing.T) {
	log := commonlog.GetLogger("intcode.vm.test")
	vm := New([]int64{99}, nil, WithLogger(log))
	assert.Equal(t, log, vm.cfg.log)

	vm = New([]int64{99}, nil, WithLogger(nil))
	assert.NotNil(t, vm.cfg.log)
}

func TestTraceDoesNotChangeResult(t *testing.T) {
	image, err := ParseProgram(quine)
	require.NoError(t, err)

	vm := New(image, nil, WithTrace(true))
	require.NoError(t, vm.RunToHalt())
	assert.Equal(t, image, vm.Outputs())
}

func TestNewCopiesImage(t *testing.T) {
	image := []int64{1, 0, 0, 0, 99}
	inputs := []int64{1, 2}
	vm := New(image, inputs)
	require.NoError(t, vm.RunToHalt())

	assert.Equal(t, []int64{1, 0, 0, 0, 99}, image)
	assert.Equal(t, 2, vm.PendingInputs())

	vm.Feed(3)
	assert.Equal(t, []int64{1, 2}, inputs)
	assert.Equal(t, 3, vm.PendingInputs())
}
