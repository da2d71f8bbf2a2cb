package intcode

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRestoreContinues(t *testing.T) {
	original := mustVM(t, quine)
	for i := 0; i < 3; i++ {
		require.NoError(t, original.RunToNextOutput())
	}

	restored, err := Restore(original.State())
	require.NoError(t, err)
	assert.Equal(t, original.PC(), restored.PC())
	assert.Equal(t, original.RelativeBase(), restored.RelativeBase())
	assert.Equal(t, original.Stats(), restored.Stats())

	require.NoError(t, original.RunToHalt())
	require.NoError(t, restored.RunToHalt())

	if diff := cmp.Diff(original.Outputs(), restored.Outputs()); diff != "" {
		t.Errorf("outputs diverged after restore (-original +restored):\n%s", diff)
	}
	if diff := cmp.Diff(original.Memory(), restored.Memory()); diff != "" {
		t.Errorf("memory diverged after restore (-original +restored):\n%s", diff)
	}
}

func TestStateRestoreInputCursor(t *testing.T) {
	// in [0]; out [0]; in [0]; out [0]
	vm := mustVM(t, "3,0,4,0,3,0,4,0,99", 11, 22)
	require.NoError(t, vm.RunToNextOutput())

	s := vm.State()
	assert.Equal(t, 1, s.InputPos)
	assert.Equal(t, []int64{11, 22}, s.Inputs)

	restored, err := Restore(s)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.PendingInputs())
	require.NoError(t, restored.RunToHalt())
	assert.Equal(t, []int64{11, 22}, restored.Outputs())
}

func TestStateIsDetached(t *testing.T) {
	vm := mustVM(t, "1,0,0,0,99")
	s := vm.State()
	s.Memory[0] = 2

	v, err := vm.Peek(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestRestoreHalted(t *testing.T) {
	vm := mustVM(t, "104,5,99")
	require.NoError(t, vm.RunToHalt())

	restored, err := Restore(vm.State())
	require.NoError(t, err)
	assert.True(t, restored.Halted())
	assert.ErrorIs(t, restored.RunToHalt(), ErrHalted)
	assert.Equal(t, []int64{5}, restored.Outputs())
}

func TestRestoreRejectsBadState(t *testing.T) {
	_, err := Restore(State{Memory: []int64{99}, PC: -1})
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = Restore(State{Memory: []int64{99}, Inputs: []int64{1}, InputPos: 2})
	assert.Error(t, err)

	_, err = Restore(State{Memory: make([]int64, 10)}, WithMemoryLimit(5))
	assert.ErrorIs(t, err, ErrMemoryLimit)
}
