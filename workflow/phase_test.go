package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		from, to Phase
		ok       bool
	}{
		{PhaseIdle, PhaseProbing, true},
		{PhaseIdle, PhaseRendering, false},
		{PhaseProbing, PhaseReconciling, true},
		{PhaseProbing, PhaseExecuting, false},
		{PhaseReconciling, PhaseRendering, true},
		{PhaseReconciling, PhaseExecuting, true},
		{PhaseReconciling, PhaseDone, true},
		{PhaseRendering, PhaseExecuting, true},
		{PhaseRendering, PhaseVerifying, false},
		{PhaseExecuting, PhaseVerifying, true},
		{PhaseExecuting, PhaseDone, false},
		{PhaseVerifying, PhaseDone, true},
		{PhaseVerifying, PhaseAborted, true},
		{PhaseDone, PhaseAborted, false},
		{PhaseAborted, PhaseProbing, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanEnter(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestEnter(t *testing.T) {
	w := &Workflow{}
	require.NoError(t, w.enter(PhaseProbing))
	require.ErrorIs(t, w.enter(PhaseVerifying), ErrBadTransition)
	assert.Equal(t, PhaseProbing, w.Phase())
	require.NoError(t, w.enter(PhaseAborted))
	assert.True(t, w.Phase().Terminal())
	assert.Equal(t, "idle", PhaseIdle.String())
}
