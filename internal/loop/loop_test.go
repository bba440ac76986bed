package loop

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoopReferencePointerStableAcrossUpdates(t *testing.T) {
	m := New()
	id := m.RegisterLoop(Config{Name: "physics", FixedTimestep: 1.0 / 60.0, MaxCatchupTime: 0.25})

	ref1 := m.GetLoopReference(id)
	for i := 0; i < 100; i++ {
		m.RegisterLoop(Config{Name: "noise"})
		m.UpdateLoops(0.016)
		m.SetCurrentFrame(uint64(i))
	}
	ref2 := m.GetLoopReference(id)
	require.Same(t, ref1, ref2)
}

func TestMultipleStepsCatchupSingleStepByDefault(t *testing.T) {
	m := New()
	id := m.RegisterLoop(Config{Name: "physics", FixedTimestep: 1.0 / 60.0, CatchupMode: MultipleSteps, MaxCatchupTime: 1.0})

	m.UpdateLoops(0.100)
	ref := m.GetLoopReference(id)
	require.True(t, ref.ShouldExecuteThisFrame)
	require.InDelta(t, 1.0/60.0, ref.DeltaTime, 1e-9)
	require.Greater(t, m.Debt(id), 0.0)
}

func TestVariableRateLoopAlwaysExecutes(t *testing.T) {
	m := New()
	id := m.RegisterLoop(Config{Name: "render", FixedTimestep: 0, MaxCatchupTime: 1.0})
	m.UpdateLoops(0.033)
	ref := m.GetLoopReference(id)
	require.True(t, ref.ShouldExecuteThisFrame)
	require.InDelta(t, 0.033, ref.DeltaTime, 1e-9)
}

func TestFireAndForgetDrainsWholeAccumulator(t *testing.T) {
	m := New()
	id := m.RegisterLoop(Config{Name: "ui", FixedTimestep: 1.0 / 30.0, CatchupMode: FireAndForget, MaxCatchupTime: 1.0})
	m.UpdateLoops(0.200)
	ref := m.GetLoopReference(id)
	require.True(t, ref.ShouldExecuteThisFrame)
	require.InDelta(t, 0.200, ref.DeltaTime, 1e-9)
	require.Equal(t, 0.0, m.Debt(id))
}
