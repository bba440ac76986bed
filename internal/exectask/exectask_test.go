package exectask

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDependencyGraphAcyclicAndConservativeOrder(t *testing.T) {
	tracker := NewAccessTracker()
	nodes := []NodeBundles{
		{NodeIdx: 0, ExecutionIndex: 0, Bundles: [][]Access{{{Type: AccessWrite, SlotIdx: 0, IsOutput: true}}}},
		{NodeIdx: 1, ExecutionIndex: 1, Bundles: [][]Access{{{Type: AccessRead, SlotIdx: 0, IsOutput: false}}}},
	}
	tracker.BuildFromTopology(nodes, func(nodeIdx, slotIdx int, isOutput bool) ResourceKey { return 0 })

	g := NewDependencyGraph()
	require.NoError(t, g.Build(tracker))
	require.False(t, g.HasCycle())

	from := TaskID{Node: 0, Bundle: 0}
	to := TaskID{Node: 1, Bundle: 0}
	require.True(t, g.HasDependency(from, to))
}

func TestWriteWriteConflictOrderedByExecutionIndex(t *testing.T) {
	tracker := NewAccessTracker()
	nodes := []NodeBundles{
		{NodeIdx: 0, ExecutionIndex: 0, Bundles: [][]Access{{{Type: AccessWrite, SlotIdx: 0, IsOutput: true}}}},
		{NodeIdx: 1, ExecutionIndex: 1, Bundles: [][]Access{{{Type: AccessWrite, SlotIdx: 0, IsOutput: true}}}},
	}
	tracker.BuildFromTopology(nodes, func(nodeIdx, slotIdx int, isOutput bool) ResourceKey { return 0 })

	g := NewDependencyGraph()
	require.NoError(t, g.Build(tracker))

	a := TaskID{Node: 0, Bundle: 0}
	b := TaskID{Node: 1, Bundle: 0}
	require.True(t, g.HasDependency(a, b))
	edges := g.AllEdges()
	require.Len(t, edges, 1)
	require.True(t, edges[0].IsWriteWrite)
}

func TestDiamondParallelLevels(t *testing.T) {
	tracker := NewAccessTracker()
	nodes := []NodeBundles{
		{NodeIdx: 0, ExecutionIndex: 0, Bundles: [][]Access{{
			{Type: AccessWrite, SlotIdx: 0, IsOutput: true},
			{Type: AccessWrite, SlotIdx: 1, IsOutput: true},
		}}},
		{NodeIdx: 1, ExecutionIndex: 1, Bundles: [][]Access{{{Type: AccessRead, SlotIdx: 0}}}},
		{NodeIdx: 2, ExecutionIndex: 2, Bundles: [][]Access{{{Type: AccessRead, SlotIdx: 1}}}},
	}
	resourceOf := func(nodeIdx, slotIdx int, isOutput bool) ResourceKey {
		if nodeIdx == 0 {
			return ResourceKey(slotIdx)
		}
		return ResourceKey(slotIdx)
	}
	tracker.BuildFromTopology(nodes, resourceOf)

	g := NewDependencyGraph()
	require.NoError(t, g.Build(tracker))

	b := TaskID{Node: 1, Bundle: 0}
	c := TaskID{Node: 2, Bundle: 0}
	require.True(t, g.CanParallelize(b, c))
	require.False(t, g.HasDependency(b, c))

	levels := g.GetParallelLevels()
	require.Len(t, levels, 2)
	require.ElementsMatch(t, []TaskID{b, c}, levels[1])
}

func TestExecutorRunsLevelsInBarrierOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string

	mkTask := func(name string) *Task {
		return &Task{Run: func() error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}}
	}

	levels := [][]*Task{
		{mkTask("A")},
		{mkTask("B"), mkTask("C")},
		{mkTask("D")},
	}

	exec := NewExecutor(4)
	errs, diags := exec.RunPhase(context.Background(), PhaseExecute, levels)
	require.Empty(t, errs)
	require.False(t, diags.HasErrors())
	require.Equal(t, "A", order[0])
	require.Equal(t, "D", order[3])
	require.ElementsMatch(t, []string{"B", "C"}, order[1:3])
}

func TestExecutorRecoversTaskPanicAndContinuesSiblings(t *testing.T) {
	ran := false
	levels := [][]*Task{{
		{Run: func() error { panic("boom") }},
		{Run: func() error { ran = true; return nil }},
	}}

	exec := NewExecutor(4)
	errs, diags := exec.RunPhase(context.Background(), PhaseExecute, levels)
	require.Len(t, errs, 1)
	require.True(t, diags.HasErrors())
	require.True(t, ran)
}
