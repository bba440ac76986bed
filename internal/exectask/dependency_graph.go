package exectask

import (
	"fmt"
	"sort"

	"github.com/vixengraph/rendergraph/internal/collections"
)

// Edge is a dependency edge between two virtual tasks, ported from
// TaskDependencyEdge.
type Edge struct {
	From, To    TaskID
	Resource    ResourceKey
	IsWriteWrite bool
}

// DependencyGraph is the DAG of dependencies between virtual tasks,
// ported from TaskDependencyGraph. Build once, then query.
type DependencyGraph struct {
	deps    map[TaskID][]TaskID // task -> tasks it depends on
	adj     map[TaskID][]TaskID // task -> tasks depending on it
	edges   []Edge
	allTasks map[TaskID]bool
}

// NewDependencyGraph returns an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		deps:     map[TaskID][]TaskID{},
		adj:      map[TaskID][]TaskID{},
		allTasks: map[TaskID]bool{},
	}
}

// Build derives dependency edges from every conflicting access pair
// recorded by tracker, ordering write-write conflicts by node execution
// index and flagging read-before-write node-order mistakes as an error
// rather than silently misordering them (spec §4.8).
func (g *DependencyGraph) Build(tracker *AccessTracker) error {
	for _, res := range tracker.Resources() {
		accesses := tracker.AccessesTo(res)
		for i := 0; i < len(accesses); i++ {
			for j := i + 1; j < len(accesses); j++ {
				a, b := accesses[i], accesses[j]
				if a.Task == b.Task {
					continue
				}
				if !HasConflict(a, b) {
					continue
				}
				if err := g.orderConflict(tracker, res, a, b); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (g *DependencyGraph) orderConflict(tracker *AccessTracker, res ResourceKey, a, b Access) error {
	aWrite, bWrite := a.Type.isWrite(), b.Type.isWrite()
	aIdx := tracker.ExecutionIndex(a.Task.Node)
	bIdx := tracker.ExecutionIndex(b.Task.Node)

	switch {
	case aWrite && bWrite:
		from, to := a.Task, b.Task
		if bIdx < aIdx || (bIdx == aIdx && taskLess(b.Task, a.Task)) {
			from, to = b.Task, a.Task
		}
		return g.addEdge(from, to, res, true)

	case aWrite && !bWrite:
		if bIdx < aIdx {
			return fmt.Errorf("exectask: read-before-write detected: reader %v (node order %d) precedes writer %v (node order %d) on resource %d",
				b.Task, bIdx, a.Task, aIdx, res)
		}
		return g.addEdge(a.Task, b.Task, res, false)

	case !aWrite && bWrite:
		if aIdx < bIdx {
			return fmt.Errorf("exectask: read-before-write detected: reader %v (node order %d) precedes writer %v (node order %d) on resource %d",
				a.Task, aIdx, b.Task, bIdx, res)
		}
		return g.addEdge(b.Task, a.Task, res, false)
	}
	return nil
}

func taskLess(a, b TaskID) bool {
	if a.Node != b.Node {
		return a.Node < b.Node
	}
	return a.Bundle < b.Bundle
}

func (g *DependencyGraph) addEdge(from, to TaskID, res ResourceKey, isWriteWrite bool) error {
	g.allTasks[from] = true
	g.allTasks[to] = true

	for _, existing := range g.deps[to] {
		if existing == from {
			return nil // already recorded
		}
	}

	if g.WouldCreateCycle(from, to) {
		return fmt.Errorf("exectask: adding edge %v -> %v would create a cycle", from, to)
	}

	g.deps[to] = append(g.deps[to], from)
	g.adj[from] = append(g.adj[from], to)
	g.edges = append(g.edges, Edge{From: from, To: to, Resource: res, IsWriteWrite: isWriteWrite})
	return nil
}

// WouldCreateCycle reports whether adding from->to would create a cycle,
// i.e. whether a path to->...->from already exists.
func (g *DependencyGraph) WouldCreateCycle(from, to TaskID) bool {
	if from == to {
		return true
	}
	return g.hasPath(to, from)
}

func (g *DependencyGraph) hasPath(from, to TaskID) bool {
	visited := collections.Set[TaskID]{}
	stack := []TaskID{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if visited.Has(n) {
			continue
		}
		visited.Add(n)
		stack = append(stack, g.adj[n]...)
	}
	return false
}

// GetDependencies returns the tasks that must complete before task.
func (g *DependencyGraph) GetDependencies(task TaskID) []TaskID {
	return append([]TaskID(nil), g.deps[task]...)
}

// GetDependents returns the tasks depending on task.
func (g *DependencyGraph) GetDependents(task TaskID) []TaskID {
	return append([]TaskID(nil), g.adj[task]...)
}

// HasDependency reports whether a must complete before b directly.
func (g *DependencyGraph) HasDependency(a, b TaskID) bool {
	for _, d := range g.deps[b] {
		if d == a {
			return true
		}
	}
	return false
}

// CanParallelize reports whether there is no dependency path in either
// direction between a and b.
func (g *DependencyGraph) CanParallelize(a, b TaskID) bool {
	if a == b {
		return false
	}
	return !g.hasPath(a, b) && !g.hasPath(b, a)
}

// AllEdges returns every recorded edge.
func (g *DependencyGraph) AllEdges() []Edge { return append([]Edge(nil), g.edges...) }

// HasCycle reports whether the graph contains a cycle; should never be
// true for a graph built exclusively through Build/addEdge, since
// WouldCreateCycle refuses cycle-introducing edges up front.
func (g *DependencyGraph) HasCycle() bool {
	_, err := g.TopologicalSort()
	return err != nil
}

// TopologicalSort runs Kahn's algorithm, breaking ties by TaskID (node
// index, then bundle index) for determinism.
func (g *DependencyGraph) TopologicalSort() ([]TaskID, error) {
	indeg := map[TaskID]int{}
	for t := range g.allTasks {
		indeg[t] = len(g.deps[t])
	}

	var ready []TaskID
	for t, d := range indeg {
		if d == 0 {
			ready = append(ready, t)
		}
	}
	sortTasks(ready)

	var order []TaskID
	for len(ready) > 0 {
		t := ready[0]
		ready = ready[1:]
		order = append(order, t)

		var newlyReady []TaskID
		for _, succ := range g.adj[t] {
			indeg[succ]--
			if indeg[succ] == 0 {
				newlyReady = append(newlyReady, succ)
			}
		}
		sortTasks(newlyReady)
		ready = append(ready, newlyReady...)
		sortTasks(ready)
	}

	if len(order) != len(g.allTasks) {
		return nil, fmt.Errorf("exectask: dependency graph has a cycle")
	}
	return order, nil
}

func sortTasks(ts []TaskID) {
	sort.Slice(ts, func(i, j int) bool { return taskLess(ts[i], ts[j]) })
}

// GetReadyTasks returns every task with zero dependencies.
func (g *DependencyGraph) GetReadyTasks() []TaskID {
	var out []TaskID
	for t := range g.allTasks {
		if len(g.deps[t]) == 0 {
			out = append(out, t)
		}
	}
	sortTasks(out)
	return out
}

// GetParallelLevels groups tasks into BFS levels where level(v) = 1 +
// max(level(u)) over predecessors u; tasks sharing a level have no path
// between them and may run concurrently.
func (g *DependencyGraph) GetParallelLevels() [][]TaskID {
	level := map[TaskID]int{}
	order, err := g.TopologicalSort()
	if err != nil {
		return nil
	}
	maxLevel := 0
	for _, t := range order {
		lvl := 0
		for _, dep := range g.deps[t] {
			if level[dep]+1 > lvl {
				lvl = level[dep] + 1
			}
		}
		level[t] = lvl
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}

	levels := make([][]TaskID, maxLevel+1)
	for _, t := range order {
		levels[level[t]] = append(levels[level[t]], t)
	}
	for _, lvl := range levels {
		sortTasks(lvl)
	}
	return levels
}

// GetCriticalPathLength returns the longest dependency chain length.
func (g *DependencyGraph) GetCriticalPathLength() int {
	levels := g.GetParallelLevels()
	return len(levels)
}

// GetMaxParallelism returns the widest level's size.
func (g *DependencyGraph) GetMaxParallelism() int {
	max := 0
	for _, lvl := range g.GetParallelLevels() {
		if len(lvl) > max {
			max = len(lvl)
		}
	}
	return max
}
