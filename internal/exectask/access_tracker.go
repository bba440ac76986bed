package exectask

// AccessTracker walks every node's declared bundles and records, per
// resource, the set of accesses touching it, ported from
// VirtualResourceAccessTracker.
type AccessTracker struct {
	byResource map[ResourceKey][]Access
	byTask     map[TaskID][]Access
	execIndex  map[int]int // node index -> execution order index
}

// NewAccessTracker returns an empty tracker.
func NewAccessTracker() *AccessTracker {
	return &AccessTracker{
		byResource: map[ResourceKey][]Access{},
		byTask:     map[TaskID][]Access{},
		execIndex:  map[int]int{},
	}
}

// BuildFromTopology records every (task, resource) access declared by
// the given nodes' bundles. resourceOf maps a node's bundle access to
// the concrete resource it touches.
func (a *AccessTracker) BuildFromTopology(nodes []NodeBundles, resourceOf func(nodeIdx, slotIdx int, isOutput bool) ResourceKey) {
	for _, n := range nodes {
		a.execIndex[n.NodeIdx] = n.ExecutionIndex
		for bundleIdx, accesses := range n.Bundles {
			taskID := TaskID{Node: n.NodeIdx, Bundle: bundleIdx}
			for _, acc := range accesses {
				acc.Task = taskID
				res := resourceOf(n.NodeIdx, acc.SlotIdx, acc.IsOutput)
				a.byResource[res] = append(a.byResource[res], acc)
				a.byTask[taskID] = append(a.byTask[taskID], acc)
			}
		}
	}
}

// AccessesTo returns every recorded access to a resource.
func (a *AccessTracker) AccessesTo(res ResourceKey) []Access {
	return a.byResource[res]
}

// AccessesByTask returns every recorded access made by a task.
func (a *AccessTracker) AccessesByTask(id TaskID) []Access {
	return a.byTask[id]
}

// Resources returns every resource key with at least one recorded
// access.
func (a *AccessTracker) Resources() []ResourceKey {
	out := make([]ResourceKey, 0, len(a.byResource))
	for k := range a.byResource {
		out = append(out, k)
	}
	return out
}

// ExecutionIndex returns the node execution order index recorded for
// nodeIdx.
func (a *AccessTracker) ExecutionIndex(nodeIdx int) int { return a.execIndex[nodeIdx] }

// HasConflict reports whether two accesses to the same resource
// conflict: true iff at least one is a write (spec §4.8's conflict
// rule). Two pure readers never conflict.
func HasConflict(a, b Access) bool {
	return a.Type.isWrite() || b.Type.isWrite()
}
