// Package graphtopo implements graph construction, validation, and
// topological sort (C5): adjacency tracking, Kahn's-algorithm
// topological sort with deterministic tie-breaking, cycle detection, and
// the four Validate checks from spec §4.5.
package graphtopo

import (
	"fmt"
	"sort"

	"github.com/vixengraph/rendergraph/internal/diag"
	"github.com/vixengraph/rendergraph/internal/resource"
)

// NodeHandle identifies one node within the topology by insertion order.
type NodeHandle int

// Edge is a directed connection between a producing output slot and a
// consuming input slot.
type Edge struct {
	Src      NodeHandle
	SrcSlot  int
	Dst      NodeHandle
	DstSlot  int
}

type nodeRecord struct {
	name     string
	typeName string
	slots    []resource.Descriptor
	boundIn  map[int][]resource.ID // input slot -> bound resource ids (len>1 only for Accumulation)
}

// Topology tracks nodes and edges for one render graph.
type Topology struct {
	nodes       []nodeRecord
	nameToNode  map[string]NodeHandle
	edges       []Edge
	insertOrder map[NodeHandle]int // handle -> global insertion sequence for deterministic tie-break
	nextSeq     int
}

// New returns an empty Topology.
func New() *Topology {
	return &Topology{
		nameToNode:  map[string]NodeHandle{},
		insertOrder: map[NodeHandle]int{},
	}
}

// AddNode registers a new node instance. Fails if the name already
// exists.
func (t *Topology) AddNode(name, typeName string, slots []resource.Descriptor) (NodeHandle, error) {
	if _, exists := t.nameToNode[name]; exists {
		return 0, fmt.Errorf("node %q already exists", name)
	}
	h := NodeHandle(len(t.nodes))
	t.nodes = append(t.nodes, nodeRecord{name: name, typeName: typeName, slots: slots, boundIn: map[int][]resource.ID{}})
	t.nameToNode[name] = h
	t.insertOrder[h] = t.nextSeq
	t.nextSeq++
	return h, nil
}

// Lookup returns the handle for a node by instance name.
func (t *Topology) Lookup(name string) (NodeHandle, bool) {
	h, ok := t.nameToNode[name]
	return h, ok
}

// Name returns a node's instance name.
func (t *Topology) Name(h NodeHandle) string { return t.nodes[h].name }

// Slots returns a node's static slot descriptors.
func (t *Topology) Slots(h NodeHandle) []resource.Descriptor { return t.nodes[h].slots }

// pendingConnection is one connect call accumulated by a Batch prior to
// RegisterAll.
type pendingConnection struct {
	src, dst         NodeHandle
	srcSlot, dstSlot int
}

// Batch accumulates connections for atomic application: either every
// connection in the batch is registered, or none are (spec §4.5).
type Batch struct {
	t           *Topology
	connections []pendingConnection
}

// NewBatch starts a new connection batch against t.
func (t *Topology) NewBatch() *Batch { return &Batch{t: t} }

// Connect queues a connection for validation at RegisterAll time.
func (b *Batch) Connect(src NodeHandle, srcSlot int, dst NodeHandle, dstSlot int) {
	b.connections = append(b.connections, pendingConnection{src: src, dst: dst, srcSlot: srcSlot, dstSlot: dstSlot})
}

// RegisterAll validates every queued connection against slot type tags
// and array-mode arity, and only applies them to the topology if all
// pass. On any failure the topology is left exactly as it was before the
// call.
func (b *Batch) RegisterAll() error {
	t := b.t

	// Simulate arity bookkeeping locally so a mid-batch failure never
	// mutates t.
	localBound := map[NodeHandle]map[int]int{} // handle -> slot -> count already present+queued

	for _, c := range b.connections {
		srcSlots := t.Slots(c.src)
		dstSlots := t.Slots(c.dst)
		if c.srcSlot < 0 || c.srcSlot >= len(srcSlots) {
			return fmt.Errorf("connect %s->%s: src slot %d out of range", t.Name(c.src), t.Name(c.dst), c.srcSlot)
		}
		if c.dstSlot < 0 || c.dstSlot >= len(dstSlots) {
			return fmt.Errorf("connect %s->%s: dst slot %d out of range", t.Name(c.src), t.Name(c.dst), c.dstSlot)
		}
		srcDesc := srcSlots[c.srcSlot]
		dstDesc := dstSlots[c.dstSlot]
		if srcDesc.Tag != dstDesc.Tag {
			return fmt.Errorf("connect %s.%s->%s.%s: type tag mismatch %s != %s",
				t.Name(c.src), srcDesc.Name, t.Name(c.dst), dstDesc.Name, srcDesc.Tag, dstDesc.Tag)
		}

		if localBound[c.dst] == nil {
			localBound[c.dst] = map[int]int{}
			for slot, bound := range t.nodes[c.dst].boundIn {
				localBound[c.dst][slot] = len(bound)
			}
		}
		count := localBound[c.dst][c.dstSlot]

		switch dstDesc.ArrayMode {
		case resource.Single:
			if count >= 1 {
				return fmt.Errorf("connect %s.%s: slot is Single and already connected", t.Name(c.dst), dstDesc.Name)
			}
		case resource.Fixed:
			if count >= dstDesc.FixedCount {
				return fmt.Errorf("connect %s.%s: slot is Fixed(%d) and already full", t.Name(c.dst), dstDesc.Name, dstDesc.FixedCount)
			}
		case resource.Variadic, resource.Accumulation:
			// unbounded
		}
		localBound[c.dst][c.dstSlot] = count + 1
	}

	// Cycle pre-check: simulate adding the batch's edges and ensure the
	// resulting graph is acyclic before committing anything.
	allEdges := append(append([]Edge(nil), t.edges...), batchEdges(b.connections)...)
	if cyc := detectCycle(len(t.nodes), allEdges); cyc != nil {
		return fmt.Errorf("connecting this batch would introduce a cycle through nodes: %v", cyc)
	}

	// Commit.
	for _, c := range b.connections {
		t.edges = append(t.edges, Edge{Src: c.src, SrcSlot: c.srcSlot, Dst: c.dst, DstSlot: c.dstSlot})
		rid := resource.ID(-1) // resource binding is allocated by the orchestrator during AllocateResources
		t.nodes[c.dst].boundIn[c.dstSlot] = append(t.nodes[c.dst].boundIn[c.dstSlot], rid)
	}
	return nil
}

func batchEdges(cs []pendingConnection) []Edge {
	out := make([]Edge, 0, len(cs))
	for _, c := range cs {
		out = append(out, Edge{Src: c.src, SrcSlot: c.srcSlot, Dst: c.dst, DstSlot: c.dstSlot})
	}
	return out
}

// Edges returns a copy of the committed edge list.
func (t *Topology) Edges() []Edge { return append([]Edge(nil), t.edges...) }

// NumNodes reports how many nodes are registered.
func (t *Topology) NumNodes() int { return len(t.nodes) }

// TopologicalSort runs Kahn's algorithm; ties are broken by insertion
// order for determinism (P6, spec §4.5).
func (t *Topology) TopologicalSort() ([]NodeHandle, error) {
	n := len(t.nodes)
	indeg := make([]int, n)
	adj := make([][]NodeHandle, n)
	for _, e := range t.edges {
		adj[e.Src] = append(adj[e.Src], e.Dst)
		indeg[e.Dst]++
	}

	var ready []NodeHandle
	for h := 0; h < n; h++ {
		if indeg[h] == 0 {
			ready = append(ready, NodeHandle(h))
		}
	}
	sortByInsertion(ready, t.insertOrder)

	var order []NodeHandle
	for len(ready) > 0 {
		h := ready[0]
		ready = ready[1:]
		order = append(order, h)

		var newlyReady []NodeHandle
		for _, succ := range adj[h] {
			indeg[succ]--
			if indeg[succ] == 0 {
				newlyReady = append(newlyReady, succ)
			}
		}
		sortByInsertion(newlyReady, t.insertOrder)
		ready = mergeByInsertion(ready, newlyReady, t.insertOrder)
	}

	if len(order) != n {
		remaining := map[NodeHandle]bool{}
		for h := 0; h < n; h++ {
			remaining[NodeHandle(h)] = true
		}
		for _, h := range order {
			delete(remaining, h)
		}
		var names []string
		for h := range remaining {
			names = append(names, t.Name(h))
		}
		sort.Strings(names)
		return nil, fmt.Errorf("cycle detected among nodes: %v", names)
	}
	return order, nil
}

func sortByInsertion(hs []NodeHandle, order map[NodeHandle]int) {
	sort.Slice(hs, func(i, j int) bool { return order[hs[i]] < order[hs[j]] })
}

func mergeByInsertion(a, b []NodeHandle, order map[NodeHandle]int) []NodeHandle {
	out := append(append([]NodeHandle(nil), a...), b...)
	sortByInsertion(out, order)
	return out
}

// detectCycle reports the handles participating in a cycle, or nil if
// the graph described by edges over n nodes is acyclic.
func detectCycle(n int, edges []Edge) []NodeHandle {
	indeg := make([]int, n)
	adj := make([][]NodeHandle, n)
	for _, e := range edges {
		adj[e.Src] = append(adj[e.Src], e.Dst)
		indeg[e.Dst]++
	}
	queue := make([]NodeHandle, 0, n)
	for h := 0; h < n; h++ {
		if indeg[h] == 0 {
			queue = append(queue, NodeHandle(h))
		}
	}
	visited := 0
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		visited++
		for _, succ := range adj[h] {
			indeg[succ]--
			if indeg[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}
	if visited == n {
		return nil
	}
	var remaining []NodeHandle
	for h := 0; h < n; h++ {
		if indeg[h] > 0 {
			remaining = append(remaining, NodeHandle(h))
		}
	}
	return remaining
}

// Validate runs the four checks from spec §4.5 in order, accumulating
// every failure rather than stopping at the first.
func (t *Topology) Validate() diag.Diagnostics {
	var d diag.Diagnostics

	if _, err := t.TopologicalSort(); err != nil {
		d = d.Appendf("topology", "cycle or unreachable nodes", "%s", err)
	}

	for h, n := range t.nodes {
		for slotIdx, desc := range n.slots {
			if desc.Role != resource.RoleDependency && desc.Role != resource.RoleExecute {
				continue
			}
			isInput := slotIdx < inputCount(n.slots)
			if !isInput || desc.Nullable == resource.Optional {
				continue
			}
			if len(n.boundIn[slotIdx]) == 0 {
				d = d.Appendf(n.name, "missing required input", "slot %q (index %d) has no bound resource", desc.Name, slotIdx)
			}
		}
		_ = h
	}

	// Check 3 (tag match) is already enforced at Batch.RegisterAll time
	// and is re-verified here defensively. Check 4 (image format match)
	// is not checked by RegisterAll; this loop is the only place it runs.
	for _, e := range t.edges {
		srcDesc := t.nodes[e.Src].slots[e.SrcSlot]
		dstDesc := t.nodes[e.Dst].slots[e.DstSlot]
		if srcDesc.Tag != dstDesc.Tag {
			d = d.Appendf(t.Name(e.Dst), "type tag mismatch", "%s.%s (%s) -> %s.%s (%s)",
				t.Name(e.Src), srcDesc.Name, srcDesc.Tag, t.Name(e.Dst), dstDesc.Name, dstDesc.Tag)
		}
		if srcDesc.Image != nil && dstDesc.Image != nil {
			if !resource.ImageDescribesMatch(*dstDesc.Image, *srcDesc.Image) {
				d = d.Appendf(t.Name(e.Dst), "image format mismatch", "%s.%s format %q != %s.%s format %q",
					t.Name(e.Src), srcDesc.Name, srcDesc.Image.Format, t.Name(e.Dst), dstDesc.Name, dstDesc.Image.Format)
			}
		}
	}

	return d
}

func inputCount(slots []resource.Descriptor) int {
	// Input slots are declared before output slots by convention
	// (Instance.NumInputs); Topology only stores the flat descriptor
	// list, so we infer the split from Role==Dependency-eligible vs not
	// is insufficient — callers that need exact input/output splitting
	// should consult node.Instance.NumInputs directly. Here we treat any
	// slot that is never a write target in single-bundle defaults as an
	// input by its Mutability.
	n := 0
	for _, s := range slots {
		if s.Mutability == resource.ReadOnly {
			n++
		}
	}
	return n
}
