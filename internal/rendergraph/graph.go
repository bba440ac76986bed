// Package rendergraph implements the render graph orchestrator (C6):
// the facade tying together node types, topology, resources, the
// scheduler, task profiles, capacity control, and the loop manager into
// one Compile/RenderFrame lifecycle, generalizing the teacher's
// compiled-graph execution driver (execgraph/compiled.go) from a single
// linear operation list to a phase-barrier, dependency-ordered
// render-graph runtime.
package rendergraph

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/vixengraph/rendergraph/internal/capacity"
	"github.com/vixengraph/rendergraph/internal/collections"
	"github.com/vixengraph/rendergraph/internal/diag"
	"github.com/vixengraph/rendergraph/internal/eventbus"
	"github.com/vixengraph/rendergraph/internal/exectask"
	"github.com/vixengraph/rendergraph/internal/graphtopo"
	"github.com/vixengraph/rendergraph/internal/logging"
	"github.com/vixengraph/rendergraph/internal/loop"
	"github.com/vixengraph/rendergraph/internal/node"
	"github.com/vixengraph/rendergraph/internal/nodetype"
	"github.com/vixengraph/rendergraph/internal/present"
	"github.com/vixengraph/rendergraph/internal/resource"
	"github.com/vixengraph/rendergraph/internal/taskprofile"
)

var tracer = otel.Tracer("rendergraph")

// Config bundles every collaborator a Graph needs at construction time.
type Config struct {
	Logger   *logging.Logger
	Bus      *eventbus.Bus
	Device   node.DeviceLike
	Types    *nodetype.Registry
	Profiles *taskprofile.Registry
	Capacity *capacity.Tracker
	Loops    *loop.Manager
	PoolSize int
}

// Graph is the render graph orchestrator: it owns the topology, the
// resource arena, every node instance, and the compiled execution
// schedule, and drives them through Compile and RenderFrame.
type Graph struct {
	mu sync.Mutex

	logger   *logging.Logger
	bus      *eventbus.Bus
	device   node.DeviceLike
	types    *nodetype.Registry
	profiles *taskprofile.Registry
	capacity *capacity.Tracker
	loops    *loop.Manager
	executor *exectask.Executor

	arena *resource.Arena
	topo  *graphtopo.Topology

	instances map[string]*node.Instance
	handles   map[string]graphtopo.NodeHandle
	batch     *graphtopo.Batch

	order     []string // execution order from the last successful topo-sort
	depGraph  *exectask.DependencyGraph
	tasksByID map[exectask.TaskID]*exectask.Task
	levels    [][]*exectask.Task

	cleanup *CleanupStack

	compiledOnce bool
}

// New returns an empty Graph wired to cfg's collaborators.
func New(cfg Config) *Graph {
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}
	return &Graph{
		logger:    cfg.Logger,
		bus:       cfg.Bus,
		device:    cfg.Device,
		types:     cfg.Types,
		profiles:  cfg.Profiles,
		capacity:  cfg.Capacity,
		loops:     cfg.Loops,
		executor:  exectask.NewExecutor(cfg.PoolSize),
		arena:     resource.NewArena(64),
		topo:      graphtopo.New(),
		instances: map[string]*node.Instance{},
		handles:   map[string]graphtopo.NodeHandle{},
		cleanup:   NewCleanupStack(),
	}
}

// Logger implements node.GraphAccessor.
func (g *Graph) Logger() *logging.Logger { return g.logger }

// Bus implements node.GraphAccessor.
func (g *Graph) Bus() *eventbus.Bus { return g.bus }

// CleanupStack exposes the graph's teardown stack for collaborators
// that register their own dependent cleanup (e.g. a presenter's
// swapchain images).
func (g *Graph) CleanupStack() *CleanupStack { return g.cleanup }

// Topology exposes the graph's node/edge wiring for introspection, such
// as rendering a Graphviz dump of the current structure.
func (g *Graph) Topology() *graphtopo.Topology { return g.topo }

// OutputResource returns the arena resource bound to instanceName's
// outSlot-th output, for introspection (debug dumps, tests). outSlot is
// relative to the node's output slots, i.e. 0 is the first output.
func (g *Graph) OutputResource(instanceName string, outSlot int) (*resource.Resource, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	inst, ok := g.instances[instanceName]
	if !ok || outSlot < 0 || outSlot >= len(inst.OutputRefs) || len(inst.OutputRefs[outSlot]) == 0 {
		return nil, false
	}
	return g.arena.Get(inst.OutputRefs[outSlot][0]), true
}

// AddNode instantiates typeName as instanceName with the given
// parameters and registers it in the topology. Must be called before
// the first Compile.
func (g *Graph) AddNode(typeName, instanceName string, params map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.instances[instanceName]; exists {
		return fmt.Errorf("rendergraph: instance %q already exists", instanceName)
	}
	n, err := g.types.CreateInstance(typeName, instanceName)
	if err != nil {
		return err
	}
	info, _ := g.types.ByName(typeName)

	ps := node.NewParamSet()
	for k, v := range params {
		ps.Set(k, v)
	}

	handle, err := g.topo.AddNode(instanceName, typeName, n.Slots())
	if err != nil {
		return err
	}

	inst := &node.Instance{
		Name:       instanceName,
		TypeName:   typeName,
		TypeID:     info.TypeID,
		Node:       n,
		State:      node.Created,
		Params:     ps,
		Logger:     g.logger.Named(instanceName),
		InputRefs:  make([][]resource.ID, n.NumInputs()),
		OutputRefs: make([][]resource.ID, len(n.Slots())-n.NumInputs()),
	}
	g.instances[instanceName] = inst
	g.handles[instanceName] = handle
	return nil
}

// Connect queues a connection from srcName's output slot to dstName's
// input slot. All queued connections apply atomically the next time
// Compile runs, before it runs Validate.
func (g *Graph) Connect(srcName string, srcSlot int, dstName string, dstSlot int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	srcH, ok := g.handles[srcName]
	if !ok {
		return fmt.Errorf("rendergraph: unknown node %q", srcName)
	}
	dstH, ok := g.handles[dstName]
	if !ok {
		return fmt.Errorf("rendergraph: unknown node %q", dstName)
	}
	if g.batch == nil {
		g.batch = g.topo.NewBatch()
	}
	g.batch.Connect(srcH, srcSlot, dstH, dstSlot)
	g.instances[dstName].Dependencies = append(g.instances[dstName].Dependencies, srcName)
	return nil
}

// Instance returns the named node's runtime record.
func (g *Graph) Instance(name string) (*node.Instance, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	inst, ok := g.instances[name]
	return inst, ok
}

// Compile runs Validate -> AnalyzeDependencies -> AllocateResources ->
// GeneratePipelines -> BuildExecutionOrder, each phase wrapped in an
// OpenTelemetry span, per spec §4.6.
func (g *Graph) Compile(ctx context.Context) diag.Diagnostics {
	g.mu.Lock()
	defer g.mu.Unlock()

	var d diag.Diagnostics

	if g.batch != nil {
		if err := g.batch.RegisterAll(); err != nil {
			return diag.FromError("rendergraph", "failed to register connections", err)
		}
		g.batch = nil
	}

	{
		_, span := tracer.Start(ctx, "Compile.Validate")
		d = d.Append(g.topo.Validate()...)
		span.End()
		if d.HasErrors() {
			return d
		}
	}

	var order []graphtopo.NodeHandle
	{
		_, span := tracer.Start(ctx, "Compile.AnalyzeDependencies")
		var err error
		order, err = g.topo.TopologicalSort()
		if err != nil {
			span.End()
			return d.Appendf("rendergraph", "topological sort failed", "%s", err)
		}
		g.order = make([]string, len(order))
		for i, h := range order {
			g.order[i] = g.topo.Name(h)
			g.instances[g.order[i]].ExecutionIndex = i
		}
		span.End()
	}

	{
		_, span := tracer.Start(ctx, "Compile.AllocateResources")
		g.allocateResources()
		span.End()
	}

	{
		_, span := tracer.Start(ctx, "Compile.GeneratePipelines")
		d = d.Append(g.generatePipelines()...)
		span.End()
	}

	{
		_, span := tracer.Start(ctx, "Compile.BuildExecutionOrder")
		if err := g.buildExecutionOrder(); err != nil {
			d = d.Appendf("rendergraph", "build execution order", "%s", err)
		}
		span.End()
	}

	g.compiledOnce = true
	return d
}

// allocateResources creates one arena resource per declared slot that
// does not already have one, then binds every topology edge's
// destination input to its source output's resource ID.
func (g *Graph) allocateResources() {
	for _, name := range g.order {
		inst := g.instances[name]
		slots := inst.Node.Slots()
		numIn := inst.Node.NumInputs()
		for i, desc := range slots {
			lifetime := resource.Transient
			if desc.Scope == resource.GraphLevel {
				lifetime = resource.Persistent
			}
			if i < numIn {
				if len(inst.InputRefs[i]) == 0 && desc.Nullable == resource.Optional {
					continue // optional, unconnected input: no resource needed yet
				}
				continue // bound below from the producing edge
			}
			outIdx := i - numIn
			if len(inst.OutputRefs[outIdx]) == 0 {
				id := g.arena.Create(desc.Tag, lifetime)
				inst.OutputRefs[outIdx] = []resource.ID{id}
			}
		}
	}

	for _, e := range g.topo.Edges() {
		srcName, dstName := g.topo.Name(e.Src), g.topo.Name(e.Dst)
		srcInst, dstInst := g.instances[srcName], g.instances[dstName]
		outIdx := e.SrcSlot - srcInst.Node.NumInputs()
		if outIdx < 0 || outIdx >= len(srcInst.OutputRefs) || len(srcInst.OutputRefs[outIdx]) == 0 {
			continue
		}
		id := srcInst.OutputRefs[outIdx][0]
		dstInst.InputRefs[e.DstSlot] = append(dstInst.InputRefs[e.DstSlot], id)
	}
}

// generatePipelines runs Setup once per never-setup node, then Compile
// for every node in execution order; a failing node is marked Error and
// every node depending on it (directly or transitively) is marked Dirty
// rather than aborting the whole compile.
func (g *Graph) generatePipelines() diag.Diagnostics {
	var d diag.Diagnostics
	tainted := collections.Set[string]{}

	for _, name := range g.order {
		inst := g.instances[name]

		for _, dep := range inst.Dependencies {
			if tainted.Has(dep) {
				tainted.Add(name)
			}
		}
		if tainted.Has(name) {
			inst.State = node.Dirty
			continue
		}

		if inst.State == node.Created {
			setupCtx := &phaseContext{graph: g, inst: inst}
			sd := inst.Node.Setup(setupCtx)
			d = d.Append(sd...)
			if sd.HasErrors() {
				inst.State = node.Error
				tainted.Add(name)
				continue
			}
			inst.State = node.Setup
		}

		compileCtx := &phaseContext{graph: g, inst: inst, allowedRole: resource.RoleDependency, canWrite: true}
		cd := inst.Node.Compile(compileCtx)
		d = d.Append(cd...)
		if cd.HasErrors() {
			inst.State = node.Error
			tainted.Add(name)
			continue
		}
		inst.State = node.Compiled
	}
	return d
}

// buildExecutionOrder constructs the virtual-task access tracker and
// dependency graph from the compiled node set and computes the
// conflict-respecting parallel levels the executor will run.
func (g *Graph) buildExecutionOrder() error {
	tracker := exectask.NewAccessTracker()

	nameByIdx := make([]string, len(g.order))
	for i, name := range g.order {
		nameByIdx[i] = name
	}

	var nodeBundles []exectask.NodeBundles
	for i, name := range g.order {
		inst := g.instances[name]
		bundles := inst.Bundles()
		bundleAccesses := make([][]exectask.Access, len(bundles))
		for bi, b := range bundles {
			var accesses []exectask.Access
			for _, slot := range b.Read {
				accesses = append(accesses, exectask.Access{Type: exectask.AccessRead, SlotIdx: slot, IsOutput: false})
			}
			for _, slot := range b.Write {
				accesses = append(accesses, exectask.Access{Type: exectask.AccessWrite, SlotIdx: slot, IsOutput: true})
			}
			bundleAccesses[bi] = accesses
		}
		nodeBundles = append(nodeBundles, exectask.NodeBundles{NodeIdx: i, ExecutionIndex: i, Bundles: bundleAccesses})
	}

	tracker.BuildFromTopology(nodeBundles, func(nodeIdx, slotIdx int, isOutput bool) resource.ID {
		inst := g.instances[nameByIdx[nodeIdx]]
		numIn := inst.Node.NumInputs()
		if isOutput {
			outIdx := slotIdx - numIn
			if outIdx >= 0 && outIdx < len(inst.OutputRefs) && len(inst.OutputRefs[outIdx]) > 0 {
				return inst.OutputRefs[outIdx][0]
			}
			return resource.ID(-1)
		}
		if slotIdx < len(inst.InputRefs) && len(inst.InputRefs[slotIdx]) > 0 {
			return inst.InputRefs[slotIdx][0]
		}
		return resource.ID(-1)
	})

	dg := exectask.NewDependencyGraph()
	if err := dg.Build(tracker); err != nil {
		return err
	}
	g.depGraph = dg

	tasksByID := map[exectask.TaskID]*exectask.Task{}
	for i, name := range g.order {
		inst := g.instances[name]
		bundles := inst.Bundles()
		for bi := range bundles {
			id := exectask.TaskID{Node: i, Bundle: bi}
			instRef := inst
			execCtx := &phaseContext{graph: g, inst: instRef, allowedRole: resource.RoleExecute, canWrite: true}
			tasksByID[id] = &exectask.Task{
				ID:                id,
				NodeExecutionIdx:  i,
				NonParallelizable: instRef.Node.NonParallelizable(),
				Run: func() error {
					diags := instRef.Node.Execute(execCtx)
					return diags.Err()
				},
			}
		}
	}
	g.tasksByID = tasksByID

	rawLevels := dg.GetParallelLevels()
	g.levels = exectask.LevelsWithSerializedNonParallelizable(rawLevels, tasksByID)
	return nil
}

// RenderFrame runs ProcessEvents -> RecompileDirtyNodes -> UpdateTime ->
// Execute -> present-status handling, per spec §4.6.
func (g *Graph) RenderFrame(ctx context.Context, frameTime float64, presenter present.Presenter) diag.Diagnostics {
	g.mu.Lock()
	defer g.mu.Unlock()

	var d diag.Diagnostics

	{
		_, span := tracer.Start(ctx, "RenderFrame.ProcessEvents")
		g.bus.ProcessMessages()
		span.End()
	}

	{
		_, span := tracer.Start(ctx, "RenderFrame.RecompileDirtyNodes")
		if g.anyDirty() {
			d = d.Append(g.generatePipelines()...)
			if err := g.buildExecutionOrder(); err != nil {
				d = d.Appendf("rendergraph", "rebuild execution order", "%s", err)
			}
		}
		span.End()
	}

	if g.loops != nil {
		_, span := tracer.Start(ctx, "RenderFrame.UpdateTime")
		g.loops.UpdateLoops(frameTime)
		span.End()
	}

	{
		_, span := tracer.Start(ctx, "RenderFrame.Execute")
		g.arena.ResetFrame()
		errs, execDiags := g.executor.RunPhase(ctx, exectask.PhaseExecute, g.levels)
		d = d.Append(execDiags...)
		for _, e := range errs {
			g.logger.Warn("task failed", "node", e.Task.Node, "bundle", e.Task.Bundle, "phase", e.Phase.String(), "error", e.Message)
		}
		if g.profiles != nil {
			g.profiles.ProcessAllSamples()
		}
		if g.capacity != nil {
			g.capacity.Evaluate()
		}
		span.End()
	}

	if presenter != nil {
		d = d.Append(g.handlePresent(presenter)...)
	}

	return d
}

func (g *Graph) anyDirty() bool {
	for _, inst := range g.instances {
		if inst.State == node.Dirty {
			return true
		}
	}
	return false
}

// handlePresent drives one acquire/submit/present cycle and, on a
// suboptimal or out-of-date result, publishes a WindowResizedMessage and
// marks every Compiled, Ready or Complete node Dirty, so the next
// RenderFrame recompiles the nodes in place rather than tearing down the
// graph. The recompile is not limited to the nodes the resize affects.
func (g *Graph) handlePresent(presenter present.Presenter) diag.Diagnostics {
	var d diag.Diagnostics

	imageIdx, status, err := presenter.AcquireImage()
	if err != nil {
		return d.Appendf("present", "acquire image failed", "%s", err)
	}
	if status != present.StatusSuccess {
		g.publishResize()
		return d
	}

	if err := presenter.Submit(imageIdx); err != nil {
		return d.Appendf("present", "submit failed", "%s", err)
	}

	status, err = presenter.PresentImage(imageIdx)
	if err != nil {
		return d.Appendf("present", "present failed", "%s", err)
	}
	if status != present.StatusSuccess {
		g.publishResize()
	}
	return d
}

func (g *Graph) publishResize() {
	g.bus.Publish(eventbus.BaseMessage{
		Sender: 0,
		Type:   eventbus.TypeWindowResized,
		Cat:    eventbus.CategoryWindowResize,
	})
	for name, inst := range g.instances {
		if inst.State == node.Compiled || inst.State == node.Ready || inst.State == node.Complete {
			inst.State = node.Dirty
		}
		_ = name
	}
}

// Shutdown runs the cleanup stack and releases every node instance's
// type-registry slot.
func (g *Graph) Shutdown() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, inst := range g.instances {
		cleanupCtx := &phaseContext{graph: g, inst: inst}
		inst.Node.Cleanup(cleanupCtx)
		g.types.ReleaseInstance(inst.TypeName)
	}
	return g.cleanup.Clear()
}
