// Package node implements the typed node contract (C4): the four-phase
// lifecycle, phase-specific context accessors, parameters, and the
// bundle mechanism nodes use to expose intra-node parallelism.
package node

import (
	"github.com/vixengraph/rendergraph/internal/diag"
	"github.com/vixengraph/rendergraph/internal/eventbus"
	"github.com/vixengraph/rendergraph/internal/logging"
	"github.com/vixengraph/rendergraph/internal/resource"
)

// State is the node lifecycle state machine (data model §3).
type State int

const (
	Created State = iota
	Setup
	Compiled
	Ready
	Executing
	Complete
	Dirty
	Error
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Setup:
		return "Setup"
	case Compiled:
		return "Compiled"
	case Ready:
		return "Ready"
	case Executing:
		return "Executing"
	case Complete:
		return "Complete"
	case Dirty:
		return "Dirty"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// BundleSpec declares which slot indices one bundle reads and writes.
// VirtualTaskId = (node, bundle index) per the data model.
type BundleSpec struct {
	Read  []int
	Write []int
}

// DeviceLike is the minimal device/cache-manager surface a node needs;
// the concrete implementation lives outside the core (spec §6).
type DeviceLike interface {
	GetOrCreate(contentHash uint64, create func() (any, error)) (any, error)
}

// GraphAccessor is the seam a node uses to reach back into its owning
// graph without holding a concrete *rendergraph.Graph (would create an
// import cycle); implemented by internal/rendergraph.Graph.
type GraphAccessor interface {
	Logger() *logging.Logger
	Bus() *eventbus.Bus
}

// Context is the common surface of every phase-specific accessor.
type Context interface {
	Param(name string) (any, bool)
	Bus() *eventbus.Bus
	OwningGraph() GraphAccessor
	Device() DeviceLike
}

// SetupContext is passed to Setup. It deliberately has no In/Out: Setup
// MUST NOT read inputs (spec §4.4).
type SetupContext interface {
	Context
}

// CompileContext is passed to Compile; In reads only Dependency-role
// slots.
type CompileContext interface {
	Context
	In(slot int) (resource.Resource, error)
	Out(slot int, set func(*resource.Resource) error) error
}

// ExecuteContext is passed to Execute; In reads only Execute-role slots.
type ExecuteContext interface {
	Context
	In(slot int) (resource.Resource, error)
	Out(slot int, set func(*resource.Resource) error) error
}

// CleanupContext is passed to Cleanup.
type CleanupContext interface {
	Context
}

// Node is the typed contract every node type implements.
type Node interface {
	Setup(ctx SetupContext) diag.Diagnostics
	Compile(ctx CompileContext) diag.Diagnostics
	Execute(ctx ExecuteContext) diag.Diagnostics
	Cleanup(ctx CleanupContext)

	// Slots returns this node's static slot descriptors, in declared
	// order, input slots first then output slots (the split point is
	// recorded by NumInputs).
	Slots() []resource.Descriptor
	NumInputs() int

	// GetBundles returns the node's bundles; a node with one bundle
	// covering the full slot set may return nil to use the default.
	GetBundles() []BundleSpec

	// NonParallelizable opts a node's tasks out of running alongside
	// any other task at the same parallel level (spec §4.8).
	NonParallelizable() bool
}

// BaseNode is an embeddable helper supplying the default bundle and
// parallelizability behavior so concrete node types need not repeat it.
type BaseNode struct{}

func (BaseNode) GetBundles() []BundleSpec    { return nil }
func (BaseNode) NonParallelizable() bool     { return false }

// ParamSet is a name-keyed typed scalar parameter map. Setting a
// parameter after Compile marks the node Dirty (enforced by Instance.SetParam).
type ParamSet struct {
	values map[string]any
}

// NewParamSet returns an empty parameter set.
func NewParamSet() *ParamSet { return &ParamSet{values: map[string]any{}} }

func (p *ParamSet) Get(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

func (p *ParamSet) Set(name string, value any) { p.values[name] = value }

// Instance is the runtime record for one node: its name, type, state,
// parameters, logger, and bundle list, matching the NodeInstance
// described in the data model.
type Instance struct {
	Name           string
	TypeName       string
	TypeID         int
	Node           Node
	State          State
	Params         *ParamSet
	Logger         *logging.Logger
	ExecutionIndex int

	InputRefs  [][]resource.ID
	OutputRefs [][]resource.ID

	Dependencies []string // names of nodes this instance depends on
}

// SetParam sets a parameter and, if the node has already compiled at
// least once, marks it Dirty so a future RecompileDirtyNodes retries.
func (n *Instance) SetParam(name string, value any) {
	n.Params.Set(name, value)
	if n.State == Compiled || n.State == Ready || n.State == Complete {
		n.State = Dirty
	}
}

// Bundles returns the node's declared bundles, or the single
// full-coverage default bundle when the node hasn't overridden
// GetBundles.
func (n *Instance) Bundles() []BundleSpec {
	if custom := n.Node.GetBundles(); custom != nil {
		return custom
	}
	slots := n.Node.Slots()
	read := make([]int, 0, n.Node.NumInputs())
	write := make([]int, 0, len(slots)-n.Node.NumInputs())
	for i, s := range slots {
		if i < n.Node.NumInputs() {
			read = append(read, s.Index)
		} else {
			write = append(write, s.Index)
		}
	}
	return []BundleSpec{{Read: read, Write: write}}
}
