// Package exectask implements the virtual-task access tracker (C8), task
// dependency graph (C9), and phase-barrier parallel executor (C10):
// together the render graph's core scheduler, ported from
// VirtualTask.h, VirtualResourceAccessTracker.h, and
// TaskDependencyGraph.h.
package exectask

import (
	"github.com/vixengraph/rendergraph/internal/resource"
)

// TaskID is (node, bundle index), the unit of parallel scheduling.
type TaskID struct {
	Node   int
	Bundle int
}

// Phase is one of the four lifecycle phases the executor drives tasks
// through.
type Phase int

const (
	PhaseSetup Phase = iota
	PhaseCompile
	PhaseExecute
	PhaseCleanup
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "Setup"
	case PhaseCompile:
		return "Compile"
	case PhaseExecute:
		return "Execute"
	case PhaseCleanup:
		return "Cleanup"
	default:
		return "Unknown"
	}
}

// AccessType classifies one (task, resource) touch.
type AccessType int

const (
	AccessRead AccessType = iota
	AccessWrite
	AccessReadWrite
)

func (a AccessType) isWrite() bool { return a == AccessWrite || a == AccessReadWrite }

// Access records one task's touch of one resource slot.
type Access struct {
	Task     TaskID
	Type     AccessType
	SlotIdx  int
	IsOutput bool
}

// Task is the runtime description of one schedulable unit: its ID, the
// node's execution-order index (for write-write and error-order
// resolution), whether it opts out of parallel co-scheduling, and the
// closure the executor invokes.
type Task struct {
	ID                TaskID
	NodeExecutionIdx  int
	NonParallelizable bool
	Run               func() error
}

// NodeBundles is what the access tracker needs from the topology/node
// layer for one node: its execution order index and its declared
// bundles' slot-level accesses expressed directly as Access entries
// (the caller that builds them chooses each Access's AccessType; the
// orchestrator marks a bundle's Read slots AccessRead and its Write
// slots AccessWrite).
type NodeBundles struct {
	NodeIdx        int
	ExecutionIndex int
	Bundles        [][]Access // Bundles[bundleIdx] = accesses for that bundle
}

// ResourceKey identifies which resource an Access touches. It is an
// alias of resource.ID, so any resource.ID value (including a small
// literal in tests, with no Arena behind it) can be used as a key.
type ResourceKey = resource.ID
