// Package nodetype implements the node type registry (C13):
// name/ID-keyed factories with collision checks, capability filtering,
// and per-type instance limits.
package nodetype

import (
	"fmt"

	"github.com/vixengraph/rendergraph/internal/node"
)

// Factory constructs a node instance given its instance name; it also
// populates the node's slot schema from the type's static config.
type Factory func(instanceName string) (node.Node, error)

// TypeInfo describes one registered node type.
type TypeInfo struct {
	TypeID       int
	TypeName     string
	PipelineType string
	Capabilities uint64
	MaxInstances int // 0 means unbounded
	Factory      Factory
}

// Registry maps type names and IDs to factories.
type Registry struct {
	byName map[string]*TypeInfo
	byID   map[int]*TypeInfo
	count  map[string]int // live instance count per type name
	nextID int
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{byName: map[string]*TypeInfo{}, byID: map[int]*TypeInfo{}, count: map[string]int{}}
}

// Register installs a new type. Registration order determines TypeID
// assignment within this process (spec §6); it is irrelevant to
// persistence.
func (r *Registry) Register(typeName, pipelineType string, capabilities uint64, maxInstances int, factory Factory) (*TypeInfo, error) {
	if _, exists := r.byName[typeName]; exists {
		return nil, fmt.Errorf("nodetype: type name %q already registered", typeName)
	}
	info := &TypeInfo{
		TypeID:       r.nextID,
		TypeName:     typeName,
		PipelineType: pipelineType,
		Capabilities: capabilities,
		MaxInstances: maxInstances,
		Factory:      factory,
	}
	r.nextID++
	r.byName[typeName] = info
	r.byID[info.TypeID] = info
	return info, nil
}

// ByName looks up a type by name.
func (r *Registry) ByName(typeName string) (*TypeInfo, bool) {
	info, ok := r.byName[typeName]
	return info, ok
}

// ByID looks up a type by numeric ID.
func (r *Registry) ByID(typeID int) (*TypeInfo, bool) {
	info, ok := r.byID[typeID]
	return info, ok
}

// FilterByPipeline returns every registered type for a given pipeline.
func (r *Registry) FilterByPipeline(pipelineType string) []*TypeInfo {
	var out []*TypeInfo
	for _, info := range r.byName {
		if info.PipelineType == pipelineType {
			out = append(out, info)
		}
	}
	return out
}

// FilterByCapability returns every registered type whose capability
// bitmask has every bit in mask set.
func (r *Registry) FilterByCapability(mask uint64) []*TypeInfo {
	var out []*TypeInfo
	for _, info := range r.byName {
		if info.Capabilities&mask == mask {
			out = append(out, info)
		}
	}
	return out
}

// CreateInstance enforces the per-type MaxInstances cap, then invokes
// the type's factory.
func (r *Registry) CreateInstance(typeName, instanceName string) (node.Node, error) {
	info, ok := r.byName[typeName]
	if !ok {
		return nil, fmt.Errorf("nodetype: unknown type %q", typeName)
	}
	if info.MaxInstances > 0 && r.count[typeName] >= info.MaxInstances {
		return nil, fmt.Errorf("nodetype: type %q has reached its max instance count (%d)", typeName, info.MaxInstances)
	}
	n, err := info.Factory(instanceName)
	if err != nil {
		return nil, fmt.Errorf("nodetype: construct %q instance %q: %w", typeName, instanceName, err)
	}
	r.count[typeName]++
	return n, nil
}

// ReleaseInstance decrements the live instance counter for typeName,
// called when a node is torn down so MaxInstances can be re-used.
func (r *Registry) ReleaseInstance(typeName string) {
	if r.count[typeName] > 0 {
		r.count[typeName]--
	}
}
