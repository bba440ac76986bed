package rendergraph

import (
	"fmt"

	"github.com/vixengraph/rendergraph/internal/eventbus"
	"github.com/vixengraph/rendergraph/internal/node"
	"github.com/vixengraph/rendergraph/internal/resource"
)

// phaseContext is the concrete implementation of every phase-specific
// context interface in package node; which slot Role is legal to read
// is enforced by allowedRole, ported from the seam the teacher calls
// ExecContext (execgraph/exec_context.go) and generalized from an
// operand-resolution boundary to phase-correct slot access.
type phaseContext struct {
	graph       *Graph
	inst        *node.Instance
	allowedRole resource.Role
	canWrite    bool
}

func (c *phaseContext) Param(name string) (any, bool)       { return c.inst.Params.Get(name) }
func (c *phaseContext) Bus() *eventbus.Bus                  { return c.graph.bus }
func (c *phaseContext) OwningGraph() node.GraphAccessor     { return c.graph }
func (c *phaseContext) Device() node.DeviceLike             { return c.graph.device }

func (c *phaseContext) In(slot int) (resource.Resource, error) {
	slots := c.inst.Node.Slots()
	if slot < 0 || slot >= len(slots) {
		return resource.Resource{}, fmt.Errorf("%s: input slot %d out of range", c.inst.Name, slot)
	}
	desc := slots[slot]
	if desc.Role != c.allowedRole {
		return resource.Resource{}, fmt.Errorf("%s: slot %q has role %v, not readable during this phase", c.inst.Name, desc.Name, desc.Role)
	}
	if slot >= len(c.inst.InputRefs) || len(c.inst.InputRefs[slot]) == 0 {
		return resource.Resource{}, fmt.Errorf("%s: input slot %q is unbound", c.inst.Name, desc.Name)
	}
	id := c.inst.InputRefs[slot][0]
	return *c.graph.arena.Get(id), nil
}

func (c *phaseContext) Out(slot int, set func(*resource.Resource) error) error {
	if !c.canWrite {
		return fmt.Errorf("%s: outputs are not writable during this phase", c.inst.Name)
	}
	slots := c.inst.Node.Slots()
	if slot < 0 || slot >= len(slots) {
		return fmt.Errorf("%s: output slot %d out of range", c.inst.Name, slot)
	}
	outIdx := slot - c.inst.Node.NumInputs()
	if outIdx < 0 || outIdx >= len(c.inst.OutputRefs) || len(c.inst.OutputRefs[outIdx]) == 0 {
		return fmt.Errorf("%s: output slot %d has no allocated resource", c.inst.Name, slot)
	}
	id := c.inst.OutputRefs[outIdx][0]
	return set(c.graph.arena.Get(id))
}
