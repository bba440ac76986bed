// Package nodes holds a handful of reference node implementations
// exercising the node contract end to end: Constant and Passthrough,
// used by the orchestrator's own tests and by cmd/rendergraphctl's
// demo graph.
package nodes

import (
	"github.com/vixengraph/rendergraph/internal/diag"
	"github.com/vixengraph/rendergraph/internal/node"
	"github.com/vixengraph/rendergraph/internal/resource"
)

// Constant produces a single scalar output whose value comes from its
// "value" parameter, written once during Compile since the value never
// changes within a frame.
type Constant struct {
	node.BaseNode
	name string
}

// NewConstant is a nodetype.Factory for the "Constant" type.
func NewConstant(instanceName string) (node.Node, error) {
	return &Constant{name: instanceName}, nil
}

func (c *Constant) Slots() []resource.Descriptor {
	return []resource.Descriptor{
		{
			Index:      0,
			Name:       "value",
			Tag:        resource.TagScalar,
			Role:       resource.RoleDependency,
			Mutability: resource.WriteOnly,
			// GraphLevel so the resource is Persistent: a constant is
			// written once during Compile and must survive every frame's
			// ResetFrame, not just the one it was produced in.
			Scope:     resource.GraphLevel,
			ArrayMode: resource.Single,
		},
	}
}

func (c *Constant) NumInputs() int { return 0 }

func (c *Constant) Setup(ctx node.SetupContext) diag.Diagnostics { return nil }

func (c *Constant) Compile(ctx node.CompileContext) diag.Diagnostics {
	v, ok := ctx.Param("value")
	if !ok {
		return diag.Diagnostics{}.Appendf(c.name, "missing parameter", "Constant node requires a %q parameter", "value")
	}
	err := ctx.Out(0, func(r *resource.Resource) error {
		return resource.SetScalar(r, v)
	})
	if err != nil {
		return diag.FromError(c.name, "failed to write constant output", err)
	}
	return nil
}

func (c *Constant) Execute(ctx node.ExecuteContext) diag.Diagnostics { return nil }

func (c *Constant) Cleanup(ctx node.CleanupContext) {}
