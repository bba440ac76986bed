package nodes

import (
	"github.com/vixengraph/rendergraph/internal/diag"
	"github.com/vixengraph/rendergraph/internal/node"
	"github.com/vixengraph/rendergraph/internal/resource"
)

// Passthrough copies its single scalar input to its single scalar
// output every frame during Execute, exercising the common
// read-one/write-one task shape the access tracker and dependency graph
// need to order correctly.
type Passthrough struct {
	node.BaseNode
	name string
}

// NewPassthrough is a nodetype.Factory for the "Passthrough" type.
func NewPassthrough(instanceName string) (node.Node, error) {
	return &Passthrough{name: instanceName}, nil
}

func (p *Passthrough) Slots() []resource.Descriptor {
	return []resource.Descriptor{
		{
			Index:      0,
			Name:       "in",
			Tag:        resource.TagScalar,
			Role:       resource.RoleExecute,
			Mutability: resource.ReadOnly,
			Scope:      resource.NodeLevel,
			ArrayMode:  resource.Single,
		},
		{
			Index:      1,
			Name:       "out",
			Tag:        resource.TagScalar,
			Role:       resource.RoleExecute,
			Mutability: resource.WriteOnly,
			Scope:      resource.NodeLevel,
			ArrayMode:  resource.Single,
		},
	}
}

func (p *Passthrough) NumInputs() int { return 1 }

func (p *Passthrough) Setup(ctx node.SetupContext) diag.Diagnostics     { return nil }
func (p *Passthrough) Compile(ctx node.CompileContext) diag.Diagnostics { return nil }

func (p *Passthrough) Execute(ctx node.ExecuteContext) diag.Diagnostics {
	in, err := ctx.In(0)
	if err != nil {
		return diag.FromError(p.name, "failed to read input", err)
	}
	v, err := resource.GetScalar[any](&in)
	if err != nil {
		return diag.FromError(p.name, "failed to decode input scalar", err)
	}
	if err := ctx.Out(1, func(r *resource.Resource) error {
		return resource.SetScalar(r, v)
	}); err != nil {
		return diag.FromError(p.name, "failed to write output", err)
	}
	return nil
}

func (p *Passthrough) Cleanup(ctx node.CleanupContext) {}
