package nodetype

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vixengraph/rendergraph/internal/diag"
	"github.com/vixengraph/rendergraph/internal/node"
	"github.com/vixengraph/rendergraph/internal/resource"
)

type stubNode struct{ node.BaseNode }

func (stubNode) Setup(node.SetupContext) diag.Diagnostics     { return nil }
func (stubNode) Compile(node.CompileContext) diag.Diagnostics { return nil }
func (stubNode) Execute(node.ExecuteContext) diag.Diagnostics { return nil }
func (stubNode) Cleanup(node.CleanupContext)                  {}
func (stubNode) Slots() []resource.Descriptor                 { return nil }
func (stubNode) NumInputs() int                               { return 0 }

func TestDuplicateTypeNameRejected(t *testing.T) {
	r := New()
	_, err := r.Register("camera", "render", 0, 0, func(string) (node.Node, error) { return stubNode{}, nil })
	require.NoError(t, err)
	_, err = r.Register("camera", "render", 0, 0, func(string) (node.Node, error) { return stubNode{}, nil })
	require.Error(t, err)
}

func TestMaxInstancesEnforced(t *testing.T) {
	r := New()
	r.Register("camera", "render", 0, 1, func(string) (node.Node, error) { return stubNode{}, nil })
	_, err := r.CreateInstance("camera", "main")
	require.NoError(t, err)
	_, err = r.CreateInstance("camera", "second")
	require.Error(t, err)
}

func TestFilterByCapability(t *testing.T) {
	r := New()
	r.Register("camera", "render", 1<<0, 0, func(string) (node.Node, error) { return stubNode{}, nil })
	r.Register("light", "render", 1<<1, 0, func(string) (node.Node, error) { return stubNode{}, nil })
	found := r.FilterByCapability(1 << 0)
	require.Len(t, found, 1)
	require.Equal(t, "camera", found[0].TypeName)
}
