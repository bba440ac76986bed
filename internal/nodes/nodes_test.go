package nodes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vixengraph/rendergraph/internal/eventbus"
	"github.com/vixengraph/rendergraph/internal/node"
	"github.com/vixengraph/rendergraph/internal/resource"
)

func TestConstantComplainsWithoutValueParam(t *testing.T) {
	c := &Constant{name: "k"}
	d := c.Compile(&stubCompileCtx{params: map[string]any{}})
	require.True(t, d.HasErrors())
}

func TestConstantWritesScalar(t *testing.T) {
	c := &Constant{name: "k"}
	r := resource.New(0, resource.TagScalar, resource.Transient)
	ctx := &stubCompileCtx{params: map[string]any{"value": 42}, outputs: map[int]*resource.Resource{0: r}}
	d := c.Compile(ctx)
	require.False(t, d.HasErrors())
	v, err := resource.GetScalar[int](r)
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestConstantSlotsShape(t *testing.T) {
	c := &Constant{name: "k"}
	require.Len(t, c.Slots(), 1)
	require.Equal(t, 0, c.NumInputs())
}

func TestPassthroughSlotsShape(t *testing.T) {
	p := &Passthrough{name: "p"}
	require.Len(t, p.Slots(), 2)
	require.Equal(t, 1, p.NumInputs())
}

func TestPassthroughCopiesInputToOutput(t *testing.T) {
	p := &Passthrough{name: "p"}
	in := resource.New(0, resource.TagScalar, resource.Transient)
	require.NoError(t, resource.SetScalar(in, "hello"))
	out := resource.New(1, resource.TagScalar, resource.Transient)

	ctx := &stubExecuteCtx{inputs: map[int]*resource.Resource{0: in}, outputs: map[int]*resource.Resource{0: out}}
	d := p.Execute(ctx)
	require.False(t, d.HasErrors())
	v, err := resource.GetScalar[any](out)
	require.NoError(t, err)
	require.Equal(t, "hello", v)
}

// stubCompileCtx is a minimal node.CompileContext for unit-testing a
// single node type in isolation, without a full Graph.
type stubCompileCtx struct {
	params  map[string]any
	outputs map[int]*resource.Resource
}

func (s *stubCompileCtx) Param(name string) (any, bool)       { v, ok := s.params[name]; return v, ok }
func (s *stubCompileCtx) Bus() *eventbus.Bus                  { return nil }
func (s *stubCompileCtx) OwningGraph() node.GraphAccessor     { return nil }
func (s *stubCompileCtx) Device() node.DeviceLike             { return nil }

func (s *stubCompileCtx) In(slot int) (resource.Resource, error) {
	return resource.Resource{}, nil
}

func (s *stubCompileCtx) Out(slot int, set func(*resource.Resource) error) error {
	r, ok := s.outputs[slot]
	if !ok {
		return nil
	}
	return set(r)
}

// stubExecuteCtx is a minimal node.ExecuteContext for unit-testing a
// single node type in isolation.
type stubExecuteCtx struct {
	inputs  map[int]*resource.Resource
	outputs map[int]*resource.Resource
}

func (s *stubExecuteCtx) Param(name string) (any, bool)       { return nil, false }
func (s *stubExecuteCtx) Bus() *eventbus.Bus                  { return nil }
func (s *stubExecuteCtx) OwningGraph() node.GraphAccessor     { return nil }
func (s *stubExecuteCtx) Device() node.DeviceLike             { return nil }

func (s *stubExecuteCtx) In(slot int) (resource.Resource, error) {
	r, ok := s.inputs[slot]
	if !ok {
		return resource.Resource{}, nil
	}
	return *r, nil
}

func (s *stubExecuteCtx) Out(slot int, set func(*resource.Resource) error) error {
	idx := slot - 1
	r, ok := s.outputs[idx]
	if !ok {
		return nil
	}
	return set(r)
}
