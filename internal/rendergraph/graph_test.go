package rendergraph

import (
	"context"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/vixengraph/rendergraph/internal/devicecache"
	"github.com/vixengraph/rendergraph/internal/eventbus"
	"github.com/vixengraph/rendergraph/internal/logging"
	"github.com/vixengraph/rendergraph/internal/nodes"
	"github.com/vixengraph/rendergraph/internal/nodetype"
	"github.com/vixengraph/rendergraph/internal/resource"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	types := nodetype.New()
	_, err := types.Register("Constant", "generic", 0, 0, nodes.NewConstant)
	require.NoError(t, err)
	_, err = types.Register("Passthrough", "generic", 0, 0, nodes.NewPassthrough)
	require.NoError(t, err)

	cache, err := devicecache.New(8)
	require.NoError(t, err)

	return New(Config{
		Logger:   logging.New(logging.Config{Name: "test", Level: hclog.Off}),
		Bus:      eventbus.New(nil),
		Device:   cache,
		Types:    types,
		PoolSize: 2,
	})
}

func TestGraphLinearChainCompilesAndExecutes(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode("Constant", "const", map[string]any{"value": 7}))
	require.NoError(t, g.AddNode("Passthrough", "pass", nil))
	require.NoError(t, g.Connect("const", 0, "pass", 0))

	d := g.Compile(context.Background())
	require.False(t, d.HasErrors(), "%v", d)

	d = g.RenderFrame(context.Background(), 1.0/60.0, nil)
	require.False(t, d.HasErrors(), "%v", d)

	res, ok := g.OutputResource("pass", 0)
	require.True(t, ok)
	v, err := resource.GetScalar[any](res)
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestGraphRejectsDuplicateInstanceName(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode("Constant", "const", map[string]any{"value": 1}))
	err := g.AddNode("Constant", "const", map[string]any{"value": 2})
	require.Error(t, err)
}

func TestGraphCompileReportsMissingRequiredConstantParam(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode("Constant", "const", nil))
	d := g.Compile(context.Background())
	require.True(t, d.HasErrors())
}

func TestCleanupStackRunsInDependencyOrder(t *testing.T) {
	stack := NewCleanupStack()
	var order []string
	a := stack.Push("a", nil, func() { order = append(order, "a") })
	stack.Push("b", []CleanupHandle{a}, func() { order = append(order, "b") })
	require.NoError(t, stack.Clear())
	require.Equal(t, []string{"a", "b"}, order)
	require.Equal(t, 0, stack.Len())
}

func TestCleanupStackIsIdempotent(t *testing.T) {
	stack := NewCleanupStack()
	calls := 0
	stack.Push("once", nil, func() { calls++ })
	require.NoError(t, stack.Clear())
	require.NoError(t, stack.Clear())
	require.Equal(t, 1, calls)
}
