package graphtopo

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vixengraph/rendergraph/internal/resource"
)

func outSlot(name string) resource.Descriptor {
	return resource.Descriptor{Name: name, Tag: resource.TagScalar, Mutability: resource.WriteOnly, Role: resource.RoleExecute}
}

func inSlot(name string) resource.Descriptor {
	return resource.Descriptor{Name: name, Tag: resource.TagScalar, Mutability: resource.ReadOnly, Role: resource.RoleExecute, ArrayMode: resource.Single}
}

func TestTopologicalSortLinearChain(t *testing.T) {
	topo := New()
	a, _ := topo.AddNode("A", "producer", []resource.Descriptor{outSlot("out")})
	b, _ := topo.AddNode("B", "passthrough", []resource.Descriptor{inSlot("in"), outSlot("out")})
	c, _ := topo.AddNode("C", "consumer", []resource.Descriptor{inSlot("in")})

	batch := topo.NewBatch()
	batch.Connect(a, 0, b, 0)
	batch.Connect(b, 1, c, 0)
	require.NoError(t, batch.RegisterAll())

	order, err := topo.TopologicalSort()
	require.NoError(t, err)
	require.Equal(t, []NodeHandle{a, b, c}, order)
}

func TestCycleRejectedAtomically(t *testing.T) {
	topo := New()
	a, _ := topo.AddNode("A", "t", []resource.Descriptor{inSlot("in"), outSlot("out")})
	b, _ := topo.AddNode("B", "t", []resource.Descriptor{inSlot("in"), outSlot("out")})

	before := len(topo.Edges())
	batch := topo.NewBatch()
	batch.Connect(a, 1, b, 0)
	batch.Connect(b, 1, a, 0)
	err := batch.RegisterAll()
	require.Error(t, err)
	require.Equal(t, before, len(topo.Edges()))
}

func TestSingleArrayModeRejectsSecondConnection(t *testing.T) {
	topo := New()
	a, _ := topo.AddNode("A", "t", []resource.Descriptor{outSlot("out")})
	b, _ := topo.AddNode("B", "t", []resource.Descriptor{outSlot("out")})
	c, _ := topo.AddNode("C", "t", []resource.Descriptor{inSlot("in")})

	batch := topo.NewBatch()
	batch.Connect(a, 0, c, 0)
	batch.Connect(b, 0, c, 0)
	err := batch.RegisterAll()
	require.Error(t, err)
}

func TestValidateReportsMissingRequiredInput(t *testing.T) {
	topo := New()
	topo.AddNode("A", "t", []resource.Descriptor{inSlot("in")})
	d := topo.Validate()
	require.True(t, d.HasErrors())
}

func TestDiamondParallelTopology(t *testing.T) {
	topo := New()
	a, _ := topo.AddNode("A", "t", []resource.Descriptor{outSlot("left"), outSlot("right")})
	b, _ := topo.AddNode("B", "t", []resource.Descriptor{inSlot("in"), outSlot("out")})
	c, _ := topo.AddNode("C", "t", []resource.Descriptor{inSlot("in"), outSlot("out")})
	d, _ := topo.AddNode("D", "t", []resource.Descriptor{inSlot("left"), inSlot("right")})

	batch := topo.NewBatch()
	batch.Connect(a, 0, b, 0)
	batch.Connect(a, 1, c, 0)
	batch.Connect(b, 1, d, 0)
	batch.Connect(c, 1, d, 1)
	require.NoError(t, batch.RegisterAll())

	order, err := topo.TopologicalSort()
	require.NoError(t, err)
	require.Equal(t, a, order[0])
	require.Equal(t, d, order[3])
}
