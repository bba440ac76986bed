// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package graphviz

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vixengraph/rendergraph/internal/graphtopo"
	"github.com/vixengraph/rendergraph/internal/resource"
)

func TestWriteDirectedGraph(t *testing.T) {
	g := &Graph{
		Attrs: map[string]Value{
			"rankdir": Val("LR"),
			"pad":     Val(1),
		},
		DefaultNodeAttrs: map[string]Value{
			"shape": Val("rectangle"),
		},
		DefaultEdgeAttrs: map[string]Value{
			"color": Val("red"),
		},
		DefaultEdgeDirectionOut: EdgeAttachmentSouth,
		DefaultEdgeDirectionIn:  EdgeAttachmentNorth,
		Nodes: []Node{
			{ID: "no_attrs"},
			{ID: "one_attr", Attrs: map[string]Value{
				"shape": Val("circle"),
			}},
			{ID: "many_attrs", Attrs: map[string]Value{
				"shape": Val("underline"),
				"label": Val("I have many attributes!"),
			}},
			{ID: "complex_attrs", Attrs: map[string]Value{
				"quoted label":    Val("..."),
				"htmllike":        Val(HTMLLikeString(`<b>Hello!</b>`)),
				"special_escapes": Val(PrequotedValue(`"foo\lbar\r"`)),
			}},
		},
		Edges: [][2]string{
			{"no_attrs", "one_attr"},
			{"complex_attrs", "many_attrs"},
		},
	}

	var buf strings.Builder
	err := WriteDirectedGraph(g, &buf)
	if err != nil {
		t.Fatal(err)
	}

	got := strings.TrimSpace(buf.String())
	want := strings.TrimSpace(`
digraph {
  pad="1";
  rankdir=LR;
  node [shape=rectangle];
  edge [color=red];
  complex_attrs [htmllike=<<b>Hello!</b>>,"quoted label"="...",special_escapes="foo\lbar\r"];
  many_attrs [label="I have many attributes!",shape=underline];
  no_attrs;
  one_attr [shape=circle];
  complex_attrs:s -> many_attrs:n;
  no_attrs:s -> one_attr:n;
}
`)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Error("wrong result:\n" + diff)
	}
}

func TestFromTopology(t *testing.T) {
	topo := graphtopo.New()

	outSlot := []resource.Descriptor{{Index: 0, Name: "value", Tag: resource.TagScalar}}
	inSlot := []resource.Descriptor{{Index: 0, Name: "in", Tag: resource.TagScalar}}

	constH, err := topo.AddNode("const", "Constant", outSlot)
	if err != nil {
		t.Fatal(err)
	}
	passH, err := topo.AddNode("pass", "Passthrough", inSlot)
	if err != nil {
		t.Fatal(err)
	}

	batch := topo.NewBatch()
	batch.Connect(constH, 0, passH, 0)
	if err := batch.RegisterAll(); err != nil {
		t.Fatal(err)
	}

	g := FromTopology(topo)
	if len(g.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(g.Nodes))
	}
	if len(g.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(g.Edges))
	}

	var buf strings.Builder
	if err := WriteDirectedGraph(g, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "const -> pass") {
		t.Errorf("expected rendered graph to connect const -> pass, got:\n%s", buf.String())
	}
}
