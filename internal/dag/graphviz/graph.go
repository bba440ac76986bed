// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package graphviz

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/vixengraph/rendergraph/internal/graphtopo"
)

// Graph is a Graphviz-language rendering of a render-graph Topology,
// adapted from the teacher's dag.Graph wrapper to work directly against
// graphtopo.Topology instead of a generic internal/dag graph, since the
// render graph has its own node/edge representation.
type Graph struct {
	Nodes []Node
	Edges [][2]string // [0] source node ID, [1] destination node ID

	Attrs            Attributes
	DefaultNodeAttrs Attributes
	DefaultEdgeAttrs Attributes

	DefaultEdgeDirectionIn  EdgeAttachmentDirection
	DefaultEdgeDirectionOut EdgeAttachmentDirection
}

// FromTopology builds a Graph describing t's current nodes and edges,
// labeling each node with its instance name and numeric topology handle
// so a rendered dump doubles as a quick debug view of what's wired to
// what. The node's type name is not part of the label.
func FromTopology(t *graphtopo.Topology) *Graph {
	g := &Graph{
		DefaultNodeAttrs: Attributes{"shape": Val("box")},
	}
	for h := 0; h < t.NumNodes(); h++ {
		handle := graphtopo.NodeHandle(h)
		g.Nodes = append(g.Nodes, Node{
			ID: t.Name(handle),
			Attrs: Attributes{
				"label": Val(fmt.Sprintf("%s\\n(%d)", t.Name(handle), handle)),
			},
		})
	}
	for _, e := range t.Edges() {
		g.Edges = append(g.Edges, [2]string{t.Name(e.Src), t.Name(e.Dst)})
	}
	return g
}

// WriteDirectedGraph generates a graphviz-language representation of g
// on w. If this function returns an error then an unspecified amount of
// partial data might already have been written to w before returning it.
func WriteDirectedGraph(g *Graph, w io.Writer) error {
	var err error

	bw := bufio.NewWriter(w)

	_, err = bw.WriteString("digraph {\n")
	if err != nil {
		return err
	}
	if len(g.Attrs) != 0 {
		names := slices.Collect(maps.Keys(g.Attrs))
		slices.Sort(names)
		for _, name := range names {
			val := g.Attrs[name]
			if _, err = bw.WriteString("  "); err != nil {
				return err
			}
			if err = writeGraphvizAttr(name, val, bw); err != nil {
				return err
			}
			if _, err = bw.WriteString(";\n"); err != nil {
				return err
			}
		}
	}
	if len(g.DefaultNodeAttrs) != 0 {
		if _, err = bw.WriteString("  node ["); err != nil {
			return err
		}
		if err = writeGraphvizAttrList(g.DefaultNodeAttrs, bw); err != nil {
			return err
		}
		if _, err = bw.WriteString("];\n"); err != nil {
			return err
		}
	}
	if len(g.DefaultEdgeAttrs) != 0 {
		if _, err = bw.WriteString("  edge ["); err != nil {
			return err
		}
		if err = writeGraphvizAttrList(g.DefaultEdgeAttrs, bw); err != nil {
			return err
		}
		if _, err = bw.WriteString("];\n"); err != nil {
			return err
		}
	}

	nodes := append([]Node(nil), g.Nodes...)
	slices.SortFunc(nodes, func(a, b Node) int {
		return cmp.Compare(a.ID, b.ID)
	})
	for _, node := range nodes {
		if _, err = bw.WriteString("  "); err != nil {
			return err
		}
		if _, err = bw.WriteString(quoteForGraphviz(node.ID)); err != nil {
			return err
		}
		if len(node.Attrs) != 0 {
			if _, err = bw.WriteString(" ["); err != nil {
				return err
			}
			if err = writeGraphvizAttrList(node.Attrs, bw); err != nil {
				return err
			}
			if _, err = bw.WriteString("]"); err != nil {
				return err
			}
		}
		if _, err = bw.WriteString(";\n"); err != nil {
			return err
		}
	}

	edges := append([][2]string(nil), g.Edges...)
	slices.SortFunc(edges, func(a, b [2]string) int {
		if c := cmp.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return cmp.Compare(a[1], b[1])
	})
	for _, edge := range edges {
		if _, err = bw.WriteString("  "); err != nil {
			return err
		}
		if _, err = bw.WriteString(quoteForGraphviz(edge[0])); err != nil {
			return err
		}
		if _, err = bw.WriteString(string(g.DefaultEdgeDirectionOut)); err != nil {
			return err
		}
		if _, err = bw.WriteString(" -> "); err != nil {
			return err
		}
		if _, err = bw.WriteString(quoteForGraphviz(edge[1])); err != nil {
			return err
		}
		if _, err = bw.WriteString(string(g.DefaultEdgeDirectionIn)); err != nil {
			return err
		}
		if _, err = bw.WriteString(";\n"); err != nil {
			return err
		}
	}

	if _, err = bw.WriteString("}\n"); err != nil {
		return err
	}

	return bw.Flush()
}
