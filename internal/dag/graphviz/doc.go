// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package graphviz renders a render graph's topology in the Graphviz
// language, for debugging and for rendergraphctl's "dump" command.
//
// It has two main parts:
//
//   - [Node] corresponds to Graphviz's idea of a graph node, giving each a
//     unique identifier and a set of arbitrary attributes to be included
//     in the Graphviz-language description of the node.
//   - [WriteDirectedGraph] takes a [Graph] (built from a topology with
//     [FromTopology], or assembled by hand) and generates a
//     Graphviz-language representation of it as a "digraph".
//
// This package does not currently have a way to represent Graphviz edge
// attributes on a per-edge basis; [Graph] does allow providing a set of
// general attributes that apply to every edge.
package graphviz
