// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package graphviz

// Node is one rendered graph vertex: its unique ID (the render-graph
// instance name) plus any Graphviz attributes to annotate it with (node
// type, lifecycle state, …).
type Node struct {
	ID    string
	Attrs Attributes
}
