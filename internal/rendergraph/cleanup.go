package rendergraph

import "fmt"

// CleanupHandle identifies one registered teardown entry.
type CleanupHandle int

type cleanupEntry struct {
	name       string
	closure    func()
	dependsOn  []CleanupHandle
	ran        bool
}

// CleanupStack accumulates teardown closures plus their dependency
// edges and runs them in a topological order on Clear, so every entry
// completes before anything that depends on it (P10). Ported from the
// node/resource teardown ordering the teacher enforces in
// execgraph/compiled.go, generalized from a single-pass reverse-order
// walk to a full dependency-respecting topological run since cleanup
// here is not always strictly LIFO.
type CleanupStack struct {
	entries []*cleanupEntry
}

// NewCleanupStack returns an empty stack.
func NewCleanupStack() *CleanupStack { return &CleanupStack{} }

// Push registers a new closure that must run after every handle in
// dependsOn has run.
func (c *CleanupStack) Push(name string, dependsOn []CleanupHandle, closure func()) CleanupHandle {
	h := CleanupHandle(len(c.entries))
	c.entries = append(c.entries, &cleanupEntry{name: name, closure: closure, dependsOn: dependsOn})
	return h
}

// Clear runs every not-yet-run entry in dependency order, then marks the
// stack empty. Calling Clear again is a no-op (every closure has already
// run exactly once and been erased).
func (c *CleanupStack) Clear() error {
	order, err := c.topoOrder()
	if err != nil {
		return err
	}
	for _, h := range order {
		e := c.entries[h]
		if e.ran {
			continue
		}
		e.ran = true
		e.closure()
	}
	c.entries = nil
	return nil
}

// Len reports how many entries have not yet run.
func (c *CleanupStack) Len() int {
	n := 0
	for _, e := range c.entries {
		if !e.ran {
			n++
		}
	}
	return n
}

func (c *CleanupStack) topoOrder() ([]CleanupHandle, error) {
	n := len(c.entries)
	indeg := make([]int, n)
	adj := make([][]CleanupHandle, n)
	for h, e := range c.entries {
		for _, dep := range e.dependsOn {
			adj[dep] = append(adj[dep], CleanupHandle(h))
			indeg[h]++
		}
	}

	var ready []CleanupHandle
	for h := 0; h < n; h++ {
		if indeg[h] == 0 {
			ready = append(ready, CleanupHandle(h))
		}
	}

	var order []CleanupHandle
	for len(ready) > 0 {
		h := ready[0]
		ready = ready[1:]
		order = append(order, h)
		for _, succ := range adj[h] {
			indeg[succ]--
			if indeg[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}

	if len(order) != n {
		return nil, fmt.Errorf("rendergraph: cleanup stack has a dependency cycle")
	}
	return order, nil
}
