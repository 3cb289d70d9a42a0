package waitfor

import (
	"sync"
)

// --------------------------------------------------------------------------
// Graph Type
// --------------------------------------------------------------------------

// Graph is a directed graph over comparable node values with cycle detection.
// The zero value is not usable, use NewGraph.
type Graph[N comparable] struct {
	mu    sync.RWMutex
	edges map[N]map[N]struct{}
}

// NewGraph creates an empty wait-for graph.
func NewGraph[N comparable]() *Graph[N] {
	return &Graph[N]{
		edges: make(map[N]map[N]struct{}),
	}
}

// --------------------------------------------------------------------------
// Edge Operations
// --------------------------------------------------------------------------

// AddEdge inserts the directed edge from -> to. Adding an existing edge is a
// no-op.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (g *Graph[N]) AddEdge(from, to N) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.edges[from] == nil {
		g.edges[from] = make(map[N]struct{})
	}
	g.edges[from][to] = struct{}{}
}

// RemoveEdge deletes the directed edge from -> to. Removing the last outgoing
// edge of a node drops the node entirely. Removing a non-existent edge is a
// no-op.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (g *Graph[N]) RemoveEdge(from, to N) {
	g.mu.Lock()
	defer g.mu.Unlock()

	targets, ok := g.edges[from]
	if !ok {
		return
	}
	delete(targets, to)
	if len(targets) == 0 {
		delete(g.edges, from)
	}
}

// RemoveNode deletes every edge into and out of the given node.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (g *Graph[N]) RemoveNode(n N) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.edges, n)
	for from, targets := range g.edges {
		delete(targets, n)
		if len(targets) == 0 {
			delete(g.edges, from)
		}
	}
}

// Len returns the number of nodes with at least one outgoing edge.
func (g *Graph[N]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// --------------------------------------------------------------------------
// Cycle Detection
// --------------------------------------------------------------------------

// HasCycle reports whether the graph contains at least one directed cycle.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (g *Graph[N]) HasCycle() bool {
	_, ok := g.Cycle()
	return ok
}

// Cycle returns the nodes of one directed cycle in traversal order, or
// (nil, false) if the graph is acyclic. The witness is the first cycle the
// depth-first search discovers, not necessarily the shortest one.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
// The graph is read-locked for the whole scan, which is O(V+E).
func (g *Graph[N]) Cycle() ([]N, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[N]bool, len(g.edges))

	for start := range g.edges {
		if visited[start] {
			continue
		}
		if cycle, ok := g.cycleFrom(start, visited); ok {
			return cycle, true
		}
	}
	return nil, false
}

// frame is one level of the iterative depth-first search.
type frame[N comparable] struct {
	node N
	next []N
	idx  int
}

// cycleFrom runs an iterative depth-first search from start. A back-edge to a
// node on the current path witnesses a cycle; the returned slice is the path
// segment from that node to the top of the stack.
func (g *Graph[N]) cycleFrom(start N, visited map[N]bool) ([]N, bool) {
	onPath := make(map[N]bool)
	var path []N
	var stack []frame[N]

	visited[start] = true
	onPath[start] = true
	path = append(path, start)
	stack = append(stack, frame[N]{node: start, next: g.targetsOf(start)})

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.idx < len(top.next) {
			n := top.next[top.idx]
			top.idx++

			if onPath[n] {
				// back-edge: the cycle is the path from n to the stack top
				for i, p := range path {
					if p == n {
						cycle := make([]N, len(path)-i)
						copy(cycle, path[i:])
						return cycle, true
					}
				}
			}
			if !visited[n] {
				visited[n] = true
				onPath[n] = true
				path = append(path, n)
				stack = append(stack, frame[N]{node: n, next: g.targetsOf(n)})
			}
			continue
		}

		// exhausted all targets, unwind
		stack = stack[:len(stack)-1]
		onPath[top.node] = false
		path = path[:len(path)-1]
	}
	return nil, false
}

// targetsOf snapshots the outgoing edges of a node. Must be called with at
// least the read lock held.
func (g *Graph[N]) targetsOf(n N) []N {
	targets, ok := g.edges[n]
	if !ok {
		return nil
	}
	out := make([]N, 0, len(targets))
	for t := range targets {
		out = append(out, t)
	}
	return out
}
