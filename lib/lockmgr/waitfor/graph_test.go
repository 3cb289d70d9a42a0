package waitfor

import (
	"fmt"
	"sync"
	"testing"
)

func TestNoCycle(t *testing.T) {
	g := NewGraph[string]()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")

	if g.HasCycle() {
		t.Error("expected no cycle in A->B->C")
	}
	if nodes, ok := g.Cycle(); ok {
		t.Errorf("expected no cycle witness, got %v", nodes)
	}
}

func TestSimpleCycle(t *testing.T) {
	g := NewGraph[string]()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")

	nodes, ok := g.Cycle()
	if !ok {
		t.Fatal("expected a cycle in A->B->C->A")
	}

	want := map[string]bool{"A": true, "B": true, "C": true}
	if len(nodes) != len(want) {
		t.Fatalf("expected cycle over {A,B,C}, got %v", nodes)
	}
	for _, n := range nodes {
		if !want[n] {
			t.Errorf("unexpected node %q in cycle %v", n, nodes)
		}
	}

	// the witness is in traversal order: every node points to its successor
	for i, n := range nodes {
		next := nodes[(i+1)%len(nodes)]
		if _, ok := g.edges[n][next]; !ok {
			t.Errorf("cycle %v is not a closed walk: missing edge %q->%q", nodes, n, next)
		}
	}
}

func TestSelfLoop(t *testing.T) {
	g := NewGraph[string]()
	g.AddEdge("A", "A")

	nodes, ok := g.Cycle()
	if !ok {
		t.Fatal("expected a self-loop to count as a cycle")
	}
	if len(nodes) != 1 || nodes[0] != "A" {
		t.Errorf("expected witness [A], got %v", nodes)
	}
}

func TestDisconnectedComponents(t *testing.T) {
	g := NewGraph[string]()
	// acyclic component
	g.AddEdge("A", "B")
	// cyclic component, disconnected from the first
	g.AddEdge("X", "Y")
	g.AddEdge("Y", "X")

	nodes, ok := g.Cycle()
	if !ok {
		t.Fatal("expected the cycle in the second component to be found")
	}
	for _, n := range nodes {
		if n == "A" || n == "B" {
			t.Errorf("acyclic component leaked into the witness: %v", nodes)
		}
	}
}

func TestRemoveEdgeBreaksCycle(t *testing.T) {
	g := NewGraph[string]()
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")

	if !g.HasCycle() {
		t.Fatal("expected a 2-cycle")
	}

	g.RemoveEdge("B", "A")
	if g.HasCycle() {
		t.Error("expected the cycle to be broken")
	}
	if g.Len() != 1 {
		t.Errorf("expected B to be dropped with its last outgoing edge, Len=%d", g.Len())
	}

	// removing non-existent edges is a no-op
	g.RemoveEdge("B", "A")
	g.RemoveEdge("nope", "nada")
}

func TestRemoveNode(t *testing.T) {
	g := NewGraph[string]()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")
	g.AddEdge("X", "B")

	g.RemoveNode("B")

	if g.HasCycle() {
		t.Error("expected removing B to break the cycle")
	}
	// X lost its only edge and must be gone too
	if g.Len() != 1 {
		t.Errorf("expected only C->A to remain, Len=%d", g.Len())
	}
}

func TestLargeGraphIterative(t *testing.T) {
	// a long chain closed into a single huge cycle, deep enough that a
	// recursive traversal would be at risk of blowing the stack
	const n = 200000

	g := NewGraph[int]()
	for i := 0; i < n; i++ {
		g.AddEdge(i, (i+1)%n)
	}

	nodes, ok := g.Cycle()
	if !ok {
		t.Fatal("expected the chain cycle to be found")
	}
	if len(nodes) != n {
		t.Errorf("expected a witness of %d nodes, got %d", n, len(nodes))
	}
}

func TestConcurrentMutation(t *testing.T) {
	g := NewGraph[string]()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				from := fmt.Sprintf("n%d-%d", w, i%10)
				to := fmt.Sprintf("n%d-%d", w, (i+1)%10)
				g.AddEdge(from, to)
				g.HasCycle()
				g.RemoveEdge(from, to)
			}
		}(w)
	}
	wg.Wait()
}
