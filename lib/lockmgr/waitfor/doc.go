// Package waitfor implements the directed wait-for graph used for deadlock
// detection. Nodes are opaque comparable values supplied by the caller; the
// lockmgr package instantiates the graph with tagged nodes so that owner
// (transaction) nodes and resource (key) nodes can never collide.
//
// An edge A -> B means "A is waiting for B" or, for resource nodes,
// "B currently holds A". A cycle through the graph therefore witnesses a
// deadlock among the participating transactions.
//
// Cycle detection is depth-first with an explicit stack (no recursion) and
// runs in O(V+E). Self-loops and disconnected subgraphs are handled.
//
// Thread Safety:
//
//	All exported methods are safe for concurrent use. The graph is guarded
//	by a single read-write mutex; it is logically a shared resource distinct
//	from the locks it describes and must never be mutated without it.
package waitfor
