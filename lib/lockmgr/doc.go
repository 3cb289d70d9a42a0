// Package lockmgr implements an in-process keyed lock manager: independent
// callers acquire exclusive, per-key transactions, deadlocks among waiters
// are detected and resolved by forcibly aborting a victim, and locks that are
// abandoned or held too long are reclaimed. It is the substrate beneath the
// synchronized collection in lib/synclist, which acquires one lock per index
// before mutating it.
//
// Core Functionality:
//   - Timeout-bounded lock acquisition through per-context owner handles
//   - Idempotent release with per-owner bulk release (EndAll)
//   - Periodic eviction of idle, unheld lock records
//   - A per-hold max-duration guard that force-ends overstaying transactions
//   - Wait-for-graph deadlock detection with a configurable victim policy
//
// Implementation Approach:
//
//	The lock table is a concurrent map (xsync.MapOf) from key to lock record,
//	created lazily on first touch. Each record carries a one-slot semaphore
//	channel as its exclusive primitive plus timestamps and the armed guard
//	timer, all guarded by a record-level mutex so the background sweeps never
//	read torn state.
//
//	- Acquisition: TryStart blocks on the semaphore for at most the supplied
//	  timeout. On success the acquisition timestamps are stamped, the guard
//	  is armed and the wait-for graph records a holding edge (key -> owner).
//	  On timeout a waiting edge (owner -> key) is recorded and false is
//	  returned; contention is an ordinary, recoverable result, never an
//	  error.
//
//	- Release: End releases the primitive only if the calling owner holds
//	  it; calling it for a key held by someone else (or by nobody) is a safe
//	  no-op, so disposal paths can release unconditionally.
//
//	- Forced termination: both the max-duration guard and the deadlock
//	  resolver conclude a transaction by writing a one-shot Outcome into the
//	  channel obtainable via Watch. The original acquirer (or whoever
//	  supervises it) observes the outcome there; nothing is thrown on a
//	  background timer's own execution context.
//
//	- Deadlock resolution: the resolver periodically asks the wait-for graph
//	  for a cycle and terminates exactly one victim per detection cycle,
//	  chosen by the configured strategy (terminate-oldest or
//	  terminate-newest over the acquisition timestamps of the cycle's keys).
//
// Fairness and Reentrancy:
//
//	Acquisition is not fair: there is no FIFO ordering among contenders, any
//	waiter may win when the primitive frees up. The primitive is not
//	reentrant; an owner re-acquiring a key it already holds blocks on itself
//	until its timeout and then reports failure.
//
// Thread Safety:
//
//	All exported types are safe for concurrent use. There is no global lock:
//	the table's own concurrency control, per-record mutexes and the graph's
//	internal mutex are the only serialization points, so sweeps and
//	foreground callers proceed independently.
//
// Usage Example:
//
//	mgr := lockmgr.NewLockManager[string](nil)
//	defer mgr.Close()
//
//	owner := mgr.NewOwner()
//	if owner.TryStart("resource:123") {
//	    outcome, _ := owner.Watch("resource:123")
//
//	    // ... use the resource ...
//
//	    owner.End("resource:123")
//	    if (<-outcome) != lockmgr.OutcomeReleased {
//	        // the transaction was force-ended before we released it
//	    }
//	}
package lockmgr
