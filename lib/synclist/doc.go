// Package synclist implements a synchronized indexable collection on top of
// the lock manager in lib/lockmgr. Every index-mutating operation first
// acquires the per-index lock; a failed acquisition surfaces as ErrAcquire to
// the caller instead of blocking indefinitely.
//
// Access happens through sessions. A Session wraps one lockmgr owner handle
// (one execution context): it keeps the index locks it acquires so a sequence
// of operations on the same indices stays atomic with respect to other
// sessions, and Close bulk-releases everything the session still holds. A
// Session is not safe for concurrent use, create one session per goroutine.
//
// Structural operations (Append) serialize on a reserved structural lock
// index that can never collide with an element index; the structural lock is
// released as soon as the operation completes.
package synclist
