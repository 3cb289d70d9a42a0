package lockmgr

import (
	"time"
)

// ILockManager defines the interface for a keyed lock provider. One lock
// record exists per key; records are created lazily on first touch and
// reclaimed by the eviction sweeper once idle and unheld.
type ILockManager[K comparable] interface {
	// NewOwner creates a handle representing one execution context. All
	// acquisitions happen through an owner; the owner tracks its acquired
	// keys so they can be bulk-released with EndAll.
	NewOwner() IOwner[K]

	// Held reports whether the given key is currently held by any owner.
	Held(key K) bool

	// Len returns the number of live lock records in the table, including
	// unheld records the sweeper has not evicted yet.
	Len() int

	// Config returns the immutable configuration of this manager instance.
	Config() Config

	// Close stops the eviction sweeper and the deadlock resolver. Locks that
	// are still held are NOT force-released, ending them remains the
	// responsibility of their owners. Close is idempotent.
	Close() error
}

// IOwner is the per-context handle a caller uses to run transactions. An
// owner must not be shared between logically independent execution contexts,
// otherwise the wait-for graph records wrong dependencies.
type IOwner[K comparable] interface {
	// TryStart attempts to acquire the exclusive lock for key, blocking up to
	// the manager's configured default acquisition timeout. It returns true
	// on success and false if the timeout elapsed. It never panics and never
	// blocks past the timeout.
	//
	// The lock is not reentrant: an owner re-acquiring a key it already
	// holds blocks on itself until the timeout and then reports failure.
	TryStart(key K) bool

	// TryStartTimeout behaves like TryStart with an explicit timeout.
	// A timeout <= 0 makes the attempt non-blocking.
	TryStartTimeout(key K, timeout time.Duration) bool

	// End releases the lock for key if this owner currently holds it.
	// Ending a key not held by this owner is a safe no-op, which keeps
	// disposal paths idempotent.
	End(key K)

	// EndAll releases every key this owner still holds.
	EndAll()

	// Keys returns the keys this owner has acquired and not yet ended
	// itself. A key whose transaction was force-ended by the manager may
	// still be listed until End or EndAll is called for it.
	Keys() []K

	// Watch returns the outcome channel for this owner's current hold on
	// key. The channel is buffered and written exactly once by whichever
	// actor concludes the transaction: End (OutcomeReleased), the
	// max-duration guard (OutcomeTimedOut) or the deadlock resolver
	// (OutcomeAborted). It returns false if this owner does not hold key.
	Watch(key K) (<-chan Outcome, bool)
}
