package lockmgr

import (
	"sync"
	"time"
)

// --------------------------------------------------------------------------
// Lock Record
// --------------------------------------------------------------------------

// lockRecord is the per-key metadata of the lock table. The exclusive
// primitive is a one-slot semaphore channel; acquisition is a send, release a
// receive. All other mutable fields are guarded by mu so the two background
// sweepers never see torn state while a foreground caller mutates it.
type lockRecord struct {
	sem chan struct{} // exclusive primitive, cap 1

	mu           sync.Mutex
	locked       bool          // true iff sem is currently held
	holder       uint64        // owner id of the holder, 0 when unheld
	generation   uint64        // incremented on every successful acquisition
	acquiredAt   time.Time     // when the current hold started
	lastAccessed time.Time     // updated on every acquisition attempt
	guard        *time.Timer   // armed max-duration timer, nil when unheld
	outcome      chan Outcome  // one-shot result slot of the current hold
	waiters      int           // callers currently blocked in tryAcquire
}

func newLockRecord() *lockRecord {
	return &lockRecord{
		sem:          make(chan struct{}, 1),
		lastAccessed: time.Now(),
	}
}

// touch stamps lastAccessed and registers a pending acquisition attempt. The
// waiter count keeps the eviction sweeper from removing a record somebody is
// still blocked on.
func (r *lockRecord) touch() {
	r.mu.Lock()
	r.lastAccessed = time.Now()
	r.waiters++
	r.mu.Unlock()
}

// untouch unregisters a pending acquisition attempt.
func (r *lockRecord) untouch() {
	r.mu.Lock()
	r.waiters--
	r.mu.Unlock()
}

// tryAcquire attempts to take the semaphore, blocking for at most timeout.
// A timeout <= 0 makes the attempt non-blocking. There is no FIFO ordering
// among blocked callers, any waiter may win when the slot frees up.
func (r *lockRecord) tryAcquire(timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case r.sem <- struct{}{}:
			return true
		default:
			return false
		}
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case r.sem <- struct{}{}:
		return true
	case <-t.C:
		return false
	}
}

// evictable reports whether the record may be removed from the table: it must
// be unheld, have no blocked waiters and have been idle since before cutoff.
// A held record is never evictable, regardless of age.
func (r *lockRecord) evictable(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.locked && r.waiters == 0 && r.lastAccessed.Before(cutoff)
}

// holdInfo returns the holder id, hold generation and acquisition time of
// the current hold.
func (r *lockRecord) holdInfo() (holder, gen uint64, acquiredAt time.Time, held bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.holder, r.generation, r.acquiredAt, r.locked
}
