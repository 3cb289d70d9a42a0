package lockmgr

import (
	"sync"
	"time"
)

// ownerImpl implements IOwner. The held set is what the consumer contract
// calls "locks acquired by the current context"; it is guarded by its own
// mutex so EndAll can run from a supervising context.
type ownerImpl[K comparable] struct {
	id  uint64
	mgr *lockMgrImpl[K]

	mu   sync.Mutex
	held map[K]struct{}
}

// TryStart acquires the lock for key with the manager's default timeout.
func (o *ownerImpl[K]) TryStart(key K) bool {
	return o.TryStartTimeout(key, o.mgr.cfg.AcquireTimeout)
}

// TryStartTimeout acquires the lock for key, blocking up to timeout.
func (o *ownerImpl[K]) TryStartTimeout(key K, timeout time.Duration) bool {
	ok := o.mgr.tryStart(o.id, key, timeout)
	if ok {
		o.mu.Lock()
		o.held[key] = struct{}{}
		o.mu.Unlock()
	}
	return ok
}

// End releases the lock for key if this owner holds it.
func (o *ownerImpl[K]) End(key K) {
	o.mgr.end(o.id, key)
	o.mu.Lock()
	delete(o.held, key)
	o.mu.Unlock()
}

// EndAll releases every key this owner still holds and drops any waiting
// edges the owner left in the wait-for graph.
func (o *ownerImpl[K]) EndAll() {
	o.mu.Lock()
	keys := make([]K, 0, len(o.held))
	for key := range o.held {
		keys = append(keys, key)
	}
	o.mu.Unlock()

	for _, key := range keys {
		o.End(key)
	}
	o.mgr.dropOwner(o.id)
}

// Keys returns the keys this owner has acquired and not yet ended itself.
func (o *ownerImpl[K]) Keys() []K {
	o.mu.Lock()
	defer o.mu.Unlock()

	keys := make([]K, 0, len(o.held))
	for key := range o.held {
		keys = append(keys, key)
	}
	return keys
}

// Watch returns the outcome channel for this owner's current hold on key.
func (o *ownerImpl[K]) Watch(key K) (<-chan Outcome, bool) {
	return o.mgr.watch(o.id, key)
}
