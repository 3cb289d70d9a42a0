package lockmgr

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/bugzyGeek/DataSyncQuanta/lib/lockmgr/waitfor"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var pkgLogger = logger.GetLogger("lockmgr")

// --------------------------------------------------------------------------
// Wait-For Graph Nodes
// --------------------------------------------------------------------------

// node is a tagged wait-for graph node. An owner node identifies a
// transaction context by its process-unique id; a resource node carries the
// typed key itself. The tag keeps the two namespaces disjoint, so node
// identities are injective by construction and victim selection never has to
// reconstruct a key from a string form.
type node[K comparable] struct {
	resource bool
	owner    uint64
	key      K
}

func ownerNode[K comparable](id uint64) node[K] {
	return node[K]{owner: id}
}

func resourceNode[K comparable](key K) node[K] {
	return node[K]{resource: true, key: key}
}

// --------------------------------------------------------------------------
// Core Lock Manager Structure
// --------------------------------------------------------------------------

// lockMgrImpl implements ILockManager with a concurrent lock table, a shared
// wait-for graph and two independent background sweeps.
type lockMgrImpl[K comparable] struct {
	cfg   Config
	table *xsync.MapOf[K, *lockRecord]
	graph *waitfor.Graph[node[K]]

	ownerSeq atomic.Uint64
	closed   atomic.Bool
	cancel   context.CancelFunc
	done     sync.WaitGroup

	// metrics
	mAcquired   *metrics.Counter
	mContention *metrics.Counter
	mReleased   *metrics.Counter
	mGuardFired *metrics.Counter
	mDeadlocks  *metrics.Counter
	mEvicted    *metrics.Counter
}

// NewLockManager creates a new lock manager with the specified configuration
// (optional, nil selects the defaults). The eviction sweeper and the deadlock
// resolver start immediately and run until Close is called.
//
// Thread-safety: The returned manager is safe for concurrent use by any number
// of owners; the two sweeps are serialized against foreground callers only by
// the lock table's own concurrency control and per-record synchronization.
func NewLockManager[K comparable](cfg *Config) ILockManager[K] {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c = c.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())

	m := &lockMgrImpl[K]{
		cfg:    c,
		table:  xsync.NewMapOf[K, *lockRecord](),
		graph:  waitfor.NewGraph[node[K]](),
		cancel: cancel,

		mAcquired:   metrics.GetOrCreateCounter("lockmgr_acquired_total"),
		mContention: metrics.GetOrCreateCounter("lockmgr_acquire_timeouts_total"),
		mReleased:   metrics.GetOrCreateCounter("lockmgr_released_total"),
		mGuardFired: metrics.GetOrCreateCounter("lockmgr_guard_expirations_total"),
		mDeadlocks:  metrics.GetOrCreateCounter("lockmgr_deadlocks_resolved_total"),
		mEvicted:    metrics.GetOrCreateCounter("lockmgr_records_evicted_total"),
	}

	m.done.Add(2)
	go m.evictionLoop(ctx)
	go m.deadlockLoop(ctx)

	return m
}

// --------------------------------------------------------------------------
// ILockManager Interface Methods
// --------------------------------------------------------------------------

// NewOwner creates a handle representing one execution context.
func (m *lockMgrImpl[K]) NewOwner() IOwner[K] {
	return &ownerImpl[K]{
		id:   m.ownerSeq.Add(1),
		mgr:  m,
		held: make(map[K]struct{}),
	}
}

// Held reports whether the given key is currently held by any owner.
func (m *lockMgrImpl[K]) Held(key K) bool {
	rec, ok := m.table.Load(key)
	if !ok {
		return false
	}
	_, _, _, held := rec.holdInfo()
	return held
}

// Len returns the number of live lock records in the table.
func (m *lockMgrImpl[K]) Len() int {
	return m.table.Size()
}

// Config returns the immutable configuration of this manager instance.
func (m *lockMgrImpl[K]) Config() Config {
	return m.cfg
}

// Close stops both background sweeps and waits for them to exit. Locks that
// are still held are not force-released.
func (m *lockMgrImpl[K]) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		m.cancel()
		m.done.Wait()
		pkgLogger.Infof("lock manager closed")
	}
	return nil
}

// --------------------------------------------------------------------------
// Transaction API (called through owner handles)
// --------------------------------------------------------------------------

// tryStart fetches-or-creates the key's lock record and attempts to acquire
// its exclusive primitive, blocking the calling context for at most timeout.
// On failure a waiting edge is recorded in the wait-for graph; on success the
// waiting edge is replaced by a holding edge and the max-duration guard is
// armed. The fetch-or-create and the eviction sweep both go through the lock
// table's Compute, so a record can never be acquired after it was removed.
func (m *lockMgrImpl[K]) tryStart(ownerID uint64, key K, timeout time.Duration) bool {
	if m.closed.Load() {
		return false
	}

	rec, _ := m.table.Compute(key, func(cur *lockRecord, loaded bool) (*lockRecord, bool) {
		if !loaded {
			cur = newLockRecord()
		}
		cur.touch()
		return cur, false
	})

	acquired := rec.tryAcquire(timeout)
	rec.untouch()

	own := ownerNode[K](ownerID)
	res := resourceNode(key)

	if !acquired {
		m.graph.AddEdge(own, res)
		m.mContention.Inc()
		return false
	}

	now := time.Now()
	rec.mu.Lock()
	rec.locked = true
	rec.holder = ownerID
	rec.generation++
	gen := rec.generation
	rec.acquiredAt = now
	rec.lastAccessed = now
	rec.outcome = make(chan Outcome, 1)
	rec.guard = time.AfterFunc(m.cfg.MaxLockDuration, func() {
		if m.forceEnd(key, gen, OutcomeTimedOut) {
			m.mGuardFired.Inc()
			pkgLogger.Warningf("transaction exceeded max lock duration of %v, force-ended", m.cfg.MaxLockDuration)
		}
	})
	rec.mu.Unlock()

	m.graph.RemoveEdge(own, res)
	m.graph.AddEdge(res, own)
	m.mAcquired.Inc()
	return true
}

// end releases the lock for key if ownerID currently holds it. Ending a key
// not held by the caller is a safe no-op.
func (m *lockMgrImpl[K]) end(ownerID uint64, key K) {
	rec, ok := m.table.Load(key)
	if !ok {
		return
	}

	rec.mu.Lock()
	if !rec.locked || rec.holder != ownerID {
		rec.mu.Unlock()
		return
	}
	m.concludeLocked(rec, OutcomeReleased)
	rec.mu.Unlock()

	m.graph.RemoveEdge(resourceNode(key), ownerNode[K](ownerID))
	<-rec.sem
	m.mReleased.Inc()
}

// forceEnd concludes the current hold on key on behalf of a background actor.
// A non-zero gen restricts the force-end to that exact hold, so a stale guard
// timer can never kill a successor transaction on the same key. It reports
// whether a hold was actually ended.
func (m *lockMgrImpl[K]) forceEnd(key K, gen uint64, oc Outcome) bool {
	rec, ok := m.table.Load(key)
	if !ok {
		return false
	}

	rec.mu.Lock()
	if !rec.locked || (gen != 0 && rec.generation != gen) {
		rec.mu.Unlock()
		return false
	}
	holder := rec.holder
	m.concludeLocked(rec, oc)
	rec.mu.Unlock()

	m.graph.RemoveEdge(resourceNode(key), ownerNode[K](holder))
	<-rec.sem
	return true
}

// concludeLocked finishes the current hold: disarms the guard, clears the
// locked state and writes the outcome exactly once. The caller must hold
// rec.mu and must drain rec.sem after releasing it.
func (m *lockMgrImpl[K]) concludeLocked(rec *lockRecord, oc Outcome) {
	if rec.guard != nil {
		rec.guard.Stop()
		rec.guard = nil
	}
	rec.locked = false
	rec.holder = 0
	if rec.outcome != nil {
		select {
		case rec.outcome <- oc:
		default:
		}
	}
}

// watch returns the outcome channel of ownerID's current hold on key.
func (m *lockMgrImpl[K]) watch(ownerID uint64, key K) (<-chan Outcome, bool) {
	rec, ok := m.table.Load(key)
	if !ok {
		return nil, false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.locked || rec.holder != ownerID || rec.outcome == nil {
		return nil, false
	}
	return rec.outcome, true
}

// dropOwner removes every wait-for edge involving the owner node. Called on
// EndAll so an abandoned context cannot leave phantom waiting edges behind.
func (m *lockMgrImpl[K]) dropOwner(ownerID uint64) {
	m.graph.RemoveNode(ownerNode[K](ownerID))
}

// --------------------------------------------------------------------------
// Eviction Sweeper
// --------------------------------------------------------------------------

// evictionLoop runs the eviction sweep on a fixed interval until the manager
// is closed.
func (m *lockMgrImpl[K]) evictionLoop(ctx context.Context) {
	defer m.done.Done()

	ticker := time.NewTicker(m.cfg.EvictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

// evictIdle removes every record that is unheld, has no blocked waiters and
// has been idle past the expiration threshold. A held record is never
// removed; a removed record is simply recreated lazily on next touch, so no
// held state can be lost.
func (m *lockMgrImpl[K]) evictIdle() {
	cutoff := time.Now().Add(-m.cfg.ExpirationTime)
	evicted := 0

	m.table.Range(func(key K, rec *lockRecord) bool {
		if !rec.evictable(cutoff) {
			return true
		}

		// re-check under the table's own synchronization, the record may
		// have been touched or replaced since the Range snapshot
		m.table.Compute(key, func(cur *lockRecord, loaded bool) (*lockRecord, bool) {
			if !loaded {
				return nil, true
			}
			if cur == rec && cur.evictable(cutoff) {
				evicted++
				return nil, true
			}
			return cur, false
		})
		return true
	})

	if evicted > 0 {
		m.mEvicted.Add(evicted)
		pkgLogger.Debugf("eviction sweep removed %d idle lock records", evicted)
	}
}

// --------------------------------------------------------------------------
// Deadlock Resolver
// --------------------------------------------------------------------------

// deadlockLoop runs the deadlock detection sweep on its own fixed interval,
// fully independent of the eviction sweeper.
func (m *lockMgrImpl[K]) deadlockLoop(ctx context.Context) {
	defer m.done.Done()

	ticker := time.NewTicker(m.cfg.DeadlockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.resolveDeadlock()
		}
	}
}

// resolveDeadlock asks the wait-for graph for a cycle and, if one exists,
// force-ends the victim selected by the configured strategy. Only one victim
// is terminated per detection cycle; remaining contention resolves on the
// next interval.
func (m *lockMgrImpl[K]) resolveDeadlock() {
	cycle, ok := m.graph.Cycle()
	if !ok {
		return
	}

	victim, gen, ok := m.chooseVictim(cycle)
	if !ok {
		// the cycle dissolved while we were looking at it
		return
	}

	// the generation pins the abort to the exact hold that was part of the
	// cycle, so a key that was released and re-acquired in the meantime is
	// left alone
	if m.forceEnd(victim, gen, OutcomeAborted) {
		m.mDeadlocks.Inc()
		pkgLogger.Warningf("deadlock detected among %d nodes, aborted one transaction (%s)",
			len(cycle), m.cfg.Strategy)
	}
}

// chooseVictim picks the resource node of the cycle whose current hold is the
// oldest or newest, per the configured strategy. The typed key travels with
// the node, no identity round-trip is needed.
func (m *lockMgrImpl[K]) chooseVictim(cycle []node[K]) (K, uint64, bool) {
	var (
		victim  K
		bestGen uint64
		bestAt  time.Time
		found   bool
	)

	for _, n := range cycle {
		if !n.resource {
			continue
		}
		rec, ok := m.table.Load(n.key)
		if !ok {
			continue
		}
		_, gen, at, held := rec.holdInfo()
		if !held {
			continue
		}

		better := !found
		switch m.cfg.Strategy {
		case StrategyTerminateNewest:
			better = better || at.After(bestAt)
		default: // StrategyTerminateOldest
			better = better || at.Before(bestAt)
		}
		if better {
			victim = n.key
			bestGen = gen
			bestAt = at
			found = true
		}
	}
	return victim, bestGen, found
}
