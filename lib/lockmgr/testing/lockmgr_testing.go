package testing

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bugzyGeek/DataSyncQuanta/lib/lockmgr"
)

// ManagerFactory is a function that creates a new lock manager instance with
// the given configuration (nil = defaults).
type ManagerFactory func(cfg *lockmgr.Config) lockmgr.ILockManager[string]

// RunLockManagerTests runs a comprehensive test suite for an ILockManager
// implementation.
func RunLockManagerTests(t *testing.T, name string, factory ManagerFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("AcquireRelease", func(t *testing.T) {
			testAcquireRelease(t, factory)
		})

		t.Run("MutualExclusion", func(t *testing.T) {
			testMutualExclusion(t, factory)
		})

		t.Run("ContentionHandoff", func(t *testing.T) {
			testContentionHandoff(t, factory)
		})

		t.Run("ReleaseIdempotence", func(t *testing.T) {
			testReleaseIdempotence(t, factory)
		})

		t.Run("NonReentrant", func(t *testing.T) {
			testNonReentrant(t, factory)
		})

		t.Run("OwnerBookkeeping", func(t *testing.T) {
			testOwnerBookkeeping(t, factory)
		})

		t.Run("Eviction", func(t *testing.T) {
			testEviction(t, factory)
		})

		t.Run("NoLostHolds", func(t *testing.T) {
			testNoLostHolds(t, factory)
		})

		t.Run("MaxDurationGuard", func(t *testing.T) {
			testMaxDurationGuard(t, factory)
		})

		t.Run("DeadlockResolution", func(t *testing.T) {
			testDeadlockResolution(t, factory)
		})

		t.Run("VictimStrategyOldest", func(t *testing.T) {
			testVictimStrategy(t, factory, lockmgr.StrategyTerminateOldest)
		})

		t.Run("VictimStrategyNewest", func(t *testing.T) {
			testVictimStrategy(t, factory, lockmgr.StrategyTerminateNewest)
		})

		t.Run("SynchronizedCounter", func(t *testing.T) {
			testSynchronizedCounter(t, factory)
		})

		t.Run("Close", func(t *testing.T) {
			testClose(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// quietConfig returns a config whose sweeps effectively never fire, so tests
// that only exercise the foreground API are not disturbed by them.
func quietConfig() *lockmgr.Config {
	cfg := lockmgr.DefaultConfig()
	cfg.EvictionInterval = time.Hour
	cfg.DeadlockInterval = time.Hour
	return cfg
}

// awaitOutcome waits for a single outcome with a deadline.
func awaitOutcome(t *testing.T, ch <-chan lockmgr.Outcome, timeout time.Duration) (lockmgr.Outcome, bool) {
	t.Helper()
	select {
	case oc := <-ch:
		return oc, true
	case <-time.After(timeout):
		return 0, false
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testAcquireRelease(t *testing.T, factory ManagerFactory) {
	mgr := factory(quietConfig())
	defer mgr.Close()

	owner := mgr.NewOwner()

	if !owner.TryStartTimeout("k1", 0) {
		t.Fatal("expected to acquire uncontended key")
	}
	if !mgr.Held("k1") {
		t.Error("expected key to be reported as held")
	}

	outcome, ok := owner.Watch("k1")
	if !ok {
		t.Fatal("expected Watch to return the outcome channel for a held key")
	}

	owner.End("k1")

	if mgr.Held("k1") {
		t.Error("expected key to be unheld after End")
	}

	oc, ok := awaitOutcome(t, outcome, time.Second)
	if !ok {
		t.Fatal("expected an outcome after End")
	}
	if oc != lockmgr.OutcomeReleased {
		t.Errorf("expected OutcomeReleased, got %s", oc)
	}
}

func testMutualExclusion(t *testing.T, factory ManagerFactory) {
	mgr := factory(quietConfig())
	defer mgr.Close()

	const contenders = 16

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		winner    lockmgr.IOwner[string]
		winnerMu  sync.Mutex
	)

	wg.Add(contenders)
	for i := 0; i < contenders; i++ {
		go func() {
			defer wg.Done()
			owner := mgr.NewOwner()
			if owner.TryStartTimeout("shared", 0) {
				successes.Add(1)
				winnerMu.Lock()
				winner = owner
				winnerMu.Unlock()
			}
		}()
	}
	wg.Wait()

	if got := successes.Load(); got != 1 {
		t.Fatalf("expected exactly 1 successful zero-timeout acquisition, got %d", got)
	}

	// still held until the winner releases
	probe := mgr.NewOwner()
	if probe.TryStartTimeout("shared", 0) {
		t.Fatal("expected acquisition to fail while the winner holds the key")
	}

	winner.End("shared")

	if !probe.TryStartTimeout("shared", 0) {
		t.Fatal("expected acquisition to succeed after the winner released")
	}
	probe.End("shared")
}

func testContentionHandoff(t *testing.T, factory ManagerFactory) {
	mgr := factory(quietConfig())
	defer mgr.Close()

	a := mgr.NewOwner()
	b := mgr.NewOwner()

	if !a.TryStartTimeout("k1", 0) {
		t.Fatal("A: expected to acquire k1")
	}
	if b.TryStartTimeout("k1", 0) {
		t.Fatal("B: expected acquisition to fail while A holds k1")
	}

	a.End("k1")

	if !b.TryStartTimeout("k1", 0) {
		t.Fatal("B: expected to acquire k1 after A released it")
	}
	b.End("k1")
}

func testReleaseIdempotence(t *testing.T, factory ManagerFactory) {
	mgr := factory(quietConfig())
	defer mgr.Close()

	owner := mgr.NewOwner()
	other := mgr.NewOwner()

	// ending a key nobody holds is a safe no-op
	owner.End("ghost")

	if !owner.TryStartTimeout("k1", 0) {
		t.Fatal("expected to acquire k1")
	}

	// ending a key held by someone else is a safe no-op
	other.End("k1")
	if !mgr.Held("k1") {
		t.Fatal("expected k1 to remain held after a foreign End")
	}

	owner.End("k1")
	owner.End("k1") // second End from the same context has no effect

	if mgr.Held("k1") {
		t.Error("expected k1 to be unheld")
	}

	// the lock must still work
	if !other.TryStartTimeout("k1", 0) {
		t.Fatal("expected to acquire k1 after double release")
	}
	other.End("k1")
}

func testNonReentrant(t *testing.T, factory ManagerFactory) {
	mgr := factory(quietConfig())
	defer mgr.Close()

	owner := mgr.NewOwner()
	if !owner.TryStartTimeout("k1", 0) {
		t.Fatal("expected to acquire k1")
	}

	start := time.Now()
	if owner.TryStartTimeout("k1", 30*time.Millisecond) {
		t.Fatal("expected re-acquisition of a held key to fail")
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("expected the re-acquisition to block for the timeout, returned after %v", elapsed)
	}

	owner.End("k1")
}

func testOwnerBookkeeping(t *testing.T, factory ManagerFactory) {
	mgr := factory(quietConfig())
	defer mgr.Close()

	owner := mgr.NewOwner()
	keys := []string{"a", "b", "c"}
	for _, k := range keys {
		if !owner.TryStartTimeout(k, 0) {
			t.Fatalf("expected to acquire %q", k)
		}
	}

	if got := owner.Keys(); len(got) != len(keys) {
		t.Fatalf("expected %d tracked keys, got %d", len(keys), len(got))
	}

	owner.EndAll()

	if got := owner.Keys(); len(got) != 0 {
		t.Fatalf("expected no tracked keys after EndAll, got %d", len(got))
	}
	for _, k := range keys {
		if mgr.Held(k) {
			t.Errorf("expected %q to be unheld after EndAll", k)
		}
	}
}

func testEviction(t *testing.T, factory ManagerFactory) {
	cfg := quietConfig()
	cfg.ExpirationTime = 30 * time.Millisecond
	cfg.EvictionInterval = 15 * time.Millisecond

	mgr := factory(cfg)
	defer mgr.Close()

	owner := mgr.NewOwner()
	for _, k := range []string{"a", "b", "c"} {
		if !owner.TryStartTimeout(k, 0) {
			t.Fatalf("expected to acquire %q", k)
		}
		owner.End(k)
	}

	if mgr.Len() == 0 {
		t.Fatal("expected live records before the sweep")
	}

	// several sweep cycles past the expiration threshold
	deadline := time.Now().Add(2 * time.Second)
	for mgr.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if got := mgr.Len(); got != 0 {
		t.Errorf("expected all idle records to be evicted, %d remain", got)
	}

	// an evicted key is simply recreated lazily on next touch
	if !owner.TryStartTimeout("a", 0) {
		t.Fatal("expected to re-acquire an evicted key")
	}
	owner.End("a")
}

func testNoLostHolds(t *testing.T, factory ManagerFactory) {
	cfg := quietConfig()
	cfg.ExpirationTime = 20 * time.Millisecond
	cfg.EvictionInterval = 10 * time.Millisecond

	mgr := factory(cfg)
	defer mgr.Close()

	owner := mgr.NewOwner()
	if !owner.TryStartTimeout("pinned", 0) {
		t.Fatal("expected to acquire the key")
	}

	// hold the key well past its expiration window
	time.Sleep(150 * time.Millisecond)

	if !mgr.Held("pinned") {
		t.Fatal("the sweeper must never remove a held record")
	}
	probe := mgr.NewOwner()
	if probe.TryStartTimeout("pinned", 0) {
		t.Fatal("expected the key to still be exclusively held")
	}

	owner.End("pinned")
	if !probe.TryStartTimeout("pinned", 0) {
		t.Fatal("expected the key to be acquirable after release")
	}
	probe.End("pinned")
}

func testMaxDurationGuard(t *testing.T, factory ManagerFactory) {
	cfg := quietConfig()
	cfg.MaxLockDuration = 40 * time.Millisecond

	mgr := factory(cfg)
	defer mgr.Close()

	owner := mgr.NewOwner()
	if !owner.TryStartTimeout("k1", 0) {
		t.Fatal("expected to acquire k1")
	}
	outcome, ok := owner.Watch("k1")
	if !ok {
		t.Fatal("expected an outcome channel")
	}

	oc, ok := awaitOutcome(t, outcome, 2*time.Second)
	if !ok {
		t.Fatal("expected the guard to force-end the transaction")
	}
	if oc != lockmgr.OutcomeTimedOut {
		t.Fatalf("expected OutcomeTimedOut, got %s", oc)
	}
	if !errors.Is(oc.Err(), lockmgr.ErrTxnTimedOut) {
		t.Errorf("expected Err() to map to ErrTxnTimedOut")
	}

	if mgr.Held("k1") {
		t.Error("expected the key to be unheld after the guard fired")
	}

	// ending the already force-ended transaction is a safe no-op
	owner.End("k1")

	// the key is immediately reusable, the stale guard of the previous hold
	// must not kill the new one
	other := mgr.NewOwner()
	if !other.TryStartTimeout("k1", 0) {
		t.Fatal("expected to acquire k1 after the forced end")
	}
	time.Sleep(20 * time.Millisecond)
	if !mgr.Held("k1") {
		t.Error("the new hold was force-ended prematurely")
	}
	other.End("k1")
}

func testDeadlockResolution(t *testing.T, factory ManagerFactory) {
	cfg := quietConfig()
	cfg.DeadlockInterval = 20 * time.Millisecond

	mgr := factory(cfg)
	defer mgr.Close()

	a := mgr.NewOwner()
	b := mgr.NewOwner()

	if !a.TryStartTimeout("k1", 0) {
		t.Fatal("A: expected to acquire k1")
	}
	time.Sleep(5 * time.Millisecond) // deterministic acquisition order
	if !b.TryStartTimeout("k2", 0) {
		t.Fatal("B: expected to acquire k2")
	}

	watchA, _ := a.Watch("k1")
	watchB, _ := b.Watch("k2")

	// A holds k1 waiting for k2, B holds k2 waiting for k1
	if a.TryStartTimeout("k2", 0) {
		t.Fatal("A: expected k2 to be held by B")
	}
	if b.TryStartTimeout("k1", 0) {
		t.Fatal("B: expected k1 to be held by A")
	}

	// after one detection interval exactly one of the two is force-aborted
	var aborted, survived int
	select {
	case oc := <-watchA:
		if oc != lockmgr.OutcomeAborted {
			t.Fatalf("A: expected OutcomeAborted, got %s", oc)
		}
		aborted++
	case oc := <-watchB:
		if oc != lockmgr.OutcomeAborted {
			t.Fatalf("B: expected OutcomeAborted, got %s", oc)
		}
		aborted++
		survived = 1 // B aborted, A survives
	case <-time.After(2 * time.Second):
		t.Fatal("expected the resolver to break the deadlock")
	}

	// the survivor can now acquire its awaited key
	survivor, awaited := b, "k1"
	if survived == 1 {
		survivor, awaited = a, "k2"
	}

	acquired := false
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if survivor.TryStartTimeout(awaited, 20*time.Millisecond) {
			acquired = true
			break
		}
	}
	if !acquired {
		t.Fatal("expected the surviving transaction to acquire its awaited key")
	}

	// only one victim per cycle: the survivor's own hold is untouched
	select {
	case oc := <-watchA:
		if survived == 1 {
			t.Fatalf("A survived but received outcome %s", oc)
		}
	case oc := <-watchB:
		if survived == 0 {
			t.Fatalf("B survived but received outcome %s", oc)
		}
	case <-time.After(100 * time.Millisecond):
	}

	a.EndAll()
	b.EndAll()
}

func testVictimStrategy(t *testing.T, factory ManagerFactory, strategy lockmgr.Strategy) {
	cfg := quietConfig()
	cfg.DeadlockInterval = 20 * time.Millisecond
	cfg.Strategy = strategy

	mgr := factory(cfg)
	defer mgr.Close()

	// three transactions with known, ordered acquisition times
	owners := []lockmgr.IOwner[string]{mgr.NewOwner(), mgr.NewOwner(), mgr.NewOwner()}
	keys := []string{"k1", "k2", "k3"}
	watches := make([]<-chan lockmgr.Outcome, len(keys))

	for i, k := range keys {
		if !owners[i].TryStartTimeout(k, 0) {
			t.Fatalf("expected to acquire %q", k)
		}
		watches[i], _ = owners[i].Watch(k)
		time.Sleep(20 * time.Millisecond) // strictly increasing acquiredAt
	}

	// k1 -> held by 0 waiting for k2, 1 waits k3, 2 waits k1: a 3-cycle
	if owners[0].TryStartTimeout("k2", 0) || owners[1].TryStartTimeout("k3", 0) || owners[2].TryStartTimeout("k1", 0) {
		t.Fatal("expected all cross acquisitions to fail")
	}

	want := 0 // oldest hold is k1
	if strategy == lockmgr.StrategyTerminateNewest {
		want = 2 // newest hold is k3
	}

	oc, ok := awaitOutcome(t, watches[want], 2*time.Second)
	if !ok {
		t.Fatalf("expected the %s strategy to abort %q", strategy, keys[want])
	}
	if oc != lockmgr.OutcomeAborted {
		t.Fatalf("expected OutcomeAborted, got %s", oc)
	}

	// the other two transactions keep their holds
	for i := range keys {
		if i == want {
			continue
		}
		select {
		case oc := <-watches[i]:
			t.Fatalf("unexpected outcome %s for %q", oc, keys[i])
		default:
		}
	}

	for _, o := range owners {
		o.EndAll()
	}
}

func testSynchronizedCounter(t *testing.T, factory ManagerFactory) {
	mgr := factory(quietConfig())
	defer mgr.Close()

	const (
		workers    = 8
		iterations = 200
	)

	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			owner := mgr.NewOwner()
			for j := 0; j < iterations; j++ {
				if !owner.TryStartTimeout("counter", 5*time.Second) {
					t.Error("expected to acquire the counter key within the timeout")
					return
				}
				counter++
				owner.End("counter")
			}
		}()
	}
	wg.Wait()

	if counter != workers*iterations {
		t.Errorf("expected counter=%d, got %d (mutual exclusion violated)", workers*iterations, counter)
	}
}

func testClose(t *testing.T, factory ManagerFactory) {
	mgr := factory(quietConfig())

	owner := mgr.NewOwner()
	if !owner.TryStartTimeout("k1", 0) {
		t.Fatal("expected to acquire k1")
	}

	if err := mgr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	// Close must not force-release locks still externally held
	if !mgr.Held("k1") {
		t.Error("expected k1 to remain held after Close")
	}

	// no new transactions on a closed manager
	if mgr.NewOwner().TryStartTimeout("k2", 0) {
		t.Error("expected acquisition on a closed manager to fail")
	}

	owner.End("k1")
}
