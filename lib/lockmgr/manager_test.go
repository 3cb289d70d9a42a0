package lockmgr

import (
	"testing"
	"time"
)

// composite keys must work without any string conversion, the node identity
// is the typed key itself
type shardKey struct {
	Source string
	Index  int
}

func TestCompositeKeys(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EvictionInterval = time.Hour
	cfg.DeadlockInterval = time.Hour

	mgr := NewLockManager[shardKey](cfg)
	defer mgr.Close()

	owner := mgr.NewOwner()

	k1 := shardKey{Source: "a", Index: 1}
	k2 := shardKey{Source: "a:1", Index: 0} // would collide under naive string joining

	if !owner.TryStartTimeout(k1, 0) {
		t.Fatal("expected to acquire k1")
	}
	if !owner.TryStartTimeout(k2, 0) {
		t.Fatal("expected to acquire k2, distinct keys must never collide")
	}

	if !mgr.Held(k1) || !mgr.Held(k2) {
		t.Error("expected both composite keys to be held")
	}

	owner.EndAll()
	if mgr.Held(k1) || mgr.Held(k2) {
		t.Error("expected both composite keys to be released")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	if cfg.ExpirationTime != DefaultExpirationTime {
		t.Errorf("ExpirationTime: expected %v, got %v", DefaultExpirationTime, cfg.ExpirationTime)
	}
	if cfg.AcquireTimeout != DefaultAcquireTimeout {
		t.Errorf("AcquireTimeout: expected %v, got %v", DefaultAcquireTimeout, cfg.AcquireTimeout)
	}
	if cfg.MaxLockDuration != DefaultMaxLockDuration {
		t.Errorf("MaxLockDuration: expected %v, got %v", DefaultMaxLockDuration, cfg.MaxLockDuration)
	}
	if cfg.EvictionInterval != DefaultEvictionInterval {
		t.Errorf("EvictionInterval: expected %v, got %v", DefaultEvictionInterval, cfg.EvictionInterval)
	}
	if cfg.DeadlockInterval != DefaultDeadlockInterval {
		t.Errorf("DeadlockInterval: expected %v, got %v", DefaultDeadlockInterval, cfg.DeadlockInterval)
	}
	if cfg.Strategy != StrategyTerminateOldest {
		t.Errorf("Strategy: expected %s, got %s", StrategyTerminateOldest, cfg.Strategy)
	}

	// partial configs keep what they set
	custom := Config{AcquireTimeout: time.Second}.withDefaults()
	if custom.AcquireTimeout != time.Second {
		t.Errorf("expected explicit AcquireTimeout to survive, got %v", custom.AcquireTimeout)
	}
}

func TestParseStrategy(t *testing.T) {
	for _, valid := range []string{"terminate-oldest", "terminate-newest"} {
		if _, err := ParseStrategy(valid); err != nil {
			t.Errorf("ParseStrategy(%q): unexpected error %v", valid, err)
		}
	}
	if _, err := ParseStrategy("terminate-random"); err == nil {
		t.Error("expected an error for an unknown strategy")
	}
}

func TestOutcomeErrMapping(t *testing.T) {
	if err := OutcomeReleased.Err(); err != nil {
		t.Errorf("OutcomeReleased.Err(): expected nil, got %v", err)
	}
	if err := OutcomeTimedOut.Err(); err != ErrTxnTimedOut {
		t.Errorf("OutcomeTimedOut.Err(): expected ErrTxnTimedOut, got %v", err)
	}
	if err := OutcomeAborted.Err(); err != ErrTxnAborted {
		t.Errorf("OutcomeAborted.Err(): expected ErrTxnAborted, got %v", err)
	}
}
