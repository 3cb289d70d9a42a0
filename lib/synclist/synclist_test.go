package synclist

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bugzyGeek/DataSyncQuanta/lib/lockmgr"
)

func quietConfig() *lockmgr.Config {
	cfg := lockmgr.DefaultConfig()
	cfg.EvictionInterval = time.Hour
	cfg.DeadlockInterval = time.Hour
	return cfg
}

func newList(t *testing.T, values ...int) *SyncList[int] {
	t.Helper()
	l := New[int](quietConfig())
	s := l.NewSession()
	defer s.Close()
	for _, v := range values {
		if _, err := s.Append(v); err != nil {
			t.Fatalf("Append(%d): %v", v, err)
		}
	}
	return l
}

func TestAppendGetSet(t *testing.T) {
	l := newList(t, 10, 20, 30)
	defer l.Close()

	if l.Len() != 3 {
		t.Fatalf("expected len 3, got %d", l.Len())
	}

	s := l.NewSession()
	defer s.Close()

	v, err := s.Get(1)
	if err != nil {
		t.Fatalf("Get(1): %v", err)
	}
	if v != 20 {
		t.Errorf("expected 20, got %d", v)
	}

	if err := s.Set(1, 21); err != nil {
		t.Fatalf("Set(1): %v", err)
	}
	if v, _ := s.Get(1); v != 21 {
		t.Errorf("expected 21 after Set, got %d", v)
	}
}

func TestOutOfRange(t *testing.T) {
	l := newList(t, 1)
	defer l.Close()

	s := l.NewSession()
	defer s.Close()

	if _, err := s.Get(5); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if err := s.Set(-1, 0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestAcquisitionFailureSurfaces(t *testing.T) {
	l := newList(t, 1, 2)
	defer l.Close()

	first := l.NewSessionTimeout(0)
	defer first.Close()

	if err := first.Set(0, 11); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// a second context cannot touch the locked index
	second := l.NewSessionTimeout(0)
	defer second.Close()

	if _, err := second.Get(0); !errors.Is(err, ErrAcquire) {
		t.Errorf("expected ErrAcquire for a foreign-held index, got %v", err)
	}
	// but an unlocked index works
	if _, err := second.Get(1); err != nil {
		t.Errorf("Get(1): %v", err)
	}
}

func TestSessionRetainsLocks(t *testing.T) {
	l := newList(t, 1)
	defer l.Close()

	s := l.NewSessionTimeout(0)
	if _, err := s.Get(0); err != nil {
		t.Fatalf("Get: %v", err)
	}

	// repeated operations on the same index reuse the held lock instead of
	// self-blocking on the non-reentrant primitive
	if err := s.Set(0, 2); err != nil {
		t.Fatalf("Set on an already-held index: %v", err)
	}
	if got := s.Indices(); len(got) != 1 || got[0] != 0 {
		t.Errorf("expected session to hold exactly index 0, got %v", got)
	}
}

func TestBulkReleaseOnClose(t *testing.T) {
	l := newList(t, 1, 2, 3)
	defer l.Close()

	s := l.NewSessionTimeout(0)
	for i := 0; i < 3; i++ {
		if err := s.Set(i, i*10); err != nil {
			t.Fatalf("Set(%d): %v", i, err)
		}
	}

	mgr := l.Manager()
	for i := 0; i < 3; i++ {
		if !mgr.Held(i) {
			t.Fatalf("expected index %d to be held by the session", i)
		}
	}

	s.Close()

	for i := 0; i < 3; i++ {
		if mgr.Held(i) {
			t.Errorf("expected index %d to be released on session close", i)
		}
	}
}

func TestSwapOrdering(t *testing.T) {
	l := newList(t, 1, 2, 3, 4)
	defer l.Close()

	var wg sync.WaitGroup
	wg.Add(2)

	// two sessions swapping the same pair in opposite orders must not
	// deadlock, acquisition is ordered by index
	for g := 0; g < 2; g++ {
		go func(g int) {
			defer wg.Done()
			s := l.NewSessionTimeout(2 * time.Second)
			defer s.Close()
			for n := 0; n < 50; n++ {
				var err error
				if g == 0 {
					err = s.Swap(1, 3)
				} else {
					err = s.Swap(3, 1)
				}
				if err != nil {
					t.Errorf("Swap: %v", err)
					return
				}
				s.Release(1)
				s.Release(3)
			}
		}(g)
	}
	wg.Wait()

	s := l.NewSession()
	defer s.Close()
	a, _ := s.Get(1)
	b, _ := s.Get(3)
	if a+b != 2+4 {
		t.Errorf("swap corrupted elements: got %d and %d", a, b)
	}
}

func TestConcurrentSessions(t *testing.T) {
	l := newList(t, 0)
	defer l.Close()

	const (
		workers    = 8
		iterations = 100
	)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for n := 0; n < iterations; n++ {
				s := l.NewSessionTimeout(5 * time.Second)
				v, err := s.Get(0)
				if err != nil {
					t.Errorf("Get: %v", err)
					s.Close()
					return
				}
				if err := s.Set(0, v+1); err != nil {
					t.Errorf("Set: %v", err)
					s.Close()
					return
				}
				s.Close()
			}
		}()
	}
	wg.Wait()

	s := l.NewSession()
	defer s.Close()
	v, err := s.Get(0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != workers*iterations {
		t.Errorf("expected %d, got %d (per-index locking violated)", workers*iterations, v)
	}
}
