package synclist

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bugzyGeek/DataSyncQuanta/lib/lockmgr"
)

// structuralIdx is the reserved lock index that guards structural mutations
// (append). Element indices are always >= 0, so it can never collide.
const structuralIdx = -1

// Errors reported at the collection boundary.
var (
	ErrAcquire    = errors.New("synclist: could not acquire the index lock")
	ErrOutOfRange = errors.New("synclist: index out of range")
)

// --------------------------------------------------------------------------
// Collection
// --------------------------------------------------------------------------

// SyncList is a synchronized indexable collection. The slice header is
// guarded by its own read-write mutex; element access is coordinated through
// the per-index locks of the embedded lock manager.
type SyncList[T any] struct {
	mgr     lockmgr.ILockManager[int]
	ownsMgr bool

	mu    sync.RWMutex
	items []T
}

// New creates an empty synchronized list with its own lock manager using the
// given configuration (nil = defaults). Closing the list closes the manager.
func New[T any](cfg *lockmgr.Config) *SyncList[T] {
	return &SyncList[T]{
		mgr:     lockmgr.NewLockManager[int](cfg),
		ownsMgr: true,
	}
}

// NewWithManager creates an empty synchronized list on an externally owned
// lock manager. The caller remains responsible for closing the manager.
func NewWithManager[T any](mgr lockmgr.ILockManager[int]) *SyncList[T] {
	return &SyncList[T]{mgr: mgr}
}

// Len returns the current number of elements.
func (l *SyncList[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Manager exposes the lock manager coordinating this list.
func (l *SyncList[T]) Manager() lockmgr.ILockManager[int] {
	return l.mgr
}

// Close closes the list's lock manager if the list owns it. Sessions must be
// closed by their creators; Close does not force-release their locks.
func (l *SyncList[T]) Close() error {
	if l.ownsMgr {
		return l.mgr.Close()
	}
	return nil
}

// checkRange validates an element index against the current length.
func (l *SyncList[T]) checkRange(i int) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.items) {
		return fmt.Errorf("%w: %d (len %d)", ErrOutOfRange, i, len(l.items))
	}
	return nil
}

// --------------------------------------------------------------------------
// Sessions
// --------------------------------------------------------------------------

// Session is the per-context view of the list. It tracks the index locks it
// has acquired and releases them all on Close.
type Session[T any] struct {
	list    *SyncList[T]
	owner   lockmgr.IOwner[int]
	timeout time.Duration
	held    map[int]struct{}
}

// NewSession creates a session using the manager's default acquisition
// timeout.
func (l *SyncList[T]) NewSession() *Session[T] {
	return l.NewSessionTimeout(l.mgr.Config().AcquireTimeout)
}

// NewSessionTimeout creates a session with an explicit per-operation
// acquisition timeout. A timeout <= 0 makes every acquisition non-blocking.
func (l *SyncList[T]) NewSessionTimeout(timeout time.Duration) *Session[T] {
	return &Session[T]{
		list:    l,
		owner:   l.mgr.NewOwner(),
		timeout: timeout,
		held:    make(map[int]struct{}),
	}
}

// acquire takes the lock for index i unless the session already holds it. A
// hold that was force-ended in the meantime (deadlock victim, max-duration
// expiry) is detected and re-acquired.
func (s *Session[T]) acquire(i int) error {
	if _, ok := s.held[i]; ok {
		if _, live := s.owner.Watch(i); live {
			return nil
		}
		// the manager force-ended this hold behind our back
		s.owner.End(i)
		delete(s.held, i)
	}

	if !s.owner.TryStartTimeout(i, s.timeout) {
		return fmt.Errorf("%w: index %d", ErrAcquire, i)
	}
	s.held[i] = struct{}{}
	return nil
}

// Get returns the element at index i, acquiring its lock first.
func (s *Session[T]) Get(i int) (T, error) {
	var zero T
	if err := s.list.checkRange(i); err != nil {
		return zero, err
	}
	if err := s.acquire(i); err != nil {
		return zero, err
	}

	s.list.mu.RLock()
	defer s.list.mu.RUnlock()
	return s.list.items[i], nil
}

// Set stores v at index i, acquiring its lock first.
func (s *Session[T]) Set(i int, v T) error {
	if err := s.list.checkRange(i); err != nil {
		return err
	}
	if err := s.acquire(i); err != nil {
		return err
	}

	s.list.mu.RLock()
	s.list.items[i] = v
	s.list.mu.RUnlock()
	return nil
}

// Swap exchanges the elements at i and j, acquiring both locks first. Locks
// are taken in ascending index order so two swapping sessions cannot
// deadlock each other.
func (s *Session[T]) Swap(i, j int) error {
	if err := s.list.checkRange(i); err != nil {
		return err
	}
	if err := s.list.checkRange(j); err != nil {
		return err
	}

	lo, hi := i, j
	if lo > hi {
		lo, hi = hi, lo
	}
	if err := s.acquire(lo); err != nil {
		return err
	}
	if lo != hi {
		if err := s.acquire(hi); err != nil {
			return err
		}
	}

	s.list.mu.RLock()
	s.list.items[i], s.list.items[j] = s.list.items[j], s.list.items[i]
	s.list.mu.RUnlock()
	return nil
}

// Append adds v at the end of the list and returns its index. The structural
// lock is held only for the duration of the append.
func (s *Session[T]) Append(v T) (int, error) {
	if !s.owner.TryStartTimeout(structuralIdx, s.timeout) {
		return 0, fmt.Errorf("%w: structural lock", ErrAcquire)
	}
	defer s.owner.End(structuralIdx)

	s.list.mu.Lock()
	s.list.items = append(s.list.items, v)
	idx := len(s.list.items) - 1
	s.list.mu.Unlock()
	return idx, nil
}

// Release gives up the session's lock on index i without closing the
// session.
func (s *Session[T]) Release(i int) {
	s.owner.End(i)
	delete(s.held, i)
}

// Indices returns the element indices this session currently holds.
func (s *Session[T]) Indices() []int {
	out := make([]int, 0, len(s.held))
	for i := range s.held {
		out = append(out, i)
	}
	return out
}

// Close releases every index lock the session still holds. It is safe to
// call more than once.
func (s *Session[T]) Close() {
	s.owner.EndAll()
	s.held = make(map[int]struct{})
}
