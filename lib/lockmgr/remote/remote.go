// Package remote is the integration point for a network-backed lock store.
// It satisfies the lockmgr interfaces so a consumer can be wired against it,
// but it has no behavior yet: every acquisition fails and Err reports the
// unsupported operation. The shape mirrors what a client for a replicated
// lock service will need (endpoints, timeout), nothing more.
package remote

import (
	"time"

	"github.com/bugzyGeek/DataSyncQuanta/lib/lockmgr"
)

// Config holds the connection parameters of the remote lock service.
type Config struct {
	Endpoints     []string
	TimeoutSecond int
}

type remoteImpl[K comparable] struct {
	cfg Config
}

// NewRemoteLockManager creates a lock manager backed by a remote lock
// service. The returned implementation is a stub: it accepts the
// configuration but performs no operations.
func NewRemoteLockManager[K comparable](cfg Config) lockmgr.ILockManager[K] {
	return &remoteImpl[K]{cfg: cfg}
}

// Err returns the error every stubbed operation would report.
func Err() error {
	return lockmgr.NewError(lockmgr.RetCUnsupportedOperation, "remote lock store is not implemented")
}

func (r *remoteImpl[K]) NewOwner() lockmgr.IOwner[K] { return &remoteOwner[K]{} }
func (r *remoteImpl[K]) Held(key K) bool             { return false }
func (r *remoteImpl[K]) Len() int                    { return 0 }
func (r *remoteImpl[K]) Config() lockmgr.Config      { return *lockmgr.DefaultConfig() }
func (r *remoteImpl[K]) Close() error                { return nil }

type remoteOwner[K comparable] struct{}

func (o *remoteOwner[K]) TryStart(key K) bool                                  { return false }
func (o *remoteOwner[K]) TryStartTimeout(key K, timeout time.Duration) bool    { return false }
func (o *remoteOwner[K]) End(key K)                                            {}
func (o *remoteOwner[K]) EndAll()                                              {}
func (o *remoteOwner[K]) Keys() []K                                            { return nil }
func (o *remoteOwner[K]) Watch(key K) (<-chan lockmgr.Outcome, bool)           { return nil, false }
