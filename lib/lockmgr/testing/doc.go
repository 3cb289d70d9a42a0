// Package testing provides a reusable conformance test suite for
// lockmgr.ILockManager implementations. The suite covers mutual exclusion,
// release idempotence, eviction safety, the max-duration guard and deadlock
// resolution with both victim strategies.
//
// Usage:
//
//	func Test(t *testing.T) {
//		lmtesting.RunLockManagerTests(t, "LockManager", func(cfg *lockmgr.Config) lockmgr.ILockManager[string] {
//			return lockmgr.NewLockManager[string](cfg)
//		})
//	}
package testing
