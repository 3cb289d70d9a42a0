package lockmgr_test

import (
	"testing"

	"github.com/bugzyGeek/DataSyncQuanta/lib/lockmgr"
	lmtesting "github.com/bugzyGeek/DataSyncQuanta/lib/lockmgr/testing"
)

func Test(t *testing.T) {
	lmtesting.RunLockManagerTests(t, "LockManager", func(cfg *lockmgr.Config) lockmgr.ILockManager[string] {
		return lockmgr.NewLockManager[string](cfg)
	})
}

func Benchmark(b *testing.B) {
	lmtesting.RunLockManagerBenchmarks(b, "LockManager", func(cfg *lockmgr.Config) lockmgr.ILockManager[string] {
		return lockmgr.NewLockManager[string](cfg)
	})
}
