package testing

import (
	"strconv"
	"testing"
	"time"
)

// RunLockManagerBenchmarks runs a benchmark suite for an ILockManager
// implementation.
func RunLockManagerBenchmarks(b *testing.B, name string, factory ManagerFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("AcquireRelease", func(b *testing.B) {
			benchmarkAcquireRelease(b, factory)
		})

		b.Run("AcquireReleaseSpread", func(b *testing.B) {
			benchmarkAcquireReleaseSpread(b, factory)
		})

		b.Run("Contended", func(b *testing.B) {
			benchmarkContended(b, factory)
		})
	})
}

// benchmarkAcquireRelease measures the uncontended fast path on one key.
func benchmarkAcquireRelease(b *testing.B, factory ManagerFactory) {
	mgr := factory(quietConfig())
	defer mgr.Close()

	owner := mgr.NewOwner()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !owner.TryStartTimeout("bench", 0) {
			b.Fatal("uncontended acquisition failed")
		}
		owner.End("bench")
	}
}

// benchmarkAcquireReleaseSpread measures the uncontended path across many
// keys, which also exercises lazy record creation.
func benchmarkAcquireReleaseSpread(b *testing.B, factory ManagerFactory) {
	mgr := factory(quietConfig())
	defer mgr.Close()

	owner := mgr.NewOwner()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := "bench-" + strconv.Itoa(i%1024)
		if !owner.TryStartTimeout(key, 0) {
			b.Fatal("uncontended acquisition failed")
		}
		owner.End(key)
	}
}

// benchmarkContended measures throughput with multiple goroutines fighting
// over a small key space.
func benchmarkContended(b *testing.B, factory ManagerFactory) {
	mgr := factory(quietConfig())
	defer mgr.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		owner := mgr.NewOwner()
		i := 0
		for pb.Next() {
			key := "bench-" + strconv.Itoa(i%8)
			i++
			if owner.TryStartTimeout(key, time.Second) {
				owner.End(key)
			}
		}
	})
}
