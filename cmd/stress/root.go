package stress

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/bugzyGeek/DataSyncQuanta/cmd/util"
	"github.com/bugzyGeek/DataSyncQuanta/lib/lockmgr"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// StressCmd runs a contention and deadlock workload against an
	// in-process lock manager and reports latency and counter metrics.
	StressCmd = &cobra.Command{
		Use:     "stress",
		Short:   "Contention and deadlock workload for the lock manager",
		RunE:    run,
		PreRunE: processConfig,
	}

	numWorkers    = 8
	numKeys       = 64
	deadlockPairs = 2
	runFor        = 10 * time.Second
	holdTime      = 500 * time.Microsecond
	mgrConfig     *lockmgr.Config
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Lock manager configuration flags
	util.SetupLockManagerFlags(StressCmd)

	// Workload flags
	key := "workers"
	StressCmd.Flags().Int(key, 8, util.WrapString("Number of contending worker goroutines"))
	key = "keys"
	StressCmd.Flags().Int(key, 64, util.WrapString("Size of the contended key space"))
	key = "deadlock-pairs"
	StressCmd.Flags().Int(key, 2, util.WrapString("Number of goroutine pairs deliberately deadlocking each other"))
	key = "run-for"
	StressCmd.Flags().Duration(key, 10*time.Second, util.WrapString("How long to run the workload"))
	key = "hold-time"
	StressCmd.Flags().Duration(key, 500*time.Microsecond, util.WrapString("How long a worker holds a key before releasing it"))
}

func processConfig(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	util.InitLoggers(viper.GetString("log-level"))

	// Read the workload configuration from flags and environment variables
	numWorkers = viper.GetInt("workers")
	numKeys = viper.GetInt("keys")
	deadlockPairs = viper.GetInt("deadlock-pairs")
	runFor = util.GetDuration("run-for", runFor)
	holdTime = viper.GetDuration("hold-time")

	var err error
	mgrConfig, err = util.GetLockManagerConfig()
	return err
}

func run(_ *cobra.Command, _ []string) error {
	fmt.Println("Lock manager stress tool")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("  %s\n", mgrConfig)
	fmt.Printf("  Workers: %d, Keys: %d, Deadlock pairs: %d, Duration: %v\n",
		numWorkers, numKeys, deadlockPairs, runFor)
	fmt.Println()

	mgr := lockmgr.NewLockManager[string](mgrConfig)
	defer mgr.Close()

	registry := gometrics.NewRegistry()
	acquireTimer := gometrics.GetOrRegisterTimer("acquire.latency", registry)

	var (
		acquired atomic.Int64
		failed   atomic.Int64
		aborts   atomic.Int64
		wg       sync.WaitGroup
	)

	ctx, cancel := context.WithTimeout(context.Background(), runFor)
	defer cancel()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(ctx, mgr, id, acquireTimer, &acquired, &failed)
		}(i)
	}

	for i := 0; i < deadlockPairs; i++ {
		a := fmt.Sprintf("dl-%03d-a", i)
		b := fmt.Sprintf("dl-%03d-b", i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			deadlocker(ctx, mgr, a, b, &aborts)
		}()
		go func() {
			defer wg.Done()
			deadlocker(ctx, mgr, b, a, &aborts)
		}()
	}

	wg.Wait()

	fmt.Println()
	fmt.Printf("acquired=%d failed=%d deadlock-aborts-observed=%d live-records=%d\n",
		acquired.Load(), failed.Load(), aborts.Load(), mgr.Len())
	fmt.Println()

	gometrics.WriteOnce(registry, os.Stdout)

	fmt.Println()
	fmt.Println("Prometheus metrics:")
	metrics.WritePrometheus(os.Stdout, false)

	return nil
}

// worker loops over a random key space, acquiring and releasing with a
// bounded timeout. Failures are ordinary contention, never fatal.
func worker(ctx context.Context, mgr lockmgr.ILockManager[string], id int, timer gometrics.Timer, acquired, failed *atomic.Int64) {
	owner := mgr.NewOwner()
	defer owner.EndAll()

	rng := rand.New(rand.NewSource(int64(id) + 1))

	for ctx.Err() == nil {
		key := fmt.Sprintf("key-%04d", rng.Intn(numKeys))

		start := time.Now()
		ok := owner.TryStartTimeout(key, 250*time.Millisecond)
		timer.UpdateSince(start)

		if !ok {
			failed.Add(1)
			continue
		}
		acquired.Add(1)

		if holdTime > 0 {
			time.Sleep(holdTime)
		}
		owner.End(key)
	}
}

// deadlocker repeatedly holds first while trying to grab second. Run twice
// with the keys swapped it manufactures a deadlock cycle for the resolver to
// break; observed aborts are counted through the outcome channel.
func deadlocker(ctx context.Context, mgr lockmgr.ILockManager[string], first, second string, aborts *atomic.Int64) {
	owner := mgr.NewOwner()
	defer owner.EndAll()

	for ctx.Err() == nil {
		if !owner.TryStartTimeout(first, 50*time.Millisecond) {
			continue
		}
		outcome, _ := owner.Watch(first)

		held := true
		for held && ctx.Err() == nil {
			if owner.TryStartTimeout(second, 20*time.Millisecond) {
				owner.End(second)
				break
			}
			select {
			case oc := <-outcome:
				if oc == lockmgr.OutcomeAborted {
					aborts.Add(1)
				}
				held = false
			default:
			}
		}
		owner.End(first)
	}
}
