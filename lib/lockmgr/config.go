package lockmgr

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Victim Selection Strategy
// --------------------------------------------------------------------------

// Strategy selects which transaction of a deadlock cycle is terminated.
type Strategy string

const (
	// StrategyTerminateOldest aborts the transaction whose key was acquired
	// first (smallest acquisition timestamp).
	StrategyTerminateOldest Strategy = "terminate-oldest"

	// StrategyTerminateNewest aborts the transaction whose key was acquired
	// last (largest acquisition timestamp).
	StrategyTerminateNewest Strategy = "terminate-newest"
)

// ParseStrategy converts a string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyTerminateOldest, StrategyTerminateNewest:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("invalid strategy: %q. must be one of %q, %q",
			s, StrategyTerminateOldest, StrategyTerminateNewest)
	}
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// Default configuration values.
const (
	DefaultExpirationTime   = 5 * time.Minute  // idle threshold before a record is evicted
	DefaultAcquireTimeout   = 30 * time.Second // default TryStart timeout
	DefaultMaxLockDuration  = 1 * time.Minute  // safety net for overstaying transactions
	DefaultEvictionInterval = 1 * time.Minute  // time between eviction sweeps
	DefaultDeadlockInterval = 10 * time.Second // time between deadlock detection sweeps
)

// Config configures a lock manager. The value is copied at construction and
// immutable for the lifetime of the manager instance; there is no process-wide
// mutable default state.
type Config struct {
	ExpirationTime   time.Duration // how long an unheld record may stay idle before eviction
	AcquireTimeout   time.Duration // default timeout for TryStart
	MaxLockDuration  time.Duration // hard cap on how long one transaction may hold a key
	EvictionInterval time.Duration // interval of the eviction sweeper
	DeadlockInterval time.Duration // interval of the deadlock resolver
	Strategy         Strategy      // victim selection policy
}

// DefaultConfig returns the default lock manager configuration.
func DefaultConfig() *Config {
	return &Config{
		ExpirationTime:   DefaultExpirationTime,
		AcquireTimeout:   DefaultAcquireTimeout,
		MaxLockDuration:  DefaultMaxLockDuration,
		EvictionInterval: DefaultEvictionInterval,
		DeadlockInterval: DefaultDeadlockInterval,
		Strategy:         StrategyTerminateOldest,
	}
}

// withDefaults fills zero fields with the package defaults.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ExpirationTime <= 0 {
		c.ExpirationTime = d.ExpirationTime
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = d.AcquireTimeout
	}
	if c.MaxLockDuration <= 0 {
		c.MaxLockDuration = d.MaxLockDuration
	}
	if c.EvictionInterval <= 0 {
		c.EvictionInterval = d.EvictionInterval
	}
	if c.DeadlockInterval <= 0 {
		c.DeadlockInterval = d.DeadlockInterval
	}
	if c.Strategy == "" {
		c.Strategy = d.Strategy
	}
	return c
}

// String returns a formatted representation of the configuration.
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{ExpirationTime: %v, AcquireTimeout: %v, MaxLockDuration: %v, EvictionInterval: %v, DeadlockInterval: %v, Strategy: %s}",
		c.ExpirationTime, c.AcquireTimeout, c.MaxLockDuration, c.EvictionInterval, c.DeadlockInterval, c.Strategy,
	)
}
