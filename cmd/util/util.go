package util

import (
	"strings"
	"time"

	"github.com/bugzyGeek/DataSyncQuanta/lib/lockmgr"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupLockManagerFlags adds the lock manager configuration flags to a
// command. All values fall back to the lockmgr package defaults.
func SetupLockManagerFlags(cmd *cobra.Command) {
	key := "expiration-time"
	cmd.PersistentFlags().Duration(key, lockmgr.DefaultExpirationTime, WrapString("Idle threshold before an unheld lock record is evicted"))

	key = "acquire-timeout"
	cmd.PersistentFlags().Duration(key, lockmgr.DefaultAcquireTimeout, WrapString("Default timeout for lock acquisition"))

	key = "max-lock-duration"
	cmd.PersistentFlags().Duration(key, lockmgr.DefaultMaxLockDuration, WrapString("Hard cap on how long one transaction may hold a key"))

	key = "eviction-interval"
	cmd.PersistentFlags().Duration(key, lockmgr.DefaultEvictionInterval, WrapString("Interval of the idle-record eviction sweep"))

	key = "deadlock-interval"
	cmd.PersistentFlags().Duration(key, lockmgr.DefaultDeadlockInterval, WrapString("Interval of the deadlock detection sweep"))

	key = "strategy"
	cmd.PersistentFlags().String(key, string(lockmgr.StrategyTerminateOldest), WrapString("Deadlock victim selection strategy (terminate-oldest, terminate-newest)"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dsq")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds all flags of the command to viper
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return viper.BindPFlags(cmd.PersistentFlags())
}

// GetLockManagerConfig reads the lock manager configuration from viper.
func GetLockManagerConfig() (*lockmgr.Config, error) {
	strategy, err := lockmgr.ParseStrategy(viper.GetString("strategy"))
	if err != nil {
		return nil, err
	}

	return &lockmgr.Config{
		ExpirationTime:   viper.GetDuration("expiration-time"),
		AcquireTimeout:   viper.GetDuration("acquire-timeout"),
		MaxLockDuration:  viper.GetDuration("max-lock-duration"),
		EvictionInterval: viper.GetDuration("eviction-interval"),
		DeadlockInterval: viper.GetDuration("deadlock-interval"),
		Strategy:         strategy,
	}, nil
}

// GetDuration is a viper helper with a fallback default.
func GetDuration(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}
