package cmd

import (
	"fmt"
	"os"

	"github.com/bugzyGeek/DataSyncQuanta/cmd/stress"
	"github.com/bugzyGeek/DataSyncQuanta/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dsq",
		Short: "in-process keyed lock manager",
		Long: fmt.Sprintf(`DataSyncQuanta (v%s)

An in-process keyed lock manager with deadlock detection, idle-lock
eviction and max-duration safety release, plus the synchronized
collection built on top of it.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of DataSyncQuanta",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("DataSyncQuanta v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(stress.StressCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("log level (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
