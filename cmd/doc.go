// Package cmd implements the command-line interface for DataSyncQuanta. It
// provides a hierarchical command structure for exercising the keyed lock
// manager.
//
// The package is organized into several subpackages:
//
//   - stress: Contention and deadlock workload against an in-process manager
//   - util: Shared utilities for command-line processing, configuration and
//     logging (internal use)
//
// See dsq -help for a list of all commands.
package cmd
