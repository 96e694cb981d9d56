// Package cli implements the Cobra command hierarchy for the lunest CLI:
// run, list, wrapper, version, and completion, sharing persistent logging
// flags that are applied once in PersistentPreRunE.
package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lunest-run/lunest/internal/config"
	"github.com/lunest-run/lunest/internal/driver"
)

var (
	verboseFlag bool
	quietFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "lunest",
	Short: "Run Lua test files against one or more interpreter profiles.",
	Long: `lunest spawns a Lua interpreter per profile, hands it the set of target
test files discovered under the project root, and drives it through a
line-delimited JSON control protocol to list and run tests, rendering
results to the terminal as they complete.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := config.ResolveLogLevel(verboseFlag, quietFlag)
		format := config.ResolveLogFormat()
		config.SetupLogging(level, format)
		slog.Debug("logging initialized", "level", level, "format", format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "only log errors")
}

// Execute runs the root command and returns the process exit code: a
// *driver.Error's Code if present, ExitFailure (1) for any other error, or
// ExitSuccess (0).
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		slog.Error(err.Error())
		return extractExitCode(err)
	}
	return int(driver.ExitSuccess)
}

func extractExitCode(err error) int {
	if err == nil {
		return int(driver.ExitSuccess)
	}
	var de *driver.Error
	if errors.As(err, &de) {
		return int(de.Code)
	}
	return int(driver.ExitFailure)
}

// RootCmd returns the root cobra.Command for use in testing and subcommand
// registration.
func RootCmd() *cobra.Command {
	return rootCmd
}
