package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/scanguard/internal/version"
)

// Exit codes. A degraded file outranks a detection.
const (
	ExitClean        = 0
	ExitDetected     = 1
	ExitUsageError   = 2
	ExitRuntimeError = 3
	ExitDegraded     = 4
)

var rootCmd = &cobra.Command{
	Use:   "scanctl",
	Short: "Scan files for secrets",
	Long:  "Scanctl sends files to the secret detector, reports policy breaks and writes redacted copies.",
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitClean

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print scanctl version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String("scanctl"))
	},
}
