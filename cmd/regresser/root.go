package main

import (
	"github.com/spf13/cobra"

	"github.com/campaneros/TQGenLevelAnalysis/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "regresser",
	Short: "Electron energy regression over event streams",
	Long:  "regresser applies a configurable energy regression to the primary and,\noptionally, the low-pT electron collections of every event.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		logging.InitFromEnv()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.Version = version
}
