// Package cmd implements the poshbackup command-line surface: backup mode
// (-BackupLocationName/-RunSet and the per-tunable override flags of
// spec.md §6), plus list and version subcommands.
package cmd

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/BootBlock/poshbackup/internal/config"
	"github.com/BootBlock/poshbackup/internal/logging"
)

var (
	configFile  string
	verbose     bool
	development bool
	confirmFlag bool
	metricsAddr string

	globalConfig *config.GlobalConfig
	log          logr.Logger
)

var rootCmd = &cobra.Command{
	Use:   "poshbackup",
	Short: "PoSh-Backup job execution engine",
	Long: `poshbackup drives 7-Zip archive jobs through configuration resolution,
VSS/snapshot-backed source capture, archive creation and testing, remote
transfer, retention, and hooked pre/post actions.

Running with -BackupLocationName or -RunSet executes a job or set
directly; list and version are also available as subcommands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = logging.New(logging.Options{Development: development, Verbose: verbose})

		if configFile == "" {
			return nil
		}
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("loading configuration %q: %w", configFile, err)
		}
		globalConfig = cfg
		return nil
	},
	RunE: runBackup,
}

// Execute runs the root command and returns the process exit code, per
// spec §6's CLI exit-code contract.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if lastExitCode == exitSuccess {
			lastExitCode = exitOther
		}
	}
	return lastExitCode
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "ConfigFile", "", "path to the PoSh-Backup configuration file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "Verbose", false, "enable debug-level logging")
	rootCmd.PersistentFlags().BoolVar(&development, "DevLogging", false, "use human-readable development log encoding")
	rootCmd.PersistentFlags().BoolVar(&confirmFlag, "Confirm", false, "prompt before consequential steps instead of assuming Yes")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "MetricsAddr", "", "serve Prometheus /metrics on this address for the duration of the run (e.g. :9387); disabled when empty")
}
