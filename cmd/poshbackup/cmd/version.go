package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const engineVersion = "1.0.0"

var checkForUpdate bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the engine version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("poshbackup %s\n", engineVersion)
		if checkForUpdate {
			// No update subsystem ships with this engine; spec.md §6
			// reserves exit code 50 for exactly this case.
			lastExitCode = exitUpdateSubsystemMissing
			return fmt.Errorf("update checking is not implemented")
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&checkForUpdate, "CheckForUpdate", false, "check for a newer release (not implemented)")
	rootCmd.AddCommand(versionCmd)
}
