package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/BootBlock/poshbackup/internal/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list configured backup locations, sets, and targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		if globalConfig == nil {
			lastExitCode = exitMissingCLIArgs
			return fmt.Errorf("-ConfigFile is required")
		}

		printSortedKeys("Backup locations", jobNames(globalConfig.BackupLocations))
		printSortedKeys("Backup sets", setNames(globalConfig.BackupSets))
		printSortedKeys("Backup targets", targetNames(globalConfig.BackupTargets))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func printSortedKeys(heading string, keys []string) {
	sort.Strings(keys)
	fmt.Println(heading + ":")
	if len(keys) == 0 {
		fmt.Println("  (none configured)")
		return
	}
	for _, k := range keys {
		fmt.Println("  " + k)
	}
}

func jobNames(m map[string]config.JobSpec) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}

func setNames(m map[string]config.BackupSet) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}

func targetNames(m map[string]config.BackupTarget) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}
