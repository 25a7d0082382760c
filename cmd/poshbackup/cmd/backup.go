package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BootBlock/poshbackup/internal/config"
	"github.com/BootBlock/poshbackup/internal/jobengine"
	"github.com/BootBlock/poshbackup/internal/metrics"
	"github.com/BootBlock/poshbackup/internal/report"
)

var (
	backupLocationName string
	runSet             string

	flagUseVSS                      bool
	flagEnableRetries               bool
	flagSevenZipPriority            string
	flagSevenZipCPUAffinity         string
	flagTreatWarningsAsSuccess      bool
	flagGenerateArchiveChecksum     bool
	flagChecksumAlgorithm           string
	flagVerifyArchiveChecksumOnTest bool
	flagTestArchiveAfterCreation    bool
	flagSimulate                    bool

	flagJSON bool
)

func init() {
	rootCmd.Flags().StringVar(&backupLocationName, "BackupLocationName", "", "run a single job by name")
	rootCmd.Flags().StringVar(&runSet, "RunSet", "", "run every job in a named set")

	rootCmd.Flags().BoolVar(&flagUseVSS, "UseVSS", false, "override EnableVSS")
	rootCmd.Flags().BoolVar(&flagEnableRetries, "EnableRetries", false, "override EnableRetries")
	rootCmd.Flags().StringVar(&flagSevenZipPriority, "SevenZipPriority", "", "override SevenZipProcessPriority")
	rootCmd.Flags().StringVar(&flagSevenZipCPUAffinity, "SevenZipCPUAffinity", "", "override SevenZipCpuAffinity")
	rootCmd.Flags().BoolVar(&flagTreatWarningsAsSuccess, "TreatSevenZipWarningsAsSuccess", false, "override TreatSevenZipWarningsAsSuccess")
	rootCmd.Flags().BoolVar(&flagGenerateArchiveChecksum, "GenerateArchiveChecksum", false, "override GenerateArchiveChecksum")
	rootCmd.Flags().StringVar(&flagChecksumAlgorithm, "ChecksumAlgorithm", "", "override ChecksumAlgorithm")
	rootCmd.Flags().BoolVar(&flagVerifyArchiveChecksumOnTest, "VerifyArchiveChecksumOnTest", false, "override VerifyArchiveChecksumOnTest")
	rootCmd.Flags().BoolVar(&flagTestArchiveAfterCreation, "TestArchiveAfterCreation", false, "override TestArchiveAfterCreation")
	rootCmd.Flags().BoolVar(&flagSimulate, "Simulate", false, "dry-run: skip 7-Zip invocation and remote transfer")

	rootCmd.Flags().BoolVar(&flagJSON, "Json", false, "render the job report as JSON instead of console text")
}

// buildOverrides collects the CLI flags a caller actually supplied into a
// config.CLIOverrides; unset flags leave their pointer fields nil so they
// fall through to the job/set/global layers, per spec §4.1.
func buildOverrides(cmd *cobra.Command) config.CLIOverrides {
	overrides := config.CLIOverrides{
		BackupLocationName: backupLocationName,
		RunSet:             runSet,
		Confirm:            confirmFlag,
	}

	if cmd.Flags().Changed("UseVSS") {
		overrides.EnableVSS = &flagUseVSS
	}
	if cmd.Flags().Changed("EnableRetries") {
		overrides.EnableRetries = &flagEnableRetries
	}
	if cmd.Flags().Changed("SevenZipPriority") {
		priority := config.SevenZipPriority(flagSevenZipPriority)
		overrides.SevenZipProcessPriority = &priority
	}
	if cmd.Flags().Changed("SevenZipCPUAffinity") {
		overrides.SevenZipCpuAffinity = &flagSevenZipCPUAffinity
	}
	if cmd.Flags().Changed("TreatSevenZipWarningsAsSuccess") {
		overrides.TreatSevenZipWarningsAsSuccess = &flagTreatWarningsAsSuccess
	}
	if cmd.Flags().Changed("GenerateArchiveChecksum") {
		overrides.GenerateArchiveChecksum = &flagGenerateArchiveChecksum
	}
	if cmd.Flags().Changed("ChecksumAlgorithm") {
		algo := config.ChecksumAlgorithm(flagChecksumAlgorithm)
		overrides.ChecksumAlgorithm = &algo
	}
	if cmd.Flags().Changed("VerifyArchiveChecksumOnTest") {
		overrides.VerifyArchiveChecksumOnTest = &flagVerifyArchiveChecksumOnTest
	}
	if cmd.Flags().Changed("TestArchiveAfterCreation") {
		overrides.TestArchiveAfterCreation = &flagTestArchiveAfterCreation
	}
	if cmd.Flags().Changed("Simulate") {
		overrides.Simulate = &flagSimulate
	}

	return overrides
}

// runBackup is rootCmd's RunE: it executes -BackupLocationName or -RunSet
// against globalConfig and sets lastExitCode per spec §6.
func runBackup(cmd *cobra.Command, args []string) error {
	if backupLocationName == "" && runSet == "" {
		lastExitCode = exitMissingCLIArgs
		return fmt.Errorf("one of -BackupLocationName or -RunSet is required")
	}
	if backupLocationName != "" && runSet != "" {
		lastExitCode = exitMissingCLIArgs
		return fmt.Errorf("-BackupLocationName and -RunSet are mutually exclusive")
	}
	if globalConfig == nil {
		lastExitCode = exitMissingCLIArgs
		return fmt.Errorf("-ConfigFile is required")
	}

	if metricsAddr != "" {
		srv := metrics.StartServer(metricsAddr)
		defer srv.Shutdown(context.Background())
	}

	overrides := buildOverrides(cmd)
	engine := jobengine.New(log, globalConfig, configFile, overrides.Confirm)
	ctx := context.Background()

	var renderer report.Renderer = report.Console{}
	if flagJSON {
		renderer = report.JSON{}
	}

	if backupLocationName != "" {
		r := engine.RunJob(ctx, backupLocationName, "", overrides)
		if err := renderer.Render(os.Stdout, r); err != nil {
			log.Error(err, "failed to render job report")
		}
		lastExitCode = classifyReport(r)
		return nil
	}

	reports, setStatus := engine.RunSet(ctx, runSet, overrides)
	for _, r := range reports {
		if err := renderer.Render(os.Stdout, r); err != nil {
			log.Error(err, "failed to render job report")
		}
	}
	lastExitCode = classifySetStatus(setStatus)
	for _, r := range reports {
		if r.Status == jobengine.StatusFailure {
			lastExitCode = classifyFailure(r)
			break
		}
	}
	return nil
}
