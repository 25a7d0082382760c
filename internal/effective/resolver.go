// Package effective implements EffectiveConfigResolver: it merges global
// defaults, set-level, job-level, and CLI-override tunables into a single
// flat EffectiveJobConfig, per the precedence chain documented in
// spec §4.1 (CLI ▸ job ▸ set ▸ global ▸ hard-coded fallback).
package effective

import (
	"fmt"
	"os"
	"strings"

	"github.com/BootBlock/poshbackup/internal/config"
	"github.com/BootBlock/poshbackup/internal/errs"
)

// Resolver merges configuration layers for a single job into an
// EffectiveJobConfig.
type Resolver struct {
	Global *config.GlobalConfig
}

// New returns a Resolver bound to the given GlobalConfig.
func New(global *config.GlobalConfig) *Resolver {
	return &Resolver{Global: global}
}

// Resolve produces the EffectiveJobConfig for jobName, optionally scoped to
// setName (which supplies the set-level PostRunAction layer), with
// cliOverrides taking final precedence.
func (r *Resolver) Resolve(jobName string, setName string, cli config.CLIOverrides) (*config.EffectiveJobConfig, error) {
	job, ok := r.Global.BackupLocations[jobName]
	if !ok {
		return nil, &errs.ConfigError{Kind: errs.ConfigUnknownJob, Path: jobName, Message: fmt.Sprintf("unknown job %q", jobName)}
	}

	var set *config.BackupSet
	if setName != "" {
		s, ok := r.Global.BackupSets[setName]
		if !ok {
			return nil, &errs.ConfigError{Kind: errs.ConfigUnknownSet, Path: setName, Message: fmt.Sprintf("unknown set %q", setName)}
		}
		set = &s
	}

	enabled := true
	if job.Enabled != nil {
		enabled = *job.Enabled
	}

	eff := &config.EffectiveJobConfig{
		JobName:         jobName,
		ArchiveBaseName: job.Name,
		DestinationDir:  firstNonEmptyString(job.DestinationDir, r.Global.DefaultDestinationDir),
		TargetNames:     job.TargetNames,
		DependsOnJobs:   job.DependsOnJobs,
		Enabled:         enabled,
	}

	if err := r.resolveSourcePaths(eff, job); err != nil {
		return nil, err
	}

	r.resolveBool(&eff.EnableVSS, cli.EnableVSS, job.EnableVSS, tunablesOf(set), r.Global.Defaults.EnableVSS, false)
	r.resolveVSSContext(eff, job, set)
	eff.VSSMetadataCachePath = config.ExpandEnv(firstNonEmptyPtrString(job.VSSMetadataCachePath, tunablesOf(set).VSSMetadataCachePath, r.Global.Defaults.VSSMetadataCachePath))

	if err := r.resolveInt(&eff.VSSPollingTimeoutSeconds, cli.VSSPollingTimeoutSeconds, job.VSSPollingTimeoutSeconds, tunablesOf(set).VSSPollingTimeoutSeconds, r.Global.Defaults.VSSPollingTimeoutSeconds, 120, "VSSPollingTimeoutSeconds"); err != nil {
		return nil, err
	}
	if err := r.resolveInt(&eff.VSSPollingIntervalSeconds, cli.VSSPollingIntervalSeconds, job.VSSPollingIntervalSeconds, tunablesOf(set).VSSPollingIntervalSeconds, r.Global.Defaults.VSSPollingIntervalSeconds, 5, "VSSPollingIntervalSeconds"); err != nil {
		return nil, err
	}

	r.resolveBool(&eff.EnableRetries, cli.EnableRetries, job.EnableRetries, tunablesOf(set).EnableRetries, r.Global.Defaults.EnableRetries, true)
	if err := r.resolveInt(&eff.MaxRetryAttempts, cli.MaxRetryAttempts, job.MaxRetryAttempts, tunablesOf(set).MaxRetryAttempts, r.Global.Defaults.MaxRetryAttempts, 3, "MaxRetryAttempts"); err != nil {
		return nil, err
	}
	if err := r.resolveInt(&eff.RetryDelaySeconds, cli.RetryDelaySeconds, job.RetryDelaySeconds, tunablesOf(set).RetryDelaySeconds, r.Global.Defaults.RetryDelaySeconds, 60, "RetryDelaySeconds"); err != nil {
		return nil, err
	}

	eff.SevenZipProcessPriority = config.SevenZipPriority(firstNonEmptyPtrString(
		ptrOfPriority(cli.SevenZipProcessPriority), ptrOfPriority(job.SevenZipProcessPriority),
		ptrOfPriority(tunablesOf(set).SevenZipProcessPriority), ptrOfPriority(r.Global.Defaults.SevenZipProcessPriority)))
	if eff.SevenZipProcessPriority == "" {
		eff.SevenZipProcessPriority = config.PriorityNormal
	}
	eff.SevenZipCpuAffinity = firstNonEmptyPtrString(cli.SevenZipCpuAffinity, job.SevenZipCpuAffinity, tunablesOf(set).SevenZipCpuAffinity, r.Global.Defaults.SevenZipCpuAffinity)

	r.resolveBool(&eff.TreatSevenZipWarningsAsSuccess, cli.TreatSevenZipWarningsAsSuccess, job.TreatSevenZipWarningsAsSuccess, tunablesOf(set).TreatSevenZipWarningsAsSuccess, r.Global.Defaults.TreatSevenZipWarningsAsSuccess, false)
	r.resolveBool(&eff.GenerateArchiveChecksum, cli.GenerateArchiveChecksum, job.GenerateArchiveChecksum, tunablesOf(set).GenerateArchiveChecksum, r.Global.Defaults.GenerateArchiveChecksum, false)
	eff.ChecksumAlgorithm = config.ChecksumAlgorithm(firstNonEmptyPtrString(
		ptrOfChecksum(cli.ChecksumAlgorithm), ptrOfChecksum(job.ChecksumAlgorithm),
		ptrOfChecksum(tunablesOf(set).ChecksumAlgorithm), ptrOfChecksum(r.Global.Defaults.ChecksumAlgorithm)))
	if eff.ChecksumAlgorithm == "" {
		eff.ChecksumAlgorithm = config.ChecksumSHA256
	}
	r.resolveBool(&eff.VerifyArchiveChecksumOnTest, cli.VerifyArchiveChecksumOnTest, job.VerifyArchiveChecksumOnTest, tunablesOf(set).VerifyArchiveChecksumOnTest, r.Global.Defaults.VerifyArchiveChecksumOnTest, false)
	r.resolveBool(&eff.TestArchiveAfterCreation, cli.TestArchiveAfterCreation, job.TestArchiveAfterCreation, tunablesOf(set).TestArchiveAfterCreation, r.Global.Defaults.TestArchiveAfterCreation, false)

	eff.ArchiveType = firstNonEmptyPtrString(job.ArchiveType, tunablesOf(set).ArchiveType, r.Global.Defaults.ArchiveType)
	if eff.ArchiveType == "" {
		eff.ArchiveType = "7z"
	}

	compressionLevel := firstNonEmptyPtrString(job.CompressionLevel, tunablesOf(set).CompressionLevel, r.Global.Defaults.CompressionLevel)
	if compressionLevel == "" {
		compressionLevel = "Normal"
	}
	eff.CompressionLevel = normalizeCompressionLevel(compressionLevel)

	eff.CompressionMethod = firstNonEmptyPtrString(job.CompressionMethod, tunablesOf(set).CompressionMethod, r.Global.Defaults.CompressionMethod)
	eff.DictionarySize = firstNonEmptyPtrString(job.DictionarySize, tunablesOf(set).DictionarySize, r.Global.Defaults.DictionarySize)
	eff.WordSize = firstNonEmptyPtrString(job.WordSize, tunablesOf(set).WordSize, r.Global.Defaults.WordSize)
	eff.SolidBlockSize = firstNonEmptyPtrString(job.SolidBlockSize, tunablesOf(set).SolidBlockSize, r.Global.Defaults.SolidBlockSize)
	r.resolveBool(&eff.CompressOpenFiles, nil, job.CompressOpenFiles, tunablesOf(set).CompressOpenFiles, r.Global.Defaults.CompressOpenFiles, false)
	if err := r.resolveInt(&eff.ThreadCount, nil, job.ThreadCount, tunablesOf(set).ThreadCount, r.Global.Defaults.ThreadCount, 0, "ThreadCount"); err != nil {
		return nil, err
	}

	r.resolveBool(&eff.CreateSFX, nil, job.CreateSFX, tunablesOf(set).CreateSFX, r.Global.Defaults.CreateSFX, false)
	sfx := firstNonEmptyPtrString(ptrOfSFX(job.SFXModule), ptrOfSFX(tunablesOf(set).SFXModule), ptrOfSFX(r.Global.Defaults.SFXModule))
	eff.SFXModule = config.SFXModule(sfx)

	eff.AdditionalExclusions = firstNonEmptyStringSlice(job.AdditionalExclusions, tunablesOf(set).AdditionalExclusions, r.Global.Defaults.AdditionalExclusions)

	eff.ArchiveDateFormat = firstNonEmptyPtrString(job.ArchiveDateFormat, tunablesOf(set).ArchiveDateFormat, r.Global.Defaults.ArchiveDateFormat)
	if eff.ArchiveDateFormat == "" {
		eff.ArchiveDateFormat = "yyyy-MMM-dd"
	}
	if err := validateDateFormat(eff.ArchiveDateFormat); err != nil {
		return nil, &errs.ConfigError{Kind: errs.ConfigInvalidValue, Path: jobName + ".ArchiveDateFormat", Message: err.Error()}
	}

	eff.ArchiveExtension = firstNonEmptyPtrString(job.ArchiveExtension, tunablesOf(set).ArchiveExtension, r.Global.Defaults.ArchiveExtension)
	if eff.ArchiveExtension == "" {
		eff.ArchiveExtension = ".7z"
	}
	if !strings.HasPrefix(eff.ArchiveExtension, ".") {
		return nil, &errs.ConfigError{Kind: errs.ConfigInvalidValue, Path: jobName + ".ArchiveExtension", Message: "must begin with '.'"}
	}

	method := firstNonEmptyPtrString(ptrOfMethod(job.ArchivePasswordMethod), ptrOfMethod(tunablesOf(set).ArchivePasswordMethod), ptrOfMethod(r.Global.Defaults.ArchivePasswordMethod))
	eff.ArchivePasswordMethod = config.ArchivePasswordMethod(method)
	if eff.ArchivePasswordMethod == "" {
		eff.ArchivePasswordMethod = config.PasswordMethodNone
	}
	usePassword := false
	r.resolveBool(&usePassword, nil, job.UsePassword, tunablesOf(set).UsePassword, r.Global.Defaults.UsePassword, false)
	eff.UsePassword = usePassword
	// Legacy coercion per spec §4.7: ArchivePasswordMethod=None + UsePassword=true => Interactive.
	if eff.ArchivePasswordMethod == config.PasswordMethodNone && usePassword {
		eff.ArchivePasswordMethod = config.PasswordMethodInteractive
	}
	eff.ArchivePasswordSecretName = firstNonEmptyPtrString(job.ArchivePasswordSecretName, tunablesOf(set).ArchivePasswordSecretName, r.Global.Defaults.ArchivePasswordSecretName)
	eff.ArchivePasswordVaultName = firstNonEmptyPtrString(job.ArchivePasswordVaultName, tunablesOf(set).ArchivePasswordVaultName, r.Global.Defaults.ArchivePasswordVaultName)
	eff.ArchivePasswordSecureStringPath = firstNonEmptyPtrString(job.ArchivePasswordSecureStringPath, tunablesOf(set).ArchivePasswordSecureStringPath, r.Global.Defaults.ArchivePasswordSecureStringPath)
	eff.ArchivePasswordPlainText = firstNonEmptyPtrString(job.ArchivePasswordPlainText, tunablesOf(set).ArchivePasswordPlainText, r.Global.Defaults.ArchivePasswordPlainText)

	onMissing := firstNonEmptyPtrString(ptrOfOnMissing(job.OnSourcePathNotFound), ptrOfOnMissing(tunablesOf(set).OnSourcePathNotFound), ptrOfOnMissing(r.Global.Defaults.OnSourcePathNotFound))
	eff.OnSourcePathNotFound = config.SourcePathNotFoundPolicy(onMissing)
	if eff.OnSourcePathNotFound == "" {
		eff.OnSourcePathNotFound = config.OnMissingSourceFailJob
	}

	eff.PostRunAction = resolvePostRunAction(job, set, r.Global)
	eff.PauseBeforeExit = resolvePauseBeforeExit(job.PauseBeforeExit, tunablesOf(set).PauseBeforeExit, r.Global.Defaults.PauseBeforeExit)

	eff.SnapshotProviderName = firstNonEmptyPtrString(job.SnapshotProviderName, tunablesOf(set).SnapshotProviderName, r.Global.Defaults.SnapshotProviderName)
	r.resolveBool(&eff.SourceIsVMName, nil, job.SourceIsVMName, tunablesOf(set).SourceIsVMName, r.Global.Defaults.SourceIsVMName, false)

	simulate := false
	r.resolveBool(&simulate, cli.Simulate, job.Simulate, tunablesOf(set).Simulate, r.Global.Defaults.Simulate, false)
	eff.Simulate = simulate

	eff.PreBackupScriptPath = firstNonEmptyPtrString(job.PreBackupScriptPath, tunablesOf(set).PreBackupScriptPath, r.Global.Defaults.PreBackupScriptPath)
	eff.PostBackupScriptOnSuccessPath = firstNonEmptyPtrString(job.PostBackupScriptOnSuccessPath, tunablesOf(set).PostBackupScriptOnSuccessPath, r.Global.Defaults.PostBackupScriptOnSuccessPath)
	eff.PostBackupScriptOnFailurePath = firstNonEmptyPtrString(job.PostBackupScriptOnFailurePath, tunablesOf(set).PostBackupScriptOnFailurePath, r.Global.Defaults.PostBackupScriptOnFailurePath)
	eff.PostBackupScriptAlwaysPath = firstNonEmptyPtrString(job.PostBackupScriptAlwaysPath, tunablesOf(set).PostBackupScriptAlwaysPath, r.Global.Defaults.PostBackupScriptAlwaysPath)

	instances, err := r.resolveTargetInstances(job.TargetNames)
	if err != nil {
		return nil, err
	}
	eff.ResolvedTargetInstances = instances

	eff.ReportGeneratorTypes = resolveReportGeneratorType(r.Global.ReportGeneratorType)

	return eff, nil
}

// resolveReportGeneratorType normalizes GlobalConfig.ReportGeneratorType
// (declared as a bare string-or-sequence per spec §4.1) into an ordered
// []string. Unrecognized element types are dropped rather than failing the
// whole resolution.
func resolveReportGeneratorType(raw interface{}) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []interface{}:
		types := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok || s == "" {
				continue
			}
			types = append(types, s)
		}
		return types
	default:
		return nil
	}
}

// tunablesOf returns the set's PostRunAction-bearing tunables layer, or a
// zero value if no set scopes this resolution. Only PostRunAction is
// documented as set-scoped in spec §4.1, but exposing the whole Tunables
// struct keeps every per-tunable merge call uniform.
func tunablesOf(set *config.BackupSet) config.Tunables {
	if set == nil {
		return config.Tunables{}
	}
	return config.Tunables{PostRunAction: &set.PostRunAction}
}

func resolvePostRunAction(job config.JobSpec, set *config.BackupSet, global *config.GlobalConfig) config.PostRunActionSpec {
	if job.PostRunAction != nil {
		return *job.PostRunAction
	}
	if set != nil {
		return set.PostRunAction
	}
	if global.Defaults.PostRunAction != nil {
		return *global.Defaults.PostRunAction
	}
	return global.PostRunActionDefaults
}

// resolvePauseBeforeExit implements DESIGN.md Open Question 2: it picks the
// first non-absent layer, coercing a bool to Always (true) or Never (false)
// and taking a non-empty string as the policy name.
func resolvePauseBeforeExit(layers ...interface{}) config.PauseBeforeExitPolicy {
	for _, l := range layers {
		switch v := l.(type) {
		case config.PauseBeforeExitPolicy:
			if v != "" {
				return v
			}
		case string:
			if v != "" {
				return config.PauseBeforeExitPolicy(v)
			}
		case bool:
			if v {
				return config.PauseAlways
			}
			return config.PauseNever
		}
	}
	return config.PauseNever
}

func (r *Resolver) resolveVSSContext(eff *config.EffectiveJobConfig, job config.JobSpec, set *config.BackupSet) {
	val := firstNonEmptyPtrString(ptrOfVSSContext(job.VSSContextOption), ptrOfVSSContext(tunablesOf(set).VSSContextOption), ptrOfVSSContext(r.Global.Defaults.VSSContextOption))
	if val == "" {
		val = string(config.VSSContextPersistentNoWriters)
	}
	eff.VSSContextOption = config.VSSContext(val)
}

func (r *Resolver) resolveBool(dst *bool, cli, job, set, global *bool, fallback bool) {
	for _, v := range []*bool{cli, job, set, global} {
		if v != nil {
			*dst = *v
			return
		}
	}
	*dst = fallback
}

func (r *Resolver) resolveInt(dst *int, cli, job, set, global *int, fallback int, name string) error {
	for _, v := range []*int{cli, job, set, global} {
		if v != nil {
			*dst = *v
			return nil
		}
	}
	*dst = fallback
	return nil
}

func firstNonEmptyPtrString(ptrs ...*string) string {
	for _, p := range ptrs {
		if p != nil && *p != "" {
			return *p
		}
	}
	return ""
}

func firstNonEmptyString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmptyStringSlice(slices ...[]string) []string {
	for _, s := range slices {
		if len(s) > 0 {
			return s
		}
	}
	return nil
}

func ptrOfPriority(p *config.SevenZipPriority) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

func ptrOfChecksum(p *config.ChecksumAlgorithm) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

func ptrOfSFX(p *config.SFXModule) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

func ptrOfMethod(p *config.ArchivePasswordMethod) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

func ptrOfOnMissing(p *config.SourcePathNotFoundPolicy) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

func ptrOfVSSContext(p *config.VSSContext) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

// normalizeCompressionLevel maps friendly level names to 7-Zip -mx switch
// tokens per spec §4.1 (e.g. "Ultra" -> "-mx=9").
func normalizeCompressionLevel(level string) string {
	switch strings.ToLower(level) {
	case "store":
		return "-mx=0"
	case "fastest":
		return "-mx=1"
	case "fast":
		return "-mx=3"
	case "normal":
		return "-mx=5"
	case "maximum":
		return "-mx=7"
	case "ultra":
		return "-mx=9"
	default:
		// Already a raw -mx switch or numeric level; pass through unchanged.
		return level
	}
}

// validateDateFormat translates layout into a Go time layout and rejects it
// only when the translation is empty. It does not format the current
// instant, so any non-empty layout is accepted.
func validateDateFormat(layout string) error {
	goLayout := strings.NewReplacer(
		"yyyy", "2006",
		"MMM", "Jan",
		"MM", "01",
		"dd", "02",
	).Replace(layout)
	if goLayout == "" {
		return fmt.Errorf("empty date format")
	}
	return nil
}

func (r *Resolver) resolveSourcePaths(eff *config.EffectiveJobConfig, job config.JobSpec) error {
	switch v := job.Path.(type) {
	case string:
		eff.SourcePaths = []string{os.ExpandEnv(v)}
	case []interface{}:
		paths := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return &errs.ConfigError{Kind: errs.ConfigInvalidValue, Path: eff.JobName + ".Path", Message: "Path sequence entries must be strings"}
			}
			paths = append(paths, os.ExpandEnv(s))
		}
		eff.SourcePaths = paths
	case []string:
		paths := make([]string, len(v))
		for i, s := range v {
			paths[i] = os.ExpandEnv(s)
		}
		eff.SourcePaths = paths
	case nil:
		return &errs.ConfigError{Kind: errs.ConfigMissingRequired, Path: eff.JobName + ".Path", Message: "Path is required"}
	default:
		return &errs.ConfigError{Kind: errs.ConfigInvalidValue, Path: eff.JobName + ".Path", Message: "Path must be a string or a sequence of strings"}
	}
	return nil
}

// resolveTargetInstances looks up each TargetNames entry in order,
// rejecting unknown names and duplicates, per spec §4.1.
func (r *Resolver) resolveTargetInstances(names []string) ([]config.BackupTarget, error) {
	seen := make(map[string]bool, len(names))
	instances := make([]config.BackupTarget, 0, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, &errs.ConfigError{Kind: errs.ConfigInvalidValue, Path: "TargetNames", Message: fmt.Sprintf("duplicate target name %q", name)}
		}
		seen[name] = true
		target, ok := r.Global.BackupTargets[name]
		if !ok {
			return nil, &errs.ConfigError{Kind: errs.ConfigUnknownJob, Path: "TargetNames", Message: fmt.Sprintf("unknown target %q", name)}
		}
		instances = append(instances, target)
	}
	return instances, nil
}
