package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/BootBlock/poshbackup/internal/errs"
)

var archiveExtensionPattern = regexp.MustCompile(`^\.[A-Za-z0-9.]+$`)

// hardCodedDefaults seeds every tunable the operator's config omits
// entirely, mirroring the fallback layer named in spec §4.1's precedence
// chain.
func hardCodedDefaults() Tunables {
	boolPtr := func(b bool) *bool { return &b }
	intPtr := func(i int) *int { return &i }
	strPtr := func(s string) *string { return &s }

	return Tunables{
		EnableVSS:                      boolPtr(false),
		VSSContextOption:                vssCtxPtr(VSSContextPersistentNoWriters),
		VSSMetadataCachePath:            strPtr(`%SystemDrive%\PoShBackupVSS`),
		VSSPollingTimeoutSeconds:        intPtr(120),
		VSSPollingIntervalSeconds:       intPtr(5),
		EnableRetries:                   boolPtr(true),
		MaxRetryAttempts:                intPtr(3),
		RetryDelaySeconds:               intPtr(60),
		SevenZipProcessPriority:         priorityPtr(PriorityNormal),
		TreatSevenZipWarningsAsSuccess:  boolPtr(false),
		GenerateArchiveChecksum:         boolPtr(false),
		ChecksumAlgorithm:               checksumPtr(ChecksumSHA256),
		VerifyArchiveChecksumOnTest:     boolPtr(false),
		TestArchiveAfterCreation:        boolPtr(false),
		ArchiveType:                     strPtr("7z"),
		CompressionLevel:                strPtr("Normal"),
		CompressOpenFiles:               boolPtr(false),
		ThreadCount:                     intPtr(0),
		CreateSFX:                       boolPtr(false),
		ArchiveDateFormat:               strPtr("yyyy-MMM-dd"),
		ArchiveExtension:                strPtr(".7z"),
		ArchivePasswordMethod:           passwordMethodPtr(PasswordMethodNone),
		OnSourcePathNotFound:            onMissingPtr(OnMissingSourceFailJob),
		SourceIsVMName:                  boolPtr(false),
		Simulate:                        boolPtr(false),
	}
}

func vssCtxPtr(v VSSContext) *VSSContext                             { return &v }
func priorityPtr(v SevenZipPriority) *SevenZipPriority               { return &v }
func checksumPtr(v ChecksumAlgorithm) *ChecksumAlgorithm              { return &v }
func passwordMethodPtr(v ArchivePasswordMethod) *ArchivePasswordMethod { return &v }
func onMissingPtr(v SourcePathNotFoundPolicy) *SourcePathNotFoundPolicy { return &v }

// pauseBeforeExitDecodeHook implements DESIGN.md Open Question 2: a bare
// bool coerces to Always/Never before the string lands in the
// PauseBeforeExitPolicy enum.
func pauseBeforeExitDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(PauseBeforeExitPolicy("")) {
			return data, nil
		}
		if from.Kind() == reflect.Bool {
			if data.(bool) {
				return string(PauseAlways), nil
			}
			return string(PauseNever), nil
		}
		return data, nil
	}
}

// Load reads the YAML configuration file at path, decodes it into a
// GlobalConfig, and validates it. Env vars take no precedence here:
// PoSh-Backup's config is an operator-authored document, not a flat
// env-var surface.
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, &errs.ConfigError{
			Kind:    errs.ConfigInvalidValue,
			Path:    path,
			Message: "reading configuration file",
			Err:     err,
		}
	}

	cfg := &GlobalConfig{Defaults: hardCodedDefaults()}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			pauseBeforeExitDecodeHook(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           cfg,
		Squash:           true,
	})
	if err != nil {
		return nil, &errs.ConfigError{Kind: errs.ConfigInvalidValue, Message: "building decoder", Err: err}
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, &errs.ConfigError{Kind: errs.ConfigInvalidValue, Path: path, Message: "decoding configuration", Err: err}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate performs schema validation beyond what mapstructure's decode can
// express: required fields, enumerated values, path syntax, and per-job
// schedule expressions.
func Validate(cfg *GlobalConfig) error {
	if cfg.SevenZipPath == "" {
		return &errs.ConfigError{Kind: errs.ConfigMissingRequired, Path: "SevenZipPath", Message: "SevenZipPath is required"}
	}
	if _, err := os.Stat(cfg.SevenZipPath); err != nil {
		return &errs.ConfigError{Kind: errs.ConfigInvalidValue, Path: "SevenZipPath", Message: "SevenZipPath must be an existing file", Err: err}
	}

	for name, job := range cfg.BackupLocations {
		if err := validateJob(name, job); err != nil {
			return err
		}
	}

	for name, set := range cfg.BackupSets {
		for _, jn := range set.JobNames {
			if _, ok := cfg.BackupLocations[jn]; !ok {
				return &errs.ConfigError{Kind: errs.ConfigUnknownJob, Path: fmt.Sprintf("BackupSets.%s.JobNames", name), Message: fmt.Sprintf("unknown job %q", jn)}
			}
		}
		switch set.OnErrorInJob {
		case OnErrorStopSet, OnErrorContinueSet, "":
		default:
			return &errs.ConfigError{Kind: errs.ConfigInvalidValue, Path: fmt.Sprintf("BackupSets.%s.OnErrorInJob", name), Message: "must be StopSet or ContinueSet"}
		}
	}

	for name, job := range cfg.BackupLocations {
		for _, tn := range job.TargetNames {
			if _, ok := cfg.BackupTargets[tn]; !ok {
				return &errs.ConfigError{Kind: errs.ConfigUnknownJob, Path: fmt.Sprintf("BackupLocations.%s.TargetNames", name), Message: fmt.Sprintf("unknown target %q", tn)}
			}
		}
	}

	if err := detectCycles(cfg); err != nil {
		return err
	}

	return nil
}

func validateJob(name string, job JobSpec) error {
	if job.Path == nil {
		return &errs.ConfigError{Kind: errs.ConfigMissingRequired, Path: fmt.Sprintf("BackupLocations.%s.Path", name), Message: "Path is required"}
	}
	if job.Schedule.Enabled && job.Schedule.Type == ScheduleTypeCron {
		if _, err := cron.ParseStandard(job.Schedule.Time); err != nil {
			return &errs.ConfigError{Kind: errs.ConfigInvalidValue, Path: fmt.Sprintf("BackupLocations.%s.Schedule.Time", name), Message: "invalid cron expression", Err: err}
		}
	}
	if job.ArchiveExtension != nil && !archiveExtensionPattern.MatchString(*job.ArchiveExtension) {
		return &errs.ConfigError{Kind: errs.ConfigInvalidValue, Path: fmt.Sprintf("BackupLocations.%s.ArchiveExtension", name), Message: "must match ^\\.[A-Za-z0-9.]+$"}
	}
	if job.VSSPollingTimeoutSeconds != nil {
		if *job.VSSPollingTimeoutSeconds < 1 || *job.VSSPollingTimeoutSeconds > 3600 {
			return &errs.ConfigError{Kind: errs.ConfigInvalidValue, Path: fmt.Sprintf("BackupLocations.%s.VSSPollingTimeoutSeconds", name), Message: "must be in [1, 3600]"}
		}
	}
	if job.VSSPollingIntervalSeconds != nil {
		if *job.VSSPollingIntervalSeconds < 1 || *job.VSSPollingIntervalSeconds > 600 {
			return &errs.ConfigError{Kind: errs.ConfigInvalidValue, Path: fmt.Sprintf("BackupLocations.%s.VSSPollingIntervalSeconds", name), Message: "must be in [1, 600]"}
		}
	}
	return nil
}

// detectCycles walks JobSpec.DependsOnJobs transitively from every backup
// location; a cycle is an Unresolvable ConfigError per spec §4.1.
func detectCycles(cfg *GlobalConfig) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(cfg.BackupLocations))
	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return &errs.ConfigError{
				Kind:    errs.ConfigUnresolvable,
				Path:    strings.Join(append(path, name), " -> "),
				Message: "cyclic job dependency",
			}
		}
		color[name] = gray
		job, ok := cfg.BackupLocations[name]
		if !ok {
			return &errs.ConfigError{Kind: errs.ConfigUnknownJob, Path: name, Message: fmt.Sprintf("unknown job %q", name)}
		}
		for _, dep := range job.DependsOnJobs {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}
	for name := range cfg.BackupLocations {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

// ExpandEnv expands Windows-style %VAR% and POSIX $VAR/${VAR} environment
// references in path-like config values, per spec §4.1's normalization
// rule and §4.5's cache-path expansion.
func ExpandEnv(s string) string {
	expanded := os.Expand(s, os.Getenv)
	re := regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)%`)
	return re.ReplaceAllStringFunc(expanded, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return m
	})
}

// ValidateSevenZipPath is exported separately so CLI startup can give a
// friendlier message than a generic ConfigError before a job even runs.
func ValidateSevenZipPath(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected the 7z executable", p)
	}
	if filepath.Ext(p) == "" {
		return fmt.Errorf("%s has no extension, expected 7z.exe or similar", p)
	}
	return nil
}
