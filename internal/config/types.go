// Package config loads and validates the PoSh-Backup configuration tree: a
// hierarchical YAML document describing backup locations, sets, targets,
// snapshot providers and every per-job tunable default.
package config

import "time"

// VSSContext mirrors the diskshadow.exe CONTEXT values the VssCoordinator
// accepts.
type VSSContext string

const (
	VSSContextPersistent             VSSContext = "Persistent"
	VSSContextPersistentNoWriters    VSSContext = "Persistent NoWriters"
	VSSContextVolatileNoWriters      VSSContext = "Volatile NoWriters"
)

// SevenZipPriority is the process priority class the invoker requests.
type SevenZipPriority string

const (
	PriorityIdle        SevenZipPriority = "Idle"
	PriorityBelowNormal  SevenZipPriority = "BelowNormal"
	PriorityNormal       SevenZipPriority = "Normal"
	PriorityAboveNormal  SevenZipPriority = "AboveNormal"
	PriorityHigh         SevenZipPriority = "High"
)

// ChecksumAlgorithm enumerates the supported checksum digests.
type ChecksumAlgorithm string

const (
	ChecksumSHA1   ChecksumAlgorithm = "SHA1"
	ChecksumSHA256 ChecksumAlgorithm = "SHA256"
	ChecksumSHA384 ChecksumAlgorithm = "SHA384"
	ChecksumSHA512 ChecksumAlgorithm = "SHA512"
	ChecksumMD5    ChecksumAlgorithm = "MD5"
)

// ArchivePasswordMethod selects which SecretResolver method produces the
// archive password.
type ArchivePasswordMethod string

const (
	PasswordMethodNone             ArchivePasswordMethod = "None"
	PasswordMethodInteractive      ArchivePasswordMethod = "Interactive"
	PasswordMethodSecretManagement ArchivePasswordMethod = "SecretManagement"
	PasswordMethodSecureStringFile ArchivePasswordMethod = "SecureStringFile"
	PasswordMethodPlainText        ArchivePasswordMethod = "PlainText"
)

// SFXModule selects the 7-Zip SFX stub bundled into a self-extracting
// archive.
type SFXModule string

const (
	SFXModuleGUI       SFXModule = "GUI"
	SFXModuleInstaller SFXModule = "INSTALLER"
	SFXModuleConsole   SFXModule = "CONSOLE"
)

// SourcePathNotFoundPolicy controls how JobPreProcessor reacts when a
// configured source path doesn't exist.
type SourcePathNotFoundPolicy string

const (
	OnMissingSourceFailJob         SourcePathNotFoundPolicy = "FailJob"
	OnMissingSourceSkipJob         SourcePathNotFoundPolicy = "SkipJob"
	OnMissingSourceWarnAndContinue SourcePathNotFoundPolicy = "WarnAndContinue"
)

// OnErrorInJob controls whether a failing job stops or continues a set.
type OnErrorInJob string

const (
	OnErrorStopSet     OnErrorInJob = "StopSet"
	OnErrorContinueSet OnErrorInJob = "ContinueSet"
)

// PostRunAction enumerates system actions that can follow a job or set.
type PostRunAction string

const (
	PostRunNone     PostRunAction = "None"
	PostRunShutdown PostRunAction = "Shutdown"
	PostRunRestart  PostRunAction = "Restart"
	PostRunHibernate PostRunAction = "Hibernate"
	PostRunLogOff   PostRunAction = "LogOff"
	PostRunSleep    PostRunAction = "Sleep"
	PostRunLock     PostRunAction = "Lock"
)

// TriggerStatus enumerates the job/set statuses that can arm a PostRunAction.
type TriggerStatus string

const (
	TriggerSuccess          TriggerStatus = "SUCCESS"
	TriggerWarnings         TriggerStatus = "WARNINGS"
	TriggerFailure          TriggerStatus = "FAILURE"
	TriggerSimulatedComplete TriggerStatus = "SIMULATED_COMPLETE"
	TriggerAny              TriggerStatus = "ANY"
)

// PauseBeforeExitPolicy resolves the legacy bool/string-enum
// PauseBeforeExit setting to a single enum. See DESIGN.md Open Question 2.
type PauseBeforeExitPolicy string

const (
	PauseAlways            PauseBeforeExitPolicy = "Always"
	PauseNever             PauseBeforeExitPolicy = "Never"
	PauseOnFailure         PauseBeforeExitPolicy = "OnFailure"
	PauseOnWarning         PauseBeforeExitPolicy = "OnWarning"
	PauseOnFailureOrWarning PauseBeforeExitPolicy = "OnFailureOrWarning"
)

// TargetType enumerates the supported remote-target provider kinds.
type TargetType string

const (
	TargetTypeUNC       TargetType = "UNC"
	TargetTypeSFTP      TargetType = "SFTP"
	TargetTypeReplicate TargetType = "Replicate"
	TargetTypeS3        TargetType = "S3"
)

// ScheduleType enumerates supported schedule trigger kinds. The engine
// itself never schedules; this is validated at load time only so a bad
// cron expression is caught before any job runs.
type ScheduleType string

const (
	ScheduleTypeCron ScheduleType = "Cron"
	ScheduleTypeOnce ScheduleType = "Once"
)

// Schedule describes when a job should run under an external scheduler.
// The engine treats it as opaque metadata beyond validating Time when
// Type is Cron.
type Schedule struct {
	Enabled bool         `mapstructure:"Enabled"`
	Type    ScheduleType `mapstructure:"Type"`
	Time    string       `mapstructure:"Time"`
}

// RetentionSettings bounds how many archive generations a target keeps.
type RetentionSettings struct {
	KeepCount int `mapstructure:"KeepCount"`
}

// PostRunActionSpec is the post-run system action policy attached to a job,
// set, or the global defaults block.
type PostRunActionSpec struct {
	Enabled         bool            `mapstructure:"Enabled"`
	Action          PostRunAction   `mapstructure:"Action"`
	DelaySeconds    int             `mapstructure:"DelaySeconds"`
	TriggerOnStatus []TriggerStatus `mapstructure:"TriggerOnStatus"`
	ForceAction     bool            `mapstructure:"ForceAction"`
}

// Tunables holds every per-job setting that can be overridden at the
// global-default, set, job, or CLI layer. EffectiveConfigResolver merges one
// instance of this per layer into a single EffectiveJobConfig.
type Tunables struct {
	EnableVSS                       *bool                      `mapstructure:"EnableVSS"`
	VSSContextOption                *VSSContext                `mapstructure:"VSSContextOption"`
	VSSMetadataCachePath            *string                    `mapstructure:"VSSMetadataCachePath"`
	VSSPollingTimeoutSeconds        *int                       `mapstructure:"VSSPollingTimeoutSeconds"`
	VSSPollingIntervalSeconds       *int                       `mapstructure:"VSSPollingIntervalSeconds"`
	EnableRetries                   *bool                      `mapstructure:"EnableRetries"`
	MaxRetryAttempts                *int                       `mapstructure:"MaxRetryAttempts"`
	RetryDelaySeconds               *int                       `mapstructure:"RetryDelaySeconds"`
	SevenZipProcessPriority         *SevenZipPriority          `mapstructure:"SevenZipProcessPriority"`
	SevenZipCpuAffinity             *string                    `mapstructure:"SevenZipCpuAffinity"`
	TreatSevenZipWarningsAsSuccess  *bool                      `mapstructure:"TreatSevenZipWarningsAsSuccess"`
	GenerateArchiveChecksum         *bool                      `mapstructure:"GenerateArchiveChecksum"`
	ChecksumAlgorithm               *ChecksumAlgorithm         `mapstructure:"ChecksumAlgorithm"`
	VerifyArchiveChecksumOnTest     *bool                      `mapstructure:"VerifyArchiveChecksumOnTest"`
	TestArchiveAfterCreation        *bool                      `mapstructure:"TestArchiveAfterCreation"`
	ArchiveType                     *string                    `mapstructure:"ArchiveType"`
	CompressionLevel                *string                    `mapstructure:"CompressionLevel"`
	CompressionMethod                *string                   `mapstructure:"CompressionMethod"`
	DictionarySize                  *string                    `mapstructure:"DictionarySize"`
	WordSize                        *string                    `mapstructure:"WordSize"`
	SolidBlockSize                  *string                    `mapstructure:"SolidBlockSize"`
	CompressOpenFiles               *bool                      `mapstructure:"CompressOpenFiles"`
	ThreadCount                     *int                       `mapstructure:"ThreadCount"`
	CreateSFX                       *bool                      `mapstructure:"CreateSFX"`
	SFXModule                       *SFXModule                 `mapstructure:"SFXModule"`
	AdditionalExclusions             []string                  `mapstructure:"AdditionalExclusions"`
	ArchiveDateFormat                *string                   `mapstructure:"ArchiveDateFormat"`
	ArchiveExtension                 *string                   `mapstructure:"ArchiveExtension"`
	ArchivePasswordMethod             *ArchivePasswordMethod    `mapstructure:"ArchivePasswordMethod"`
	ArchivePasswordSecretName         *string                  `mapstructure:"ArchivePasswordSecretName"`
	ArchivePasswordVaultName          *string                  `mapstructure:"ArchivePasswordVaultName"`
	ArchivePasswordSecureStringPath   *string                  `mapstructure:"ArchivePasswordSecureStringPath"`
	ArchivePasswordPlainText          *string                  `mapstructure:"ArchivePasswordPlainText"`
	UsePassword                      *bool                     `mapstructure:"UsePassword"`
	OnSourcePathNotFound             *SourcePathNotFoundPolicy `mapstructure:"OnSourcePathNotFound"`
	PostRunAction                    *PostRunActionSpec        `mapstructure:"PostRunAction"`
	PauseBeforeExit                  interface{}               `mapstructure:"PauseBeforeExit"`
	SnapshotProviderName              *string                  `mapstructure:"SnapshotProviderName"`
	SourceIsVMName                    *bool                    `mapstructure:"SourceIsVMName"`
	Simulate                          *bool                    `mapstructure:"Simulate"`
	PreBackupScriptPath               *string                  `mapstructure:"PreBackupScriptPath"`
	PostBackupScriptOnSuccessPath     *string                  `mapstructure:"PostBackupScriptOnSuccessPath"`
	PostBackupScriptOnFailurePath     *string                  `mapstructure:"PostBackupScriptOnFailurePath"`
	PostBackupScriptAlwaysPath        *string                  `mapstructure:"PostBackupScriptAlwaysPath"`
}

// JobSpec is the raw per-job configuration as authored under
// BackupLocations.<name>.
type JobSpec struct {
	Tunables         `mapstructure:",squash"`
	Path             interface{} `mapstructure:"Path"` // string or []string
	Name             string      `mapstructure:"Name"`
	DestinationDir   string      `mapstructure:"DestinationDir"`
	TargetNames      []string    `mapstructure:"TargetNames"`
	Schedule         Schedule    `mapstructure:"Schedule"`
	DependsOnJobs    []string    `mapstructure:"DependsOnJobs"`
	Enabled          *bool       `mapstructure:"Enabled"`
}

// BackupSet is a named, ordered group of jobs sharing error-handling and
// post-run policy.
type BackupSet struct {
	JobNames      []string          `mapstructure:"JobNames"`
	OnErrorInJob  OnErrorInJob      `mapstructure:"OnErrorInJob"`
	PostRunAction PostRunActionSpec `mapstructure:"PostRunAction"`
}

// BackupTarget is a named remote-destination instance. TargetSpecificSettings
// stays an opaque map until the Type discriminator selects how to decode it
// (see internal/target).
type BackupTarget struct {
	Type                   TargetType             `mapstructure:"Type"`
	TargetSpecificSettings map[string]interface{} `mapstructure:"TargetSpecificSettings"`
	RetentionSettings       RetentionSettings     `mapstructure:"RetentionSettings"`
	CredentialsSecretName   string                `mapstructure:"CredentialsSecretName"`
}

// SnapshotProviderSpec names a pluggable VM-snapshot provider and its
// provider-specific settings.
type SnapshotProviderSpec struct {
	Type     string                 `mapstructure:"Type"`
	Settings map[string]interface{} `mapstructure:"Settings"`
}

// GlobalConfig is the process-wide, immutable-after-load configuration
// tree.
type GlobalConfig struct {
	SevenZipPath          string                          `mapstructure:"SevenZipPath"`
	DefaultDestinationDir string                          `mapstructure:"DefaultDestinationDir"`
	VSSMetadataCachePath  string                          `mapstructure:"VSSMetadataCachePath"`
	ReportDirectory       string                          `mapstructure:"ReportDirectory"`
	LogDirectory          string                          `mapstructure:"LogDirectory"`
	EnableFileLogging     bool                            `mapstructure:"EnableFileLogging"`
	ReportGeneratorType   interface{}                     `mapstructure:"ReportGeneratorType"` // string or []string

	Defaults Tunables `mapstructure:",squash"`

	BackupLocations   map[string]JobSpec              `mapstructure:"BackupLocations"`
	BackupSets        map[string]BackupSet            `mapstructure:"BackupSets"`
	BackupTargets     map[string]BackupTarget         `mapstructure:"BackupTargets"`
	SnapshotProviders map[string]SnapshotProviderSpec `mapstructure:"SnapshotProviders"`

	PostRunActionDefaults PostRunActionSpec `mapstructure:"PostRunActionDefaults"`
}

// CLIOverrides carries command-line flag values that outrank every
// configuration layer. A nil field means "not supplied on the command
// line" and falls through to the job/set/global layers.
type CLIOverrides struct {
	Tunables
	BackupLocationName string
	RunSet             string
	Simulate           *bool
	Confirm            bool
}

// EffectiveJobConfig is the flat record EffectiveConfigResolver produces:
// every tunable fully resolved, ready for the rest of the engine to consume
// without further layer-walking.
type EffectiveJobConfig struct {
	JobName        string
	SourcePaths    []string
	ArchiveBaseName string
	DestinationDir string
	TargetNames    []string
	DependsOnJobs  []string
	Enabled        bool

	EnableVSS                 bool
	VSSContextOption           VSSContext
	VSSMetadataCachePath       string
	VSSPollingTimeoutSeconds   int
	VSSPollingIntervalSeconds  int

	EnableRetries      bool
	MaxRetryAttempts   int
	RetryDelaySeconds  int

	SevenZipProcessPriority SevenZipPriority
	SevenZipCpuAffinity     string

	TreatSevenZipWarningsAsSuccess bool
	GenerateArchiveChecksum        bool
	ChecksumAlgorithm              ChecksumAlgorithm
	VerifyArchiveChecksumOnTest    bool
	TestArchiveAfterCreation       bool

	ArchiveType       string
	CompressionLevel  string
	CompressionMethod string
	DictionarySize    string
	WordSize          string
	SolidBlockSize    string
	CompressOpenFiles bool
	ThreadCount       int

	CreateSFX bool
	SFXModule SFXModule

	AdditionalExclusions []string
	ArchiveDateFormat    string
	ArchiveExtension     string

	ArchivePasswordMethod           ArchivePasswordMethod
	ArchivePasswordSecretName       string
	ArchivePasswordVaultName        string
	ArchivePasswordSecureStringPath string
	ArchivePasswordPlainText        string
	UsePassword                     bool

	OnSourcePathNotFound SourcePathNotFoundPolicy
	PostRunAction        PostRunActionSpec
	PauseBeforeExit      PauseBeforeExitPolicy

	SnapshotProviderName string
	SourceIsVMName       bool

	Simulate bool

	PreBackupScriptPath           string
	PostBackupScriptOnSuccessPath string
	PostBackupScriptOnFailurePath string
	PostBackupScriptAlwaysPath    string

	ResolvedTargetInstances []BackupTarget

	// ReportGeneratorTypes is GlobalConfig.ReportGeneratorType normalized
	// from its string-or-sequence config form (spec §4.1) into an ordered
	// list, e.g. "HTML" -> []string{"HTML"}.
	ReportGeneratorTypes []string

	EffectiveAt time.Time
}
