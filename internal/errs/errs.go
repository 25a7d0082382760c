// Package errs defines the engine's typed error taxonomy. Every component
// returns one of these kinds rather than a bare error string, so callers can
// branch with errors.As instead of string matching.
package errs

import "fmt"

// ConfigErrorKind enumerates EffectiveConfigResolver failure modes.
type ConfigErrorKind string

const (
	ConfigUnknownJob       ConfigErrorKind = "UnknownJob"
	ConfigUnknownSet       ConfigErrorKind = "UnknownSet"
	ConfigMissingRequired  ConfigErrorKind = "MissingRequired"
	ConfigInvalidValue     ConfigErrorKind = "InvalidValue"
	ConfigUnresolvable     ConfigErrorKind = "Unresolvable"
)

// ConfigError reports a configuration resolution failure.
type ConfigError struct {
	Kind    ConfigErrorKind
	Path    string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config: %s (%s): %s", e.Kind, e.Path, e.Message)
	}
	return fmt.Sprintf("config: %s: %s", e.Kind, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// SourceErrorKind enumerates source-path validation failures.
type SourceErrorKind string

const (
	SourceNotFound        SourceErrorKind = "NotFound"
	SourceInaccessibleUNC SourceErrorKind = "InaccessibleUNC"
)

// SourceError reports a problem resolving a job's configured source paths.
type SourceError struct {
	Kind    SourceErrorKind
	Path    string
	Message string
	Err     error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source: %s (%s): %s", e.Kind, e.Path, e.Message)
}

func (e *SourceError) Unwrap() error { return e.Err }

// SecretErrorKind enumerates SecretResolver failure modes.
type SecretErrorKind string

const (
	SecretNotConfigured  SecretErrorKind = "NotConfigured"
	SecretNotFound       SecretErrorKind = "NotFound"
	SecretCancelled      SecretErrorKind = "Cancelled"
	SecretInvalidType    SecretErrorKind = "InvalidSecretType"
)

// SecretError reports a password-resolution failure.
type SecretError struct {
	Kind    SecretErrorKind
	Message string
	Err     error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret: %s: %s", e.Kind, e.Message)
}

func (e *SecretError) Unwrap() error { return e.Err }

// VssErrorKind enumerates VssCoordinator failure modes.
type VssErrorKind string

const (
	VssNotAdmin          VssErrorKind = "NotAdmin"
	VssDiskshadowFailed  VssErrorKind = "DiskshadowFailed"
	VssPollTimeout       VssErrorKind = "PollTimeout"
	VssPartialDiscovery  VssErrorKind = "PartialDiscovery"
)

// VssError reports a VSS shadow-copy creation or discovery failure.
type VssError struct {
	Kind     VssErrorKind
	ExitCode int
	Message  string
	Err      error
}

func (e *VssError) Error() string {
	if e.Kind == VssDiskshadowFailed {
		return fmt.Sprintf("vss: %s (exit %d): %s", e.Kind, e.ExitCode, e.Message)
	}
	return fmt.Sprintf("vss: %s: %s", e.Kind, e.Message)
}

func (e *VssError) Unwrap() error { return e.Err }

// SnapshotErrorKind enumerates SnapshotCoordinator/provider failure modes.
type SnapshotErrorKind string

const (
	SnapshotProviderUnknown  SnapshotErrorKind = "ProviderUnknown"
	SnapshotCreateFailed     SnapshotErrorKind = "CreateFailed"
	SnapshotNoMountPaths     SnapshotErrorKind = "NoMountPaths"
	SnapshotSubPathUnparsable SnapshotErrorKind = "SubPathUnparsable"
)

// SnapshotError reports a VM-snapshot lifecycle failure.
type SnapshotError struct {
	Kind    SnapshotErrorKind
	Message string
	Err     error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot: %s: %s", e.Kind, e.Message)
}

func (e *SnapshotError) Unwrap() error { return e.Err }

// SevenZipErrorKind enumerates SevenZipInvoker failure modes.
type SevenZipErrorKind string

const (
	SevenZipLaunchFailed SevenZipErrorKind = "LaunchFailed"
	SevenZipNonZeroExit  SevenZipErrorKind = "NonZeroExit"
)

// SevenZipError reports a 7-Zip invocation failure after exhausting
// retries.
type SevenZipError struct {
	Kind     SevenZipErrorKind
	ExitCode int
	Attempts int
	Message  string
	Err      error
}

func (e *SevenZipError) Error() string {
	if e.Kind == SevenZipNonZeroExit {
		return fmt.Sprintf("7z: %s (exit %d, attempts %d): %s", e.Kind, e.ExitCode, e.Attempts, e.Message)
	}
	return fmt.Sprintf("7z: %s: %s", e.Kind, e.Message)
}

func (e *SevenZipError) Unwrap() error { return e.Err }

// TestError reports an ArchiveTester failure.
type TestError struct {
	ExitCode int
	Message  string
	Err      error
}

func (e *TestError) Error() string {
	return fmt.Sprintf("test: NonZeroExit(%d): %s", e.ExitCode, e.Message)
}

func (e *TestError) Unwrap() error { return e.Err }

// HookError reports a failing pre/post hook. Hook failures are never fatal
// to the job; they're recorded on the JobReport and logged.
type HookError struct {
	Name     string
	Path     string
	ExitCode int
	Message  string
	Err      error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook %q: %s (exit %d): %s", e.Name, e.Path, e.ExitCode, e.Message)
}

func (e *HookError) Unwrap() error { return e.Err }

// ResourceCleanupError reports a failure releasing a VSS shadow or snapshot
// session. It is always logged, never propagated as a job failure.
type ResourceCleanupError struct {
	Resource string
	Message  string
	Err      error
}

func (e *ResourceCleanupError) Error() string {
	return fmt.Sprintf("cleanup %q: %s", e.Resource, e.Message)
}

func (e *ResourceCleanupError) Unwrap() error { return e.Err }

// Sentinel 7-Zip invocation exit codes, the engine's own taxonomy rather
// than 7-Zip's raw one.
const (
	ExitLaunchFailed       = -999
	ExitConfirmationDeclined = -1000
	ExitUninitialized      = -1
)
