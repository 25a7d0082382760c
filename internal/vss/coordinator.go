package vss

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/BootBlock/poshbackup/internal/config"
	"github.com/BootBlock/poshbackup/internal/errs"
	"github.com/BootBlock/poshbackup/internal/metrics"
)

// ShadowCopyLister discovers existing shadow copies via the
// Win32_ShadowCopy management class. The real implementation shells out to
// PowerShell's Get-CimInstance the same way Coordinator shells out to
// diskshadow.exe, grounded on the teacher's process-invocation style rather
// than binding a native WMI API.
type ShadowCopyLister interface {
	List(ctx context.Context) ([]ShadowCopy, error)
}

// cimLister is the real ShadowCopyLister.
type cimLister struct{}

func (cimLister) List(ctx context.Context) ([]ShadowCopy, error) {
	cmd := exec.CommandContext(ctx, "powershell.exe", "-NoProfile", "-NonInteractive", "-Command",
		"Get-CimInstance Win32_ShadowCopy | Select-Object ID,VolumeName,DeviceObject,InstallDate | ConvertTo-Json")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("listing shadow copies: %w: %s", err, stderr.String())
	}
	return parseShadowCopyJSON(stdout.Bytes())
}

// DiskshadowRunner shells out to diskshadow.exe /s <script>, grounded on
// diggerhq-opencomputer/internal/podman/client.go's Run method.
type DiskshadowRunner interface {
	RunScript(ctx context.Context, scriptPath string) (exitCode int, stderr string, err error)
}

type execDiskshadowRunner struct{}

func (execDiskshadowRunner) RunScript(ctx context.Context, scriptPath string) (int, string, error) {
	cmd := exec.CommandContext(ctx, "diskshadow.exe", "/s", scriptPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), stderr.String(), nil
		}
		return -1, stderr.String(), err
	}
	return 0, stderr.String(), nil
}

// Coordinator implements VssCoordinator per spec §4.5.
type Coordinator struct {
	Log      logr.Logger
	Lister   ShadowCopyLister
	Runner   DiskshadowRunner
	Registry *Registry

	// IsElevated reports whether the current process holds administrator
	// privileges. Nil skips the check (used by tests that construct a
	// Coordinator directly); NewCoordinator always wires the platform
	// check.
	IsElevated func() bool

	PollInterval func(ctx context.Context, d time.Duration)
}

// NewCoordinator returns a Coordinator using the real diskshadow.exe and
// Win32_ShadowCopy integrations.
func NewCoordinator(log logr.Logger) *Coordinator {
	return &Coordinator{
		Log:        log,
		Lister:     cimLister{},
		Runner:     execDiskshadowRunner{},
		Registry:   NewRegistry(),
		IsElevated: platformIsElevated,
		PollInterval: func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		},
	}
}

// Create computes the unique volumes underlying sourcePaths, drives
// diskshadow.exe to snapshot them, polls for the resulting shadow copies,
// and returns the OriginalPath -> ShadowDeviceObjectPath map. Per spec
// §4.5, VSS requires administrator privileges; their absence is a hard
// failure rather than a silent attempt.
func (c *Coordinator) Create(ctx context.Context, sourcePaths []string, eff *config.EffectiveJobConfig) (ShadowMap, error) {
	if c.IsElevated != nil && !c.IsElevated() {
		return nil, &errs.VssError{Kind: errs.VssNotAdmin, Message: "VSS shadow-copy creation requires an elevated (administrator) process"}
	}

	volumes := uniqueVolumes(sourcePaths)
	if len(volumes) == 0 {
		return ShadowMap{}, nil
	}

	cachePath := config.ExpandEnv(eff.VSSMetadataCachePath)
	if parent := filepath.Dir(cachePath); parent != "." {
		if _, err := os.Stat(parent); err != nil {
			c.Log.Info("VSS metadata cache parent directory missing, continuing", "path", parent)
		}
	}

	scriptPath, err := c.writeScript(eff.VSSContextOption, cachePath, volumes)
	if err != nil {
		return nil, &errs.VssError{Kind: errs.VssDiskshadowFailed, Message: "writing diskshadow script", Err: err}
	}
	defer os.Remove(scriptPath)

	exitCode, stderr, err := c.Runner.RunScript(ctx, scriptPath)
	if err != nil {
		return nil, &errs.VssError{Kind: errs.VssDiskshadowFailed, Message: err.Error(), Err: err}
	}
	if exitCode != 0 {
		c.bestEffortCleanup(ctx)
		return nil, &errs.VssError{Kind: errs.VssDiskshadowFailed, ExitCode: exitCode, Message: stderr}
	}

	discovered, err := c.pollForShadows(ctx, volumes, eff)
	if err != nil {
		c.bestEffortCleanup(ctx)
		return nil, err
	}

	shadowMap := make(ShadowMap, len(sourcePaths))
	for _, src := range sourcePaths {
		vol := volumeOf(src)
		sc, ok := discovered[vol]
		if !ok {
			shadowMap[src] = src
			continue
		}
		rel := pathRelativeToVolume(src)
		shadowMap[src] = joinDeviceObject(sc.DeviceObject, rel)
	}

	metrics.VssShadowsActive.WithLabelValues().Set(float64(len(c.Registry.IDs())))
	return shadowMap, nil
}

// pollForShadows polls Win32_ShadowCopy every eff.VSSPollingIntervalSeconds
// up to eff.VSSPollingTimeoutSeconds, applying the candidate-selection
// rules from spec §4.5: InstallDate within the last 5 minutes, matching
// VolumeName, excluding IDs already bound this run, newest first.
func (c *Coordinator) pollForShadows(ctx context.Context, volumes []string, eff *config.EffectiveJobConfig) (map[string]ShadowCopy, error) {
	timeout := time.Duration(eff.VSSPollingTimeoutSeconds) * time.Second
	interval := time.Duration(eff.VSSPollingIntervalSeconds) * time.Second
	deadline := time.Now().Add(timeout)

	found := make(map[string]ShadowCopy, len(volumes))
	remaining := make(map[string]bool, len(volumes))
	for _, v := range volumes {
		remaining[v] = true
	}

	for {
		copies, err := c.Lister.List(ctx)
		if err != nil {
			return nil, &errs.VssError{Kind: errs.VssPollTimeout, Message: err.Error(), Err: err}
		}

		for vol := range remaining {
			candidate, ok := selectCandidate(copies, vol, c.Registry)
			if ok {
				found[vol] = candidate
				c.Registry.Add(candidate.ID)
				delete(remaining, vol)
			}
		}

		if len(remaining) == 0 {
			return found, nil
		}
		if time.Now().After(deadline) {
			if len(found) > 0 {
				return found, &errs.VssError{Kind: errs.VssPartialDiscovery, Message: fmt.Sprintf("discovered %d of %d volumes before timeout", len(found), len(volumes))}
			}
			return nil, &errs.VssError{Kind: errs.VssPollTimeout, Message: "no shadow copies discovered before timeout"}
		}
		c.PollInterval(ctx, interval)
	}
}

// selectCandidate picks the newest shadow for vol whose InstallDate is
// within the last 5 minutes and whose ID isn't already registered this
// run.
func selectCandidate(copies []ShadowCopy, vol string, registry *Registry) (ShadowCopy, bool) {
	cutoff := time.Now().Add(-5 * time.Minute)
	var candidates []ShadowCopy
	for _, sc := range copies {
		if sc.VolumeName != vol {
			continue
		}
		if sc.InstallDate.Before(cutoff) {
			continue
		}
		if registry.Contains(sc.ID) {
			continue
		}
		candidates = append(candidates, sc)
	}
	if len(candidates) == 0 {
		return ShadowCopy{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].InstallDate.After(candidates[j].InstallDate)
	})
	return candidates[0], true
}

// Remove issues DELETE SHADOWS ID <id> for every registered shadow and
// clears the registry. Failures are logged but never fatal, per spec
// §4.5's Cleanup rule.
func (c *Coordinator) Remove(ctx context.Context) {
	ids := c.Registry.IDs()
	if len(ids) == 0 {
		return
	}
	scriptPath, err := c.writeDeleteScript(ids)
	if err != nil {
		c.Log.Error(err, "failed to write diskshadow delete script")
		return
	}
	defer os.Remove(scriptPath)

	if _, stderr, err := c.Runner.RunScript(ctx, scriptPath); err != nil {
		c.Log.Error(&errs.ResourceCleanupError{Resource: "vss-shadows", Message: stderr, Err: err}, "failed to remove VSS shadows")
	}
	c.Registry.Clear()
	metrics.VssShadowsActive.WithLabelValues().Set(0)
}

func (c *Coordinator) bestEffortCleanup(ctx context.Context) {
	c.Remove(ctx)
}

func (c *Coordinator) writeScript(vssCtx config.VSSContext, cachePath string, volumes []string) (string, error) {
	f, err := os.CreateTemp("", "poshbackup-diskshadow-*.dsh")
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	fmt.Fprintf(&sb, "SET CONTEXT %s\n", vssCtx)
	fmt.Fprintf(&sb, "SET METADATA CACHE \"%s\"\n", cachePath)
	sb.WriteString("SET VERBOSE ON\n")
	for _, vol := range volumes {
		fmt.Fprintf(&sb, "ADD VOLUME %s ALIAS Vol_%s\n", vol, driveLetter(vol))
	}
	sb.WriteString("CREATE\n")

	if _, err := f.WriteString(sb.String()); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func (c *Coordinator) writeDeleteScript(ids []string) (string, error) {
	f, err := os.CreateTemp("", "poshbackup-diskshadow-delete-*.dsh")
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&sb, "DELETE SHADOWS ID %s\n", id)
	}
	if _, err := f.WriteString(sb.String()); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func driveLetter(vol string) string {
	return strings.TrimSuffix(vol, ":")
}

func uniqueVolumes(paths []string) []string {
	seen := make(map[string]bool)
	var volumes []string
	for _, p := range paths {
		vol := volumeOf(p)
		if vol == "" || seen[vol] {
			continue
		}
		seen[vol] = true
		volumes = append(volumes, vol)
	}
	sort.Strings(volumes)
	return volumes
}

func volumeOf(path string) string {
	if len(path) >= 2 && path[1] == ':' {
		return strings.ToUpper(path[:2])
	}
	return ""
}

func pathRelativeToVolume(path string) string {
	if len(path) >= 2 && path[1] == ':' {
		return strings.TrimPrefix(path[2:], `\`)
	}
	return path
}

func joinDeviceObject(deviceObject, rel string) string {
	if rel == "" {
		return deviceObject
	}
	return deviceObject + `\` + rel
}
