package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/go-logr/logr"
)

// HypervisorProvider is the built-in Provider, shelling out to Hyper-V's
// PowerShell cmdlets (Checkpoint-VM, Get-VMSnapshot | Mount-VHD / Dismount-VHD,
// Remove-VMSnapshot)
// the same way vss.Coordinator shells out to diskshadow.exe. Adapted from
// diggerhq-opencomputer/internal/firecracker/manager.go's Create/Destroy:
// every setup step can fail independently and must roll back everything
// that succeeded before it.
type HypervisorProvider struct {
	Log    logr.Logger
	Runner CommandRunner

	mu       sync.Mutex
	sessions map[string]*hypervisorState
}

// hypervisorState tracks what a single CreateSession call has set up so
// RemoveSession can roll it back symmetrically.
type hypervisorState struct {
	vmName         string
	checkpointName string
	mounted        []string
}

// CommandRunner abstracts process invocation so tests never spawn
// PowerShell; it mirrors the Launcher seam used in internal/sevenzip.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)
}

// execCommandRunner is the real CommandRunner.
type execCommandRunner struct{}

func (execCommandRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// NewHypervisorProvider returns a Provider backed by real PowerShell/Hyper-V
// cmdlets.
func NewHypervisorProvider(log logr.Logger) *HypervisorProvider {
	return &HypervisorProvider{
		Log:      log,
		Runner:   execCommandRunner{},
		sessions: make(map[string]*hypervisorState),
	}
}

// CreateSession checkpoints the named VM and mounts its disks, rolling back
// every completed step if a later one fails.
func (p *HypervisorProvider) CreateSession(ctx context.Context, resourceName string) (Session, error) {
	checkpointName := "poshbackup-" + resourceName

	if _, stderr, err := p.Runner.Run(ctx, "powershell.exe", "-NoProfile", "-NonInteractive", "-Command",
		fmt.Sprintf("Checkpoint-VM -Name %q -SnapshotName %q", resourceName, checkpointName)); err != nil {
		return Session{}, fmt.Errorf("checkpoint VM %s: %w: %s", resourceName, err, stderr)
	}

	mountOut, stderr, err := p.Runner.Run(ctx, "powershell.exe", "-NoProfile", "-NonInteractive", "-Command",
		fmt.Sprintf("Get-VMSnapshot -VMName %q -Name %q | Mount-VHD -Passthru | Get-Disk | Get-Partition | Get-Volume | Select-Object -ExpandProperty DriveLetter", resourceName, checkpointName))
	if err != nil {
		p.rollbackCheckpoint(ctx, resourceName, checkpointName)
		return Session{}, fmt.Errorf("mount snapshot disks for %s: %w: %s", resourceName, err, stderr)
	}

	mountPaths := parseMountOutput(mountOut)
	if len(mountPaths) == 0 {
		p.rollbackCheckpoint(ctx, resourceName, checkpointName)
		return Session{}, fmt.Errorf("snapshot of %s mounted no volumes", resourceName)
	}

	state := &hypervisorState{vmName: resourceName, checkpointName: checkpointName, mounted: mountPaths}
	p.mu.Lock()
	p.sessions[resourceName] = state
	p.mu.Unlock()

	return Session{ResourceName: resourceName, MountPaths: mountPaths, Success: true}, nil
}

// GetMountPaths returns the host drive letters mounted for session.
func (p *HypervisorProvider) GetMountPaths(ctx context.Context, session Session) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.sessions[session.ResourceName]
	if !ok {
		return nil, fmt.Errorf("no active session for %s", session.ResourceName)
	}
	return state.mounted, nil
}

// RemoveSession unmounts the snapshot disks and deletes the checkpoint,
// best-effort, mirroring firecracker.Manager's cleanupVM.
func (p *HypervisorProvider) RemoveSession(ctx context.Context, session Session) error {
	p.mu.Lock()
	state, ok := p.sessions[session.ResourceName]
	delete(p.sessions, session.ResourceName)
	p.mu.Unlock()
	if !ok {
		return nil
	}

	if _, stderr, err := p.Runner.Run(ctx, "powershell.exe", "-NoProfile", "-NonInteractive", "-Command",
		fmt.Sprintf("Get-VMSnapshot -VMName %q -Name %q | Dismount-VHD", state.vmName, state.checkpointName)); err != nil {
		p.Log.Error(err, "failed to dismount snapshot disks", "vm", state.vmName, "stderr", stderr)
	}

	p.rollbackCheckpoint(ctx, state.vmName, state.checkpointName)
	return nil
}

func (p *HypervisorProvider) rollbackCheckpoint(ctx context.Context, vmName, checkpointName string) {
	if _, stderr, err := p.Runner.Run(ctx, "powershell.exe", "-NoProfile", "-NonInteractive", "-Command",
		fmt.Sprintf("Remove-VMSnapshot -VMName %q -Name %q", vmName, checkpointName)); err != nil {
		p.Log.Error(err, "failed to remove VM checkpoint", "vm", vmName, "checkpoint", checkpointName, "stderr", stderr)
	}
}

func parseMountOutput(out string) []string {
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		paths = append(paths, line+`:\`)
	}
	return paths
}
