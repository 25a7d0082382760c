//go:build windows

package sevenzip

import (
	"os/exec"

	"golang.org/x/sys/windows"

	"github.com/BootBlock/poshbackup/internal/config"
)

// priorityClasses maps spec §4.3's SevenZipProcessPriority values onto the
// Win32 process priority classes, the same ones PowerShell's
// Start-Process -PriorityClass exposes.
var priorityClasses = map[config.SevenZipPriority]uint32{
	config.PriorityIdle:        windows.IDLE_PRIORITY_CLASS,
	config.PriorityBelowNormal: windows.BELOW_NORMAL_PRIORITY_CLASS,
	config.PriorityNormal:      windows.NORMAL_PRIORITY_CLASS,
	config.PriorityAboveNormal: windows.ABOVE_NORMAL_PRIORITY_CLASS,
	config.PriorityHigh:        windows.HIGH_PRIORITY_CLASS,
}

// applyPriorityWindows sets the spawned 7-Zip process's priority class via
// SetPriorityClass. cmd.Process must already be running (called after
// Launcher.Launch's Start, never before).
func applyPriorityWindows(cmd *exec.Cmd, priority config.SevenZipPriority) error {
	class, ok := priorityClasses[priority]
	if !ok || cmd.Process == nil {
		return nil
	}
	handle, err := windows.OpenProcess(windows.PROCESS_SET_INFORMATION, false, uint32(cmd.Process.Pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(handle)
	return windows.SetPriorityClass(handle, class)
}

// applyAffinityWindows sets the spawned process's CPU affinity mask via
// SetProcessAffinityMask.
func applyAffinityWindows(cmd *exec.Cmd, mask uint64) error {
	if cmd.Process == nil {
		return nil
	}
	handle, err := windows.OpenProcess(windows.PROCESS_SET_INFORMATION, false, uint32(cmd.Process.Pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(handle)
	return windows.SetProcessAffinityMask(handle, uintptr(mask))
}

func platformApplyPriority() func(cmd *exec.Cmd, priority config.SevenZipPriority) error {
	return applyPriorityWindows
}

func platformApplyAffinity() func(cmd *exec.Cmd, mask uint64) error {
	return applyAffinityWindows
}
