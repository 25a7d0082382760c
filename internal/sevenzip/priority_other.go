//go:build !windows

package sevenzip

import (
	"os/exec"

	"github.com/BootBlock/poshbackup/internal/config"
)

// Process priority classes and CPU affinity masks are Win32 concepts with
// no portable POSIX equivalent reachable from os/exec; on non-Windows
// platforms SevenZipProcessPriority and SevenZipCpuAffinity are accepted
// but not applied.
func platformApplyPriority() func(cmd *exec.Cmd, priority config.SevenZipPriority) error {
	return applyPriorityNoop
}

func platformApplyAffinity() func(cmd *exec.Cmd, mask uint64) error {
	return applyAffinityNoop
}
