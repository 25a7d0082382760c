// Package hook implements HookRunner (spec §4.8): executing user-supplied
// pre/post scripts as child processes with structured arguments and
// recording their outcome on the JobReport without ever cancelling the
// job.
package hook

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/go-logr/logr"
)

// Status is a hook's outcome.
type Status string

const (
	StatusSuccess  Status = "Success"
	StatusFailure  Status = "Failure"
	StatusWarning  Status = "Warning"
	StatusNotFound Status = "NotFound"
)

// Args are passed to the hook script as environment variables, grounded on
// the teacher's podman/exec.go ExecConfig.Env convention.
type Args struct {
	JobName      string
	Status       string
	ConfigFile   string
	SimulateMode bool
	Extra        map[string]string
}

// Record is appended to the JobReport for every hook invocation.
type Record struct {
	Name     string
	Path     string
	Status   Status
	ExitCode int
	Output   string
}

// Runner executes a single hook script.
type Runner struct {
	Log logr.Logger
}

// New returns a Runner.
func New(log logr.Logger) *Runner {
	return &Runner{Log: log}
}

// Run executes path with args translated to environment variables. A
// missing script path is recorded as NotFound and is not fatal; hook
// failures never cancel the job, per spec §4.8.
func (r *Runner) Run(ctx context.Context, name, path string, args Args) Record {
	if path == "" {
		return Record{Name: name, Status: StatusNotFound}
	}
	if _, err := os.Stat(path); err != nil {
		r.Log.Info("hook script not found, skipping", "hook", name, "path", path)
		return Record{Name: name, Path: path, Status: StatusNotFound}
	}

	cmd := exec.CommandContext(ctx, path)
	cmd.Env = append(os.Environ(), toEnv(args)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	output := stdout.String() + stderr.String()

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			r.Log.Error(err, "failed to launch hook", "hook", name, "path", path)
			return Record{Name: name, Path: path, Status: StatusFailure, Output: err.Error()}
		}
	}

	status := StatusSuccess
	switch {
	case exitCode != 0:
		status = StatusFailure
		r.Log.Error(nil, "hook exited non-zero", "hook", name, "path", path, "exitCode", exitCode)
	case stderr.Len() > 0:
		status = StatusWarning
		r.Log.Info("hook wrote to stderr but exited zero", "hook", name, "path", path)
	}

	return Record{Name: name, Path: path, Status: status, ExitCode: exitCode, Output: output}
}

func toEnv(args Args) []string {
	env := []string{
		"POSHBACKUP_JOB_NAME=" + args.JobName,
		"POSHBACKUP_STATUS=" + args.Status,
		"POSHBACKUP_CONFIG_FILE=" + args.ConfigFile,
	}
	if args.SimulateMode {
		env = append(env, "POSHBACKUP_SIMULATE=1")
	}
	for k, v := range args.Extra {
		env = append(env, "POSHBACKUP_"+k+"="+v)
	}
	return env
}
