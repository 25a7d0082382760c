// Package report renders a completed job or set run (internal/jobengine's
// Report accumulator) to an operator-facing form. HTML rendering is left
// to an external consumer; this package covers JSON and console output
// only, per spec §1.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/BootBlock/poshbackup/internal/jobengine"
)

// Renderer writes one job report to w.
type Renderer interface {
	Render(w io.Writer, r *jobengine.Report) error
}

// JSON renders the report as indented JSON, matching the flat
// JSON-tagged-struct style used throughout pkg/types.
type JSON struct{}

// jsonReport is the wire shape for Renderer output: jobengine.Report
// itself carries an unexported-intent Err field that must never reach an
// operator-facing report, so this mirrors its fields explicitly rather
// than embedding the struct.
type jsonReport struct {
	JobName           string                        `json:"jobName"`
	StartedAt         time.Time                     `json:"startedAt"`
	FinishedAt        time.Time                     `json:"finishedAt"`
	Status            jobengine.Status              `json:"status"`
	Message           string                        `json:"message,omitempty"`
	EffectiveSources  []string                      `json:"effectiveSources,omitempty"`
	PasswordSource    string                        `json:"passwordSource,omitempty"`
	VSSUsed           bool                          `json:"vssUsed"`
	VSSShadowCount    int                           `json:"vssShadowCount,omitempty"`
	SnapshotUsed      bool                          `json:"snapshotUsed"`
	SnapshotSessionID string                        `json:"snapshotSessionID,omitempty"`
	ArchivePath       string                        `json:"archivePath,omitempty"`
	ExitCode          int                           `json:"invocationExitCode"`
	Elapsed           time.Duration                 `json:"invocationElapsed"`
	AttemptsMade      int                           `json:"invocationAttempts"`
	TestOutcome       string                        `json:"testOutcome,omitempty"`
	Checksum          string                        `json:"checksum,omitempty"`
	ChecksumAlgorithm string                        `json:"checksumAlgorithm,omitempty"`
	RetentionActions  []jobengine.RetentionAction   `json:"retentionActions,omitempty"`
	TargetResults     []jobengine.TargetTransferResult `json:"targetResults,omitempty"`
	ReportGeneratorTypes []string                   `json:"reportGeneratorTypes,omitempty"`
}

func (JSON) Render(w io.Writer, r *jobengine.Report) error {
	out := jsonReport{
		JobName: r.JobName, StartedAt: r.StartedAt, FinishedAt: r.FinishedAt,
		Status: r.Status, Message: r.Message, EffectiveSources: r.EffectiveSources,
		PasswordSource: r.PasswordSource, VSSUsed: r.VSSUsed, VSSShadowCount: r.VSSShadowCount,
		SnapshotUsed: r.SnapshotUsed, SnapshotSessionID: r.SnapshotSessionID, ArchivePath: r.ArchivePath,
		ExitCode: r.Invocation.ExitCode, Elapsed: r.Invocation.Elapsed, AttemptsMade: r.Invocation.AttemptsMade,
		TestOutcome: string(r.TestOutcome), Checksum: r.Checksum, ChecksumAlgorithm: r.ChecksumAlgorithm,
		RetentionActions: r.RetentionActions, TargetResults: r.TargetResults,
		ReportGeneratorTypes: r.ReportGeneratorTypes,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Console renders a short human-readable summary for the CLI's default,
// non-JSON output mode.
type Console struct{}

var consoleTemplate = template.Must(template.New("console").Parse(
	`Job:          {{.JobName}}
Status:       {{.Status}}
{{- if .Message}}
Message:      {{.Message}}
{{- end}}
Started:      {{.StartedAt.Format "2006-01-02 15:04:05"}}
Finished:     {{.FinishedAt.Format "2006-01-02 15:04:05"}}
{{- if .ArchivePath}}
Archive:      {{.ArchivePath}}
{{- end}}
{{- if .Checksum}}
Checksum:     {{.ChecksumAlgorithm}}:{{.Checksum}}
{{- end}}
{{- if .VSSUsed}}
VSS shadows:  {{.VSSShadowCount}}
{{- end}}
{{- if .SnapshotUsed}}
Snapshot:     {{.SnapshotSessionID}}
{{- end}}
{{- range .TargetResults}}
Target {{.TargetName}} ({{.TargetType}}): {{if .Success}}OK{{else}}FAILED - {{.Message}}{{end}}
{{- end}}
{{- range .RetentionActions}}
Retention {{.Location}}: kept {{.Kept}}, removed {{len .Removed}}
{{- end}}
`))

func (Console) Render(w io.Writer, r *jobengine.Report) error {
	if err := consoleTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("rendering console report: %w", err)
	}
	return nil
}
