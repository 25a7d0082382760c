package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/BootBlock/poshbackup/internal/jobengine"
)

func sampleReport() *jobengine.Report {
	r := jobengine.NewReport("job1", time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC))
	r.ArchivePath = `D:\Backups\job1-2026-01-02.7z`
	r.Checksum = "deadbeef"
	r.ChecksumAlgorithm = "SHA256"
	r.TargetResults = append(r.TargetResults, jobengine.TargetTransferResult{TargetName: "nas1", TargetType: "UNC", Success: true})
	r.Finish(jobengine.StatusSuccess, "", time.Date(2026, time.January, 2, 3, 5, 0, 0, time.UTC))
	return r
}

func TestJSONRenderProducesValidJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSON{}).Render(&buf, sampleReport()); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded["jobName"] != "job1" {
		t.Errorf("jobName = %v, want job1", decoded["jobName"])
	}
	if decoded["status"] != string(jobengine.StatusSuccess) {
		t.Errorf("status = %v, want %v", decoded["status"], jobengine.StatusSuccess)
	}
}

func TestConsoleRenderIncludesKeyFields(t *testing.T) {
	var buf bytes.Buffer
	if err := (Console{}).Render(&buf, sampleReport()); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Job:          job1", "Status:       SUCCESS", "Checksum:     SHA256:deadbeef", "Target nas1 (UNC): OK"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q, got:\n%s", want, out)
		}
	}
}
