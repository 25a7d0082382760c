package jobengine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BootBlock/poshbackup/internal/config"
	"github.com/BootBlock/poshbackup/internal/secret"
	"github.com/go-logr/logr"
)

func TestFormatArchiveDate(t *testing.T) {
	fixed := time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		layout string
		want   string
	}{
		{"yyyy-MMM-dd", "2026-Mar-07"},
		{"yyyy-MM-dd", "2026-03-07"},
		{"yyyyMMdd", "20260307"},
	}
	for _, c := range cases {
		if got := formatArchiveDate(c.layout, fixed); got != c.want {
			t.Errorf("formatArchiveDate(%q) = %q, want %q", c.layout, got, c.want)
		}
	}
}

func TestArchivePathJoinsDestinationAndName(t *testing.T) {
	e := &Engine{Now: func() time.Time { return time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC) }}
	eff := &config.EffectiveJobConfig{
		ArchiveBaseName:   "Documents",
		DestinationDir:    "D:\\Backups",
		ArchiveDateFormat: "yyyy-MM-dd",
		ArchiveExtension:  ".7z",
	}

	got := e.archivePath(eff)
	want := filepath.Join("D:\\Backups", "Documents-2026-01-02.7z")
	if got != want {
		t.Errorf("archivePath() = %q, want %q", got, want)
	}
}

func TestWriteTempPasswordFileWritesAndZeroes(t *testing.T) {
	e := &Engine{Log: logr.Discard()}
	pw := secret.NewString("hunter2")

	path, inUse, err := e.writeTempPasswordFile(pw)
	if err != nil {
		t.Fatalf("writeTempPasswordFile() error = %v", err)
	}
	defer os.Remove(path)

	if !inUse {
		t.Fatal("expected inUse=true when a password is supplied")
	}
	if path == "" {
		t.Fatal("expected a non-empty temp file path")
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading temp password file: %v", err)
	}
	if string(contents) != "hunter2" {
		t.Errorf("temp password file contents = %q, want %q", contents, "hunter2")
	}
	if pw.Expose() != "" {
		t.Error("expected password to be zeroed after writing to disk")
	}
}

func TestWriteTempPasswordFileNilPasswordIsNoop(t *testing.T) {
	e := &Engine{Log: logr.Discard()}

	path, inUse, err := e.writeTempPasswordFile(nil)
	if err != nil {
		t.Fatalf("writeTempPasswordFile(nil) error = %v", err)
	}
	if inUse || path != "" {
		t.Errorf("expected no-op result for nil password, got path=%q inUse=%v", path, inUse)
	}
}

func TestAggregateSetStatusStopSetHaltsOnFailure(t *testing.T) {
	next, stop := aggregateSetStatus(StatusSuccess, StatusFailure, config.OnErrorStopSet)
	if !stop {
		t.Fatal("expected StopSet to halt on a failing job")
	}
	if next != StatusFailure {
		t.Errorf("next status = %v, want %v", next, StatusFailure)
	}
}

func TestAggregateSetStatusContinueSetDegradesToWarnings(t *testing.T) {
	next, stop := aggregateSetStatus(StatusSuccess, StatusFailure, config.OnErrorContinueSet)
	if stop {
		t.Fatal("expected ContinueSet to keep running after a failing job")
	}
	if next != StatusWarnings {
		t.Errorf("next status = %v, want %v", next, StatusWarnings)
	}
}

func TestAggregateSetStatusWarningsDoNotDowngradeFailure(t *testing.T) {
	next, stop := aggregateSetStatus(StatusFailure, StatusWarnings, config.OnErrorContinueSet)
	if stop {
		t.Fatal("a warning should never halt a set")
	}
	if next != StatusFailure {
		t.Errorf("next status = %v, want existing %v preserved", next, StatusFailure)
	}
}

func TestAggregateSetStatusSuccessAfterWarningsStaysWarnings(t *testing.T) {
	next, _ := aggregateSetStatus(StatusWarnings, StatusSuccess, config.OnErrorStopSet)
	if next != StatusWarnings {
		t.Errorf("next status = %v, want %v", next, StatusWarnings)
	}
}
