package vss

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/BootBlock/poshbackup/internal/config"
	"github.com/BootBlock/poshbackup/internal/errs"
)

type fakeLister struct {
	copies []ShadowCopy
}

func (f *fakeLister) List(ctx context.Context) ([]ShadowCopy, error) {
	return f.copies, nil
}

type fakeRunner struct {
	scripts  []string
	exitCode int
}

func (f *fakeRunner) RunScript(ctx context.Context, scriptPath string) (int, string, error) {
	f.scripts = append(f.scripts, scriptPath)
	return f.exitCode, "", nil
}

func testEff() *config.EffectiveJobConfig {
	return &config.EffectiveJobConfig{
		VSSContextOption:          config.VSSContextPersistentNoWriters,
		VSSMetadataCachePath:      "/tmp/poshbackup-vss-cache",
		VSSPollingTimeoutSeconds:  5,
		VSSPollingIntervalSeconds: 1,
	}
}

func TestCreateTwoVolumesProducesTwoRegistryEntries(t *testing.T) {
	lister := &fakeLister{copies: []ShadowCopy{
		{ID: "{id-c}", VolumeName: "C:", DeviceObject: `\\?\GLOBALROOT\Device\HarddiskVolumeShadowCopy1`, InstallDate: time.Now()},
		{ID: "{id-d}", VolumeName: "D:", DeviceObject: `\\?\GLOBALROOT\Device\HarddiskVolumeShadowCopy2`, InstallDate: time.Now()},
	}}
	runner := &fakeRunner{}
	c := &Coordinator{
		Log:      logr.Discard(),
		Lister:   lister,
		Runner:   runner,
		Registry: NewRegistry(),
		PollInterval: func(ctx context.Context, d time.Duration) {},
	}

	shadowMap, err := c.Create(context.Background(), []string{`C:\A`, `D:\B`}, testEff())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if len(c.Registry.IDs()) != 2 {
		t.Fatalf("expected 2 registry entries, got %d", len(c.Registry.IDs()))
	}
	if !strings.HasPrefix(shadowMap[`C:\A`], `\\?\GLOBALROOT\Device\HarddiskVolumeShadowCopy`) {
		t.Errorf("expected mapped path under a shadow device object, got %q", shadowMap[`C:\A`])
	}
	if len(runner.scripts) != 1 {
		t.Errorf("expected exactly one diskshadow script run, got %d", len(runner.scripts))
	}
}

func TestCreateExcludesAlreadyRegisteredShadowID(t *testing.T) {
	registry := NewRegistry()
	registry.Add("{id-c}")
	lister := &fakeLister{copies: []ShadowCopy{
		{ID: "{id-c}", VolumeName: "C:", DeviceObject: "dev1", InstallDate: time.Now()},
		{ID: "{id-c-new}", VolumeName: "C:", DeviceObject: "dev2", InstallDate: time.Now()},
	}}
	c := &Coordinator{
		Log:      logr.Discard(),
		Lister:   lister,
		Runner:   &fakeRunner{},
		Registry: registry,
		PollInterval: func(ctx context.Context, d time.Duration) {},
	}
	shadowMap, err := c.Create(context.Background(), []string{`C:\A`}, testEff())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if !strings.Contains(shadowMap[`C:\A`], "dev2") {
		t.Errorf("expected the non-registered shadow to be selected, got %q", shadowMap[`C:\A`])
	}
}

func TestCreateDiskshadowFailureReturnsVssError(t *testing.T) {
	c := &Coordinator{
		Log:      logr.Discard(),
		Lister:   &fakeLister{},
		Runner:   &fakeRunner{exitCode: 1},
		Registry: NewRegistry(),
		PollInterval: func(ctx context.Context, d time.Duration) {},
	}
	_, err := c.Create(context.Background(), []string{`C:\A`}, testEff())
	if err == nil {
		t.Fatal("expected an error when diskshadow exits non-zero")
	}
}

func TestCreateNotElevatedReturnsVssNotAdmin(t *testing.T) {
	c := &Coordinator{
		Log:          logr.Discard(),
		Lister:       &fakeLister{},
		Runner:       &fakeRunner{},
		Registry:     NewRegistry(),
		IsElevated:   func() bool { return false },
		PollInterval: func(ctx context.Context, d time.Duration) {},
	}
	_, err := c.Create(context.Background(), []string{`C:\A`}, testEff())
	if err == nil {
		t.Fatal("expected an error when the process is not elevated")
	}
	var vssErr *errs.VssError
	if !errors.As(err, &vssErr) {
		t.Fatalf("expected *errs.VssError, got %T", err)
	}
	if vssErr.Kind != errs.VssNotAdmin {
		t.Errorf("expected Kind=VssNotAdmin, got %v", vssErr.Kind)
	}
	if len(c.Registry.IDs()) != 0 {
		t.Error("expected no shadows to be registered when elevation check fails")
	}
}

func TestCreateElevatedNilProceedsUnchecked(t *testing.T) {
	c := &Coordinator{
		Log:      logr.Discard(),
		Lister:   &fakeLister{copies: []ShadowCopy{{ID: "{id-c}", VolumeName: "C:", DeviceObject: "dev1", InstallDate: time.Now()}}},
		Runner:   &fakeRunner{},
		Registry: NewRegistry(),
		PollInterval: func(ctx context.Context, d time.Duration) {},
	}
	if _, err := c.Create(context.Background(), []string{`C:\A`}, testEff()); err != nil {
		t.Fatalf("Create() error = %v, want nil when IsElevated is nil", err)
	}
}

func TestRemoveClearsRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Add("{id-1}")
	runner := &fakeRunner{}
	c := &Coordinator{Log: logr.Discard(), Runner: runner, Registry: registry}
	c.Remove(context.Background())
	if len(registry.IDs()) != 0 {
		t.Error("expected Remove() to clear the registry")
	}
	if len(runner.scripts) != 1 {
		t.Errorf("expected exactly one delete script run, got %d", len(runner.scripts))
	}
}

func TestUniqueVolumesDeduplicatesAndSorts(t *testing.T) {
	vols := uniqueVolumes([]string{`D:\B`, `C:\A`, `D:\C`})
	if len(vols) != 2 || vols[0] != "C:" || vols[1] != "D:" {
		t.Errorf("expected [C: D:], got %v", vols)
	}
}

func TestParseCIMDate(t *testing.T) {
	got := parseCIMDate("/Date(1700000000000)/")
	if got.IsZero() {
		t.Error("expected a non-zero parsed time")
	}
}
