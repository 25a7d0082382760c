package sevenzip

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/BootBlock/poshbackup/internal/config"
)

func baseEff() *config.EffectiveJobConfig {
	return &config.EffectiveJobConfig{
		ArchiveType:       "7z",
		CompressionLevel:  "-mx=5",
		CompressOpenFiles: false,
	}
}

func TestBuildArgsOrdering(t *testing.T) {
	eff := baseEff()
	eff.CompressionMethod = "LZMA2"
	eff.DictionarySize = "64m"
	eff.WordSize = "64"
	eff.SolidBlockSize = "on"
	eff.CompressOpenFiles = true
	eff.ThreadCount = 4
	eff.CreateSFX = true
	eff.SFXModule = config.SFXModuleInstaller
	eff.AdditionalExclusions = []string{"*.tmp", "-xr!node_modules"}

	args, err := BuildArgs(eff, ArchiveSpec{
		ArchivePath:      `C:\Backups\DataBackup-2026-Jul-31.7z`,
		SourcePaths:      []string{`C:\Data`},
		PasswordInUse:    true,
		TempPasswordFile: `C:\Temp\pw.tmp`,
	})
	if err != nil {
		t.Fatalf("BuildArgs() error: %v", err)
	}

	want := []string{
		"a",
		"-t7z",
		"-mx=5",
		"-mm=LZMA2",
		"-md=64m",
		"-mfb=64",
		"-ms=on",
		"-ssw",
		"-mmt=4",
		"-sfx7zSD.sfx",
		"-x!$RECYCLE.BIN",
		`-x!System Volume Information`,
		"-x!*.tmp",
		"-xr!node_modules",
		"-mhe=on",
		`-spf"C:\Temp\pw.tmp"`,
		`C:\Backups\DataBackup-2026-Jul-31.7z`,
		`C:\Data`,
	}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Errorf("BuildArgs() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildArgsEmptyArchivePathIsError(t *testing.T) {
	_, err := BuildArgs(baseEff(), ArchiveSpec{ArchivePath: "", SourcePaths: []string{`C:\Data`}})
	if err == nil {
		t.Fatal("expected an error for an empty archive path")
	}
}

func TestBuildArgsUnrelatedMutationsDontPerturbOrdering(t *testing.T) {
	eff1 := baseEff()
	eff2 := baseEff()
	eff2.GenerateArchiveChecksum = true // unrelated to argument ordering

	args1, _ := BuildArgs(eff1, ArchiveSpec{ArchivePath: "a.7z", SourcePaths: []string{"src"}})
	args2, _ := BuildArgs(eff2, ArchiveSpec{ArchivePath: "a.7z", SourcePaths: []string{"src"}})
	if diff := cmp.Diff(args1, args2); diff != "" {
		t.Errorf("expected unrelated config mutation to leave argument order unchanged (-eff1 +eff2):\n%s", diff)
	}
}

func TestPrefixExclusionLeavesRecognisedPrefixesAlone(t *testing.T) {
	cases := map[string]string{
		"*.log":          "-x!*.log",
		"-x!*.log":       "-x!*.log",
		"-xr!build":      "-xr!build",
		"-i!include.txt": "-i!include.txt",
		"-ir!inc":        "-ir!inc",
	}
	for in, want := range cases {
		if got := prefixExclusion(in); got != want {
			t.Errorf("prefixExclusion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSFXModuleTokens(t *testing.T) {
	cases := map[config.SFXModule]string{
		config.SFXModuleGUI:       "-sfx7zS.sfx",
		config.SFXModuleInstaller: "-sfx7zSD.sfx",
		config.SFXModuleConsole:   "-sfx",
		"":                        "-sfx",
	}
	for module, want := range cases {
		if got := sfxToken(module); got != want {
			t.Errorf("sfxToken(%q) = %q, want %q", module, got, want)
		}
	}
}
