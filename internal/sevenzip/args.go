// Package sevenzip implements ArgumentBuilder, SevenZipInvoker, and
// ArchiveTester (spec §4.2-§4.4): building the 7-Zip command line,
// launching it with retry/priority/affinity discipline, and interpreting
// its exit codes.
package sevenzip

import (
	"strconv"
	"strings"

	"github.com/BootBlock/poshbackup/internal/config"
	"github.com/BootBlock/poshbackup/internal/errs"
)

var exclusionPrefixes = []string{"-x!", "-xr!", "-i!", "-ir!"}

// ArchiveSpec describes the single archive ArgumentBuilder assembles
// arguments for.
type ArchiveSpec struct {
	ArchivePath      string
	SourcePaths      []string
	PasswordInUse    bool
	TempPasswordFile string // empty when no password file was written
}

// BuildArgs produces the ordered argument token sequence for a 7-Zip "add"
// invocation, per the fixed order documented in spec §4.2. eff supplies
// every tunable that affects the command line.
func BuildArgs(eff *config.EffectiveJobConfig, archive ArchiveSpec) ([]string, error) {
	if archive.ArchivePath == "" {
		return nil, &errs.ConfigError{Kind: errs.ConfigInvalidValue, Message: "archive path must not be empty"}
	}

	args := []string{"a"}

	args = append(args, "-t"+eff.ArchiveType)
	args = append(args, eff.CompressionLevel)

	if eff.CompressionMethod != "" {
		args = append(args, "-mm="+eff.CompressionMethod)
	}
	if eff.DictionarySize != "" {
		args = append(args, "-md="+eff.DictionarySize)
	}
	if eff.WordSize != "" {
		args = append(args, "-mfb="+eff.WordSize)
	}
	if eff.SolidBlockSize != "" {
		args = append(args, "-ms="+eff.SolidBlockSize)
	}
	if eff.CompressOpenFiles {
		args = append(args, "-ssw")
	}
	if eff.ThreadCount > 0 {
		args = append(args, threadsToken(eff.ThreadCount))
	}

	if eff.CreateSFX {
		args = append(args, sfxToken(eff.SFXModule))
	}

	args = append(args, "-x!$RECYCLE.BIN", `-x!System Volume Information`)

	for _, excl := range eff.AdditionalExclusions {
		args = append(args, prefixExclusion(excl))
	}

	if archive.PasswordInUse {
		args = append(args, "-mhe=on")
	}
	if archive.PasswordInUse && archive.TempPasswordFile != "" {
		args = append(args, `-spf"`+archive.TempPasswordFile+`"`)
	}

	args = append(args, archive.ArchivePath)
	args = append(args, archive.SourcePaths...)

	return args, nil
}

func threadsToken(n int) string {
	return "-mmt=" + strconv.Itoa(n)
}

func sfxToken(module config.SFXModule) string {
	switch module {
	case config.SFXModuleGUI:
		return "-sfx7zS.sfx"
	case config.SFXModuleInstaller:
		return "-sfx7zSD.sfx"
	default:
		return "-sfx"
	}
}

// prefixExclusion prepends -x! to any exclusion token that doesn't already
// carry one of the four recognised exclusion/inclusion prefixes, per spec
// §4.2 and the "Exclusion prefixing" testable property in §8.
func prefixExclusion(token string) string {
	for _, p := range exclusionPrefixes {
		if strings.HasPrefix(token, p) {
			return token
		}
	}
	return "-x!" + token
}
