package jobengine

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/BootBlock/poshbackup/internal/config"
)

// computeChecksum hashes archivePath with the named algorithm, per the
// GenerateArchiveChecksum/ChecksumAlgorithm tunables of spec §6.
func computeChecksum(archivePath string, algo config.ChecksumAlgorithm) (string, error) {
	var h hash.Hash
	switch algo {
	case config.ChecksumSHA1:
		h = sha1.New()
	case config.ChecksumSHA384:
		h = sha512.New384()
	case config.ChecksumSHA512:
		h = sha512.New()
	case config.ChecksumMD5:
		h = md5.New()
	case config.ChecksumSHA256, "":
		h = sha256.New()
	default:
		return "", fmt.Errorf("unsupported checksum algorithm %q", algo)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
