package capture

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
)

// FingerprintAlgo names the fingerprint derivation so stored fingerprints can
// be re-validated if the strategy ever changes.
const FingerprintAlgo = "sha256(name|size|mtime_ns)"

// Fingerprint derives the stable capture fingerprint from a file's name, size
// and modification time. Content is deliberately not hashed: watch folders see
// large audio files and the name/size/mtime triple is stable per physical file.
func Fingerprint(name string, size int64, mtimeNS int64) string {
	payload := fmt.Sprintf("%s:%d:%d", name, size, mtimeNS)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(payload)))
}

// FingerprintFile stats the file at path and returns its fingerprint.
func FingerprintFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return Fingerprint(filepath.Base(path), info.Size(), info.ModTime().UnixNano()), nil
}
