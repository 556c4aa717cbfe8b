// Package incremental skips manifest rebuilds when the bundle reports and
// the project config are unchanged since the last successful build.
package incremental

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Entry is the fingerprint of one tracked input file.
type Entry struct {
	Path    string `json:"path"`
	Hash    string `json:"hash"`     // xxHash64, 16 hex digits
	ModTime int64  `json:"mtime_ns"` // UnixNano
	Size    int64  `json:"size"`
}

// sameStat reports whether two entries have identical mtime and size.
func (e *Entry) sameStat(other *Entry) bool {
	return e.ModTime == other.ModTime && e.Size == other.Size
}

// Fingerprint hashes the content of a report, config or manifest file.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	d := xxhash.New()
	if _, err := io.Copy(d, f); err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	return formatSum(d.Sum64()), nil
}

// FingerprintBytes hashes data the way Fingerprint hashes a file.
func FingerprintBytes(data []byte) string {
	return formatSum(xxhash.Sum64(data))
}

func formatSum(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}
