package etl

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
)

// Fingerprint hashes the identity (name, size, mtime) of each input file
// into a dataset key. Contents are never read, so the check is cheap; a
// touched or replaced file changes the key. Missing files hash as missing
// so an absent optional source still fingerprints deterministically.
func Fingerprint(paths []string) (string, error) {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	h := sha256.New()
	for _, p := range sorted {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintf(h, "%s|missing\n", p)
				continue
			}
			return "", fmt.Errorf("failed to stat %s: %w", p, err)
		}
		fmt.Fprintf(h, "%s|%d|%d\n", p, info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
