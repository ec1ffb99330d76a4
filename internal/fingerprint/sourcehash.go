package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/forgebuild/forge/internal/source"
)

// HashSourceTree summarizes a unit's on-disk source files by path and
// content. Uses source.WalkMemberFiles, the godirwalk-backed walk
// shared with workspace member discovery.
func HashSourceTree(dir string) (string, error) {
	paths, err := source.WalkMemberFiles(dir)
	if err != nil {
		return "", fmt.Errorf("fingerprint: walking %s: %w", dir, err)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			rel = p
		}
		fmt.Fprintf(h, "%s\t", rel)
		if err := hashFileContent(h, p); err != nil {
			return "", err
		}
		fmt.Fprint(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashFileContent streams p's content into h, writing its own
// sha256 into h rather than the raw bytes so every path entry
// contributes a fixed-width digest regardless of file size.
func hashFileContent(h io.Writer, p string) error {
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("fingerprint: opening %s: %w", p, err)
	}
	defer f.Close()

	fh := sha256.New()
	if _, err := io.Copy(fh, f); err != nil {
		return fmt.Errorf("fingerprint: reading %s: %w", p, err)
	}
	fmt.Fprint(h, hex.EncodeToString(fh.Sum(nil)))
	return nil
}
