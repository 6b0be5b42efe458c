package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"runtime/debug"
	"sort"
	"strings"
)

// Fingerprint computes a content digest over every Go source file in the
// given filesystem: a SHA-256 over (relative path, content) pairs sorted by
// path for determinism. Test files and hidden or underscore-prefixed
// directories are excluded.
func Fingerprint(fsys fs.FS) (string, error) {
	var paths []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk sources: %w", err)
	}

	sort.Strings(paths)

	h := sha256.New()
	for _, path := range paths {
		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		h.Write([]byte(path))
		h.Write([]byte{0})
		h.Write(content)
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// FingerprintDir computes the fingerprint of the Go sources under dir.
func FingerprintDir(dir string) (string, error) {
	return Fingerprint(os.DirFS(dir))
}

// BuildFingerprint derives a fingerprint from the compiled binary's build
// info: the main module's version and checksum. It reports false when no
// usable build info is embedded (e.g. a plain `go build` of a dirty tree).
func BuildFingerprint() (string, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	main := info.Main
	if main.Sum == "" && (main.Version == "" || main.Version == "(devel)") {
		return "", false
	}
	h := sha256.Sum256([]byte(main.Path + "\x00" + main.Version + "\x00" + main.Sum))
	return hex.EncodeToString(h[:]), true
}

// DefaultFingerprinter returns a fingerprint provider that hashes the Go
// sources under sourceRoot when the directory exists and falls back to the
// binary's build info otherwise.
func DefaultFingerprinter(sourceRoot string) func() (string, error) {
	return func() (string, error) {
		if sourceRoot != "" {
			if st, err := os.Stat(sourceRoot); err == nil && st.IsDir() {
				return FingerprintDir(sourceRoot)
			}
		}
		if fp, ok := BuildFingerprint(); ok {
			return fp, nil
		}
		return "", fmt.Errorf("no source tree at %q and no build info available", sourceRoot)
	}
}
