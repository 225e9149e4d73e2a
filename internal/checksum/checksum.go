package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Table maps filenames to lowercase hex-encoded SHA-256 digests.
type Table map[string]string

var (
	// ErrChecksumMissing is returned when a file has no entry in the table.
	ErrChecksumMissing = errors.New("checksum missing")
	// ErrChecksumMismatch is returned when a file's digest differs from its
	// registered value.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// errMalformedLine is returned for lines that do not follow the
	// "digest [*]filename" convention.
	errMalformedLine = errors.New("malformed checksum line")
)

// hexDigestLength is the length of a hex-encoded SHA-256 digest.
const hexDigestLength = sha256.Size * 2

// Load parses a sha256sum-style checksum file: one "digest filename" pair per
// line, an optional "*" binary marker before the filename, Unix or Windows
// line endings, blank lines skipped. Malformed lines are rejected rather than
// skipped.
func Load(path string) (Table, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read checksum table: %w", err)
	}

	table := make(Table)

	for i, line := range strings.Split(string(contents), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: line %d", errMalformedLine, i+1)
		}

		digest := strings.ToLower(fields[0])
		if len(digest) != hexDigestLength {
			return nil, fmt.Errorf("%w: line %d: digest is not sha256", errMalformedLine, i+1)
		}

		if _, err := hex.DecodeString(digest); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", errMalformedLine, i+1, err)
		}

		name := strings.TrimPrefix(fields[1], "*")
		table[name] = digest
	}

	return table, nil
}

// Lookup returns the registered digest for a filename.
func (t Table) Lookup(name string) (string, error) {
	digest, ok := t[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrChecksumMissing, name)
	}

	return digest, nil
}

// FileSHA256 streams a file through SHA-256 and returns the lowercase hex digest.
func FileSHA256(path string) (string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open for digest: %w", err)
	}

	// Best-effort close; the file is only read.
	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifyFile recomputes the digest of dir/name and compares it against the
// table entry for name. Hex comparison is case-insensitive.
func (t Table) VerifyFile(dir, name string) error {
	expected, err := t.Lookup(name)
	if err != nil {
		return err
	}

	actual, err := FileSHA256(filepath.Join(dir, name))
	if err != nil {
		return err
	}

	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("%w: %s: expected %s, got %s", ErrChecksumMismatch, name, expected, actual)
	}

	return nil
}
