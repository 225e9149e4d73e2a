package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for archive suffixes the extractor
	// does not recognize.
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// errPathTraversal is returned for entries escaping the destination directory.
	errPathTraversal = errors.New("archive entry escapes destination")
	// errEntryTooLarge is returned when an entry exceeds maxEntryBytes.
	errEntryTooLarge = errors.New("archive entry too large")
)

// maxEntryBytes caps a single extracted entry (500 MB) to guard against
// decompression bombs.
const maxEntryBytes = 500 << 20

// Extract unpacks archivePath into destDir, dispatching on the archive's
// filename suffix. Supported formats: .tar.gz, .tgz, .zip.
// The only side effect is populating destDir.
func Extract(archivePath, destDir string) error {
	name := strings.ToLower(filepath.Base(archivePath))

	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return extractTarGz(archivePath, destDir)
	case strings.HasSuffix(name, ".zip"):
		return extractZip(archivePath, destDir)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(archivePath))
	}
}

// extractTarGz walks a gzip-compressed tarball and writes its regular files
// and directories under destDir.
func extractTarGz(archivePath, destDir string) error {
	archiveFile, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = archiveFile.Close()
	}()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}

	defer func() {
		_ = gzipReader.Close()
	}()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tarReader := tar.NewReader(gzipReader)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, err := secureJoin(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", header.Name, err)
			}
		case tar.TypeReg:
			if err := writeEntry(target, tarReader, os.FileMode(header.Mode)&0o777); err != nil {
				return fmt.Errorf("extract %s: %w", header.Name, err)
			}
		default:
			// Symlinks, devices and the rest have no place in a release
			// archive of a single binary.
			continue
		}
	}
}

// extractZip walks a zip archive and writes its files under destDir.
func extractZip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	for _, entry := range reader.File {
		target, err := secureJoin(destDir, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", entry.Name, err)
			}

			continue
		}

		entryReader, err := entry.Open()
		if err != nil {
			return fmt.Errorf("open entry %s: %w", entry.Name, err)
		}

		err = writeEntry(target, entryReader, entry.Mode()&0o777)
		_ = entryReader.Close()

		if err != nil {
			return fmt.Errorf("extract %s: %w", entry.Name, err)
		}
	}

	return nil
}

// writeEntry copies one archive entry to disk, creating parents and applying
// the size cap.
func writeEntry(target string, contents io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	if mode == 0 {
		mode = 0o644
	}

	out, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	written, err := io.Copy(out, io.LimitReader(contents, maxEntryBytes+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return err
	}

	if written > maxEntryBytes {
		return errEntryTooLarge
	}

	return nil
}

// secureJoin joins an archive entry name onto destDir, rejecting entries
// that would escape it.
func secureJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	if target != filepath.Clean(destDir) &&
		!strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", errPathTraversal, name)
	}

	return target, nil
}
