package pack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/unused-buddy/npm-dist/internal/checksum"
	"github.com/unused-buddy/npm-dist/internal/logger"
	"github.com/unused-buddy/npm-dist/internal/manifest"
	"github.com/unused-buddy/npm-dist/internal/platform"
)

var (
	// ErrBinaryNotFound is returned when the manifest-declared binary is
	// absent from the extracted archive.
	ErrBinaryNotFound = errors.New("binary not found in extracted archive")
	// errNotInMatrix guards against artifacts that slipped past manifest
	// validation; reaching it is a programming error.
	errNotInMatrix = errors.New("artifact not in support matrix")
)

// binaryFileMode marks the packaged binary executable on non-Windows targets.
const binaryFileMode = 0o755

// PlatformPackage describes one synthesized platform package directory.
type PlatformPackage struct {
	// Name is the npm package name.
	Name string
	// Dir is the synthesized package directory.
	Dir string
	// OS is the npm os value the package is restricted to.
	OS string
	// Digest is the hex SHA-256 of the binary placed into the package,
	// computed after the copy.
	Digest string
}

// BuildPlatformPackage synthesizes the installable package for one verified,
// extracted artifact: it locates the declared binary under extractDir, copies
// it under the platform-conventional name, computes its digest from the copy,
// and writes an OS/CPU-restricted descriptor. The package directory is the
// only side effect.
func BuildPlatformPackage(
	ctx context.Context,
	outDir string,
	artifact manifest.Artifact,
	extractDir string,
	info ReleaseInfo,
) (*PlatformPackage, error) {
	target, ok := platform.Find(artifact.OS, artifact.CPU)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNotInMatrix, platform.Key(artifact.OS, artifact.CPU))
	}

	source := filepath.Join(extractDir, filepath.FromSlash(artifact.Binary))
	if _, err := os.Stat(source); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrBinaryNotFound, artifact.Package, artifact.Binary)
	}

	pkgDir := filepath.Join(outDir, strings.TrimPrefix(target.Package, platform.Scope+"/"))
	binaryPath := filepath.Join(pkgDir, filepath.FromSlash(target.Binary))

	if err := copyFile(source, binaryPath); err != nil {
		return nil, fmt.Errorf("package %s: %w", artifact.Package, err)
	}

	if artifact.OS != platform.WindowsOS {
		if err := os.Chmod(binaryPath, binaryFileMode); err != nil {
			return nil, fmt.Errorf("mark %s executable: %w", target.Binary, err)
		}
	}

	// The shipped digest is computed from the bytes actually placed in the
	// package, never trusted from any earlier table.
	digest, err := checksum.FileSHA256(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("package %s: %w", artifact.Package, err)
	}

	homepage, bugs, repo := repoLinks(info.RepoIdentity)

	descriptor := &Descriptor{
		Name:        target.Package,
		Version:     info.Version,
		Description: fmt.Sprintf("%s (%s binary)", toolDescription, target.Key()),
		License:     toolLicense,
		Homepage:    homepage,
		Bugs:        bugs,
		Repository:  repo,
		OS:          []string{artifact.OS},
		CPU:         []string{artifact.CPU},
		Bin:         map[string]string{platform.ToolName: target.Binary},
		Files:       []string{"bin"},
	}

	if err := writeDescriptor(pkgDir, descriptor); err != nil {
		return nil, fmt.Errorf("package %s: %w", artifact.Package, err)
	}

	logger.InfoKV(ctx, "Synthesized platform package",
		"package", target.Package, "dir", pkgDir, "digest", digest)

	return &PlatformPackage{
		Name:   target.Package,
		Dir:    pkgDir,
		OS:     artifact.OS,
		Digest: digest,
	}, nil
}

// copyFile copies src to dest, creating parent directories.
func copyFile(src, dest string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}

	defer func() {
		_ = in.Close()
	}()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create package dir: %w", err)
	}

	out, err := os.OpenFile(filepath.Clean(dest), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, descriptorFileMode)
	if err != nil {
		return fmt.Errorf("create binary: %w", err)
	}

	_, err = io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("copy binary: %w", err)
	}

	return nil
}
