package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/unused-buddy/npm-dist/internal/checksum"
	"github.com/unused-buddy/npm-dist/internal/platform"
)

const (
	// ManifestFilename is the JSON manifest CI drops next to the archives.
	ManifestFilename = "manifest.json"

	// ChecksumsFilename is the archive-level digest table CI computes.
	ChecksumsFilename = "checksums.txt"
)

var (
	// ErrMissingAssets is returned when the manifest or checksum table is
	// absent from the assets directory.
	ErrMissingAssets = errors.New("release assets missing")
	// ErrInvalidTag is returned when the release tag is not strict
	// three-component semver.
	ErrInvalidTag = errors.New("invalid release tag")
	// ErrVersionMismatch is returned when the manifest version differs from
	// the tag-derived version.
	ErrVersionMismatch = errors.New("manifest version does not match release tag")
	// errNoArtifacts is returned for a manifest declaring nothing to publish.
	errNoArtifacts = errors.New("manifest declares no artifacts")
	// errDuplicatePackage is returned when two artifacts claim one package name.
	errDuplicatePackage = errors.New("duplicate package in manifest")
	// errUnsupportedTarget is returned for an artifact outside the support matrix.
	errUnsupportedTarget = errors.New("artifact targets unsupported platform")
	// errPackageSkew is returned when an artifact's package name disagrees
	// with the support matrix entry for its platform.
	errPackageSkew = errors.New("artifact package does not match support matrix")
)

// Artifact declares one platform archive and how to package it.
type Artifact struct {
	// Package is the npm package name the binary ships under.
	Package string `json:"package"`
	// Archive is the archive filename inside the assets directory.
	Archive string `json:"archive"`
	// Binary is the binary's path relative to the extracted archive root.
	Binary string `json:"binary"`
	// OS is the npm os value of the target platform.
	OS string `json:"os"`
	// CPU is the npm cpu value of the target platform.
	CPU string `json:"cpu"`
}

// Manifest is the release manifest produced by CI. Read-only input.
type Manifest struct {
	// Version is the release version, without the leading "v".
	Version string `json:"version"`
	// Artifacts lists every platform archive of the release, in publish order.
	Artifacts []Artifact `json:"artifacts"`
}

// Release bundles the validated manifest with the archive checksum table
// loaded from the same assets directory.
type Release struct {
	Manifest *Manifest
	// Archives is the archive-level digest table from checksums.txt.
	Archives checksum.Table
}

// VersionFromTag derives the release version from a tag, requiring the "v"
// prefix and strict three-component numeric semver with no pre-release or
// build metadata.
func VersionFromTag(tag string) (string, error) {
	if !strings.HasPrefix(tag, "v") || !semver.IsValid(tag) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}

	if semver.Prerelease(tag) != "" || semver.Build(tag) != "" || semver.Canonical(tag) != tag {
		return "", fmt.Errorf("%w: %q is not plain MAJOR.MINOR.PATCH", ErrInvalidTag, tag)
	}

	return strings.TrimPrefix(tag, "v"), nil
}

// Load reads and validates the release manifest and archive checksum table
// from assetsDir against the release tag. Any failure here is fatal for the
// run and happens before the pipeline mutates anything.
func Load(assetsDir, tag string) (*Release, error) {
	version, err := VersionFromTag(tag)
	if err != nil {
		return nil, err
	}

	manifestPath := filepath.Join(assetsDir, ManifestFilename)
	checksumsPath := filepath.Join(assetsDir, ChecksumsFilename)

	for _, path := range []string{manifestPath, checksumsPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingAssets, filepath.Base(path))
		}
	}

	contents, err := os.ReadFile(filepath.Clean(manifestPath))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest

	decoder := json.NewDecoder(bytes.NewReader(contents))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	if m.Version != version {
		return nil, fmt.Errorf("%w: manifest %q, tag %q", ErrVersionMismatch, m.Version, tag)
	}

	if err := validateArtifacts(m.Artifacts); err != nil {
		return nil, err
	}

	archives, err := checksum.Load(checksumsPath)
	if err != nil {
		return nil, err
	}

	return &Release{Manifest: &m, Archives: archives}, nil
}

// validateArtifacts enforces manifest-level invariants: at least one artifact,
// globally unique package names, and agreement with the support matrix.
func validateArtifacts(artifacts []Artifact) error {
	if len(artifacts) == 0 {
		return errNoArtifacts
	}

	seen := make(map[string]struct{}, len(artifacts))

	for _, artifact := range artifacts {
		if _, dup := seen[artifact.Package]; dup {
			return fmt.Errorf("%w: %s", errDuplicatePackage, artifact.Package)
		}

		seen[artifact.Package] = struct{}{}

		target, ok := platform.Find(artifact.OS, artifact.CPU)
		if !ok {
			return fmt.Errorf("%w: %s", errUnsupportedTarget, platform.Key(artifact.OS, artifact.CPU))
		}

		if artifact.Package != target.Package {
			return fmt.Errorf("%w: %s declares %s, matrix expects %s",
				errPackageSkew, platform.Key(artifact.OS, artifact.CPU), artifact.Package, target.Package)
		}
	}

	return nil
}
