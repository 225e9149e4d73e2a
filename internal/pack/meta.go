package pack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/unused-buddy/npm-dist/internal/logger"
	"github.com/unused-buddy/npm-dist/internal/manifest"
	"github.com/unused-buddy/npm-dist/internal/platform"
)

const (
	// LauncherFilename is the runtime launcher script inside the meta package.
	LauncherFilename = "run.js"
	// InstallerFilename is the install-time verifier script.
	InstallerFilename = "install.js"
	// ChecksumsFilename is the shipped binary-level checksum table.
	ChecksumsFilename = "checksums.json"
)

// errDigestSetMismatch is returned when the accumulated digest set does not
// cover exactly the manifest's package set.
var errDigestSetMismatch = errors.New("binary digest set does not match manifest")

// BuildMetaPackage synthesizes the facade package: a descriptor whose
// optional dependencies pin every platform package to the release version,
// the binary-level checksum table, and the generated launcher and installer
// scripts. Call it only after every platform package has been synthesized.
func BuildMetaPackage(
	ctx context.Context,
	outDir string,
	m *manifest.Manifest,
	digests map[string]string,
	info ReleaseInfo,
) (string, error) {
	// The shipped dependency set must reference exactly the packages
	// synthesized in this run, nothing stale and nothing missing.
	if len(digests) != len(m.Artifacts) {
		return "", fmt.Errorf("%w: %d digests for %d artifacts",
			errDigestSetMismatch, len(digests), len(m.Artifacts))
	}

	optionalDeps := make(map[string]string, len(m.Artifacts))

	for _, artifact := range m.Artifacts {
		if _, ok := digests[artifact.Package]; !ok {
			return "", fmt.Errorf("%w: no digest for %s", errDigestSetMismatch, artifact.Package)
		}

		optionalDeps[artifact.Package] = info.Version
	}

	pkgDir := filepath.Join(outDir, platform.ToolName)
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		return "", fmt.Errorf("create meta package dir: %w", err)
	}

	table, err := json.MarshalIndent(digests, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal checksum table: %w", err)
	}

	table = append(table, '\n')
	if err := os.WriteFile(filepath.Join(pkgDir, ChecksumsFilename), table, descriptorFileMode); err != nil {
		return "", fmt.Errorf("write checksum table: %w", err)
	}

	scripts, err := RenderScripts(info)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(pkgDir, LauncherFilename), scripts.Launcher, descriptorFileMode); err != nil {
		return "", fmt.Errorf("write launcher: %w", err)
	}

	if err := os.WriteFile(filepath.Join(pkgDir, InstallerFilename), scripts.Installer, descriptorFileMode); err != nil {
		return "", fmt.Errorf("write installer: %w", err)
	}

	homepage, bugs, repo := repoLinks(info.RepoIdentity)

	descriptor := &Descriptor{
		Name:                 platform.ToolName,
		Version:              info.Version,
		Description:          toolDescription,
		License:              toolLicense,
		Homepage:             homepage,
		Bugs:                 bugs,
		Repository:           repo,
		Bin:                  map[string]string{platform.ToolName: LauncherFilename},
		Files:                []string{LauncherFilename, InstallerFilename, ChecksumsFilename},
		Scripts:              map[string]string{"postinstall": "node " + InstallerFilename},
		OptionalDependencies: optionalDeps,
		Engines:              map[string]string{"node": info.NodeEngine},
	}

	if err := writeDescriptor(pkgDir, descriptor); err != nil {
		return "", fmt.Errorf("meta package: %w", err)
	}

	logger.InfoKV(ctx, "Synthesized meta package",
		"package", platform.ToolName, "dir", pkgDir, "dependencies", len(optionalDeps))

	return pkgDir, nil
}
