package pack

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unused-buddy/npm-dist/internal/manifest"
)

// twoArtifactManifest declares linux-x64 and darwin-arm64 releases.
func twoArtifactManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Version: "1.4.0",
		Artifacts: []manifest.Artifact{
			{
				Package: "@unused-buddy/linux-x64",
				Archive: "unused-buddy-linux-x64.tar.gz",
				Binary:  "unused-buddy",
				OS:      "linux",
				CPU:     "x64",
			},
			{
				Package: "@unused-buddy/darwin-arm64",
				Archive: "unused-buddy-darwin-arm64.tar.gz",
				Binary:  "unused-buddy",
				OS:      "darwin",
				CPU:     "arm64",
			},
		},
	}
}

// testDigests covers both packages of twoArtifactManifest.
func testDigests() map[string]string {
	return map[string]string{
		"@unused-buddy/linux-x64":    "1111111111111111111111111111111111111111111111111111111111111111",
		"@unused-buddy/darwin-arm64": "2222222222222222222222222222222222222222222222222222222222222222",
	}
}

// TestBuildMetaPackage checks the descriptor, checksum table and scripts.
func TestBuildMetaPackage(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()

	pkgDir, err := BuildMetaPackage(context.Background(), outDir, twoArtifactManifest(), testDigests(), testInfo())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(outDir, "unused-buddy"), pkgDir)

	var descriptor map[string]any
	contents, err := os.ReadFile(filepath.Join(pkgDir, DescriptorFilename))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(contents, &descriptor))

	require.Equal(t, "unused-buddy", descriptor["name"])
	require.Equal(t, "1.4.0", descriptor["version"])
	require.Equal(t, map[string]any{"unused-buddy": LauncherFilename}, descriptor["bin"])
	require.Equal(t, map[string]any{"postinstall": "node " + InstallerFilename}, descriptor["scripts"])
	require.Equal(t, map[string]any{"node": ">=18"}, descriptor["engines"])

	// Optional dependencies pin exactly the synthesized set to the release version.
	require.Equal(t, map[string]any{
		"@unused-buddy/linux-x64":    "1.4.0",
		"@unused-buddy/darwin-arm64": "1.4.0",
	}, descriptor["optionalDependencies"])

	// Platform restrictions belong to platform packages, not the facade.
	require.NotContains(t, descriptor, "os")
	require.NotContains(t, descriptor, "cpu")

	// The shipped checksum table matches the accumulated digests.
	var table map[string]string
	contents, err = os.ReadFile(filepath.Join(pkgDir, ChecksumsFilename))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(contents, &table))
	require.Equal(t, testDigests(), table)

	// Both generated scripts exist and are non-empty.
	for _, name := range []string{LauncherFilename, InstallerFilename} {
		contents, err = os.ReadFile(filepath.Join(pkgDir, name))
		require.NoError(t, err)
		require.NotEmpty(t, contents)
	}
}

// TestBuildMetaPackage_DigestSetMismatch rejects stale or missing digest entries.
func TestBuildMetaPackage_DigestSetMismatch(t *testing.T) {
	t.Parallel()

	// Missing entry.
	digests := testDigests()
	delete(digests, "@unused-buddy/darwin-arm64")

	_, err := BuildMetaPackage(context.Background(), t.TempDir(), twoArtifactManifest(), digests, testInfo())
	require.ErrorIs(t, err, errDigestSetMismatch)

	// Stale extra entry.
	digests = testDigests()
	digests["@unused-buddy/win32-x64"] = "3333333333333333333333333333333333333333333333333333333333333333"

	_, err = BuildMetaPackage(context.Background(), t.TempDir(), twoArtifactManifest(), digests, testInfo())
	require.ErrorIs(t, err, errDigestSetMismatch)
}

// TestBuildMetaPackage_Deterministic reproduces byte-identical artifacts.
func TestBuildMetaPackage_Deterministic(t *testing.T) {
	t.Parallel()

	first, err := BuildMetaPackage(context.Background(), t.TempDir(), twoArtifactManifest(), testDigests(), testInfo())
	require.NoError(t, err)

	second, err := BuildMetaPackage(context.Background(), t.TempDir(), twoArtifactManifest(), testDigests(), testInfo())
	require.NoError(t, err)

	for _, name := range []string{DescriptorFilename, ChecksumsFilename, LauncherFilename, InstallerFilename} {
		a, err := os.ReadFile(filepath.Join(first, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, name))
		require.NoError(t, err)
		require.Equal(t, a, b, name)
	}
}
