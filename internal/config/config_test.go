package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParsePublishTarget covers every recognized selector and rejection of typos.
func TestParsePublishTarget(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"all", "meta", "windows", "none"} {
		got, err := ParsePublishTarget(valid)
		require.NoError(t, err)
		require.Equal(t, PublishTarget(valid), got)
	}

	_, err := ParsePublishTarget("windwos")
	require.Error(t, err)

	_, err = ParsePublishTarget("")
	require.Error(t, err)
}

// TestPublishTarget_Selection verifies which packages each target publishes.
func TestPublishTarget_Selection(t *testing.T) {
	t.Parallel()

	require.True(t, TargetAll.SelectsPlatform("linux"))
	require.True(t, TargetAll.SelectsPlatform("win32"))
	require.True(t, TargetAll.SelectsMeta())

	require.False(t, TargetMeta.SelectsPlatform("linux"))
	require.True(t, TargetMeta.SelectsMeta())

	require.True(t, TargetWindows.SelectsPlatform("win32"))
	require.False(t, TargetWindows.SelectsPlatform("darwin"))
	require.False(t, TargetWindows.SelectsMeta())

	require.False(t, TargetNone.SelectsPlatform("linux"))
	require.False(t, TargetNone.SelectsMeta())
}

// TestValidate checks required fields and default filling.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))
	require.Error(t, Validate(&Config{Tag: "v1.0.0"}))
	require.Error(t, Validate(&Config{AssetsDir: "assets"}))

	cfg := &Config{AssetsDir: "assets", Tag: "v1.0.0"}
	require.NoError(t, Validate(cfg))
	require.Equal(t, TargetNone, cfg.Target)
	require.Equal(t, DefaultNpmBin, cfg.NpmBin)
	require.Equal(t, DefaultOutputDir, cfg.OutputDir)
	require.Equal(t, DefaultNodeEngine, cfg.NodeEngine)
	require.Equal(t, DefaultRepoIdentity, cfg.RepoIdentity)

	bad := &Config{AssetsDir: "assets", Tag: "v1.0.0", Target: "platforms"}
	require.Error(t, Validate(bad))
}

// TestLoadSave round-trips operator defaults through YAML.
func TestLoadSave(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "defaults.yaml")

	saved := &Config{
		RepoIdentity: "github.com/unused-buddy/unused-buddy",
		OutputDir:    "out",
		NpmBin:       "/usr/local/bin/npm",
		NodeEngine:   ">=20",
		LogLevel:     "debug",
	}
	require.NoError(t, Save(path, saved))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, saved.RepoIdentity, loaded.RepoIdentity)
	require.Equal(t, saved.OutputDir, loaded.OutputDir)
	require.Equal(t, saved.NpmBin, loaded.NpmBin)
	require.Equal(t, saved.NodeEngine, loaded.NodeEngine)
	require.Equal(t, saved.LogLevel, loaded.LogLevel)

	// Runtime-only fields never leak into the defaults file.
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(contents), "assets")
	require.NotContains(t, string(contents), "dry")
}

// TestLoad_Missing returns an error for an absent defaults file.
func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
