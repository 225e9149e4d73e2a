package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PublishTarget selects which synthesized packages are pushed to the registry.
type PublishTarget string

const (
	// TargetAll publishes every platform package and then the meta package.
	TargetAll PublishTarget = "all"
	// TargetMeta publishes only the meta package. Platform packages are still
	// synthesized and validated, for re-runs after they were already pushed.
	TargetMeta PublishTarget = "meta"
	// TargetWindows publishes only the Windows platform package.
	TargetWindows PublishTarget = "windows"
	// TargetNone synthesizes and validates everything but publishes nothing.
	TargetNone PublishTarget = "none"
)

// Config carries every parameter a publish run needs. It is built once in the
// command layer and threaded through the pipeline as an explicit value;
// no component reads process-wide state on its own.
type Config struct {
	// AssetsDir is the directory holding manifest.json, checksums.txt and the
	// platform archives produced by CI. Not persisted to YAML.
	AssetsDir string `yaml:"-"`
	// Tag is the release tag being published (e.g. "v1.4.0"). Not persisted.
	Tag string `yaml:"-"`
	// DryRun switches registry publishes to npm's non-mutating mode.
	// Synthesis and validation run identically either way. Not persisted.
	DryRun bool `yaml:"-"`
	// Target selects which packages are published. Not persisted.
	Target PublishTarget `yaml:"-"`
	// Provenance requests registry-side provenance attestation.
	// It is honored only when CITrusted is also set. Not persisted.
	Provenance bool `yaml:"-"`
	// CITrusted reports that the run executes under a trusted CI identity.
	// Detected once in the command layer from ambient CI signals. Not persisted.
	CITrusted bool `yaml:"-"`

	// RepoIdentity is the source repository slug (e.g.
	// "github.com/unused-buddy/unused-buddy") used to populate descriptor
	// homepage, bugs and repository fields.
	RepoIdentity string `yaml:"repo"`
	// OutputDir is where package directories are synthesized.
	OutputDir string `yaml:"output_dir"`
	// NpmBin is the registry CLI executable to invoke.
	NpmBin string `yaml:"npm_bin"`
	// NodeEngine is the minimum Node.js version constraint embedded in the
	// meta package descriptor.
	NodeEngine string `yaml:"node_engine"`
	// LogLevel adjusts logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for publisher defaults.
	DefaultConfigFilename = "ub-publish.yaml"

	// DefaultOutputDir is where package directories are created by default.
	DefaultOutputDir = "npm-packages"

	// DefaultNpmBin is the registry CLI invoked for publishes.
	DefaultNpmBin = "npm"

	// DefaultNodeEngine is the minimum Node.js version shipped in the
	// meta package descriptor.
	DefaultNodeEngine = ">=18"

	// DefaultRepoIdentity points descriptor metadata at the tool's repository.
	DefaultRepoIdentity = "github.com/unused-buddy/unused-buddy"

	// defaultFilePermissions restricts saved defaults files to the owner.
	defaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errAssetsDirRequired is returned when the assets directory is missing.
	errAssetsDirRequired = errors.New("assets directory must be provided")
	// errTagRequired is returned when the release tag is missing.
	errTagRequired = errors.New("release tag must be provided")
)

// ParsePublishTarget validates a publish-target selector string.
// Unrecognized values are rejected rather than defaulted: a typo here must
// never silently change what gets published.
func ParsePublishTarget(s string) (PublishTarget, error) {
	switch PublishTarget(s) {
	case TargetAll, TargetMeta, TargetWindows, TargetNone:
		return PublishTarget(s), nil
	default:
		return "", fmt.Errorf("unknown publish target %q (expected all, meta, windows or none)", s)
	}
}

// SelectsPlatform reports whether a platform package for the given npm OS
// name should be published under this target.
func (t PublishTarget) SelectsPlatform(npmOS string) bool {
	switch t {
	case TargetAll:
		return true
	case TargetWindows:
		return npmOS == "win32"
	case TargetMeta, TargetNone:
		return false
	default:
		return false
	}
}

// SelectsMeta reports whether the meta package should be published under this target.
func (t PublishTarget) SelectsMeta() bool {
	return t == TargetAll || t == TargetMeta
}

// Load reads publisher defaults from the provided YAML path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read defaults: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal defaults: %w", err)
	}

	cfg.applyFallbacks()

	return &cfg, nil
}

// Save writes the persistable defaults to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, defaultFilePermissions); err != nil {
		return fmt.Errorf("write defaults: %w", err)
	}

	return nil
}

// Validate checks the configuration for required fields and fills defaults
// for optional ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.AssetsDir == "" {
		return errAssetsDirRequired
	}

	if cfg.Tag == "" {
		return errTagRequired
	}

	if cfg.Target == "" {
		cfg.Target = TargetNone
	} else if _, err := ParsePublishTarget(string(cfg.Target)); err != nil {
		return err
	}

	cfg.applyFallbacks()

	return nil
}

// applyFallbacks fills zero-valued optional fields with package defaults.
func (c *Config) applyFallbacks() {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}

	if c.NpmBin == "" {
		c.NpmBin = DefaultNpmBin
	}

	if c.NodeEngine == "" {
		c.NodeEngine = DefaultNodeEngine
	}

	if c.RepoIdentity == "" {
		c.RepoIdentity = DefaultRepoIdentity
	}
}
