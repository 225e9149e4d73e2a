package publisher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/unused-buddy/npm-dist/internal/archive"
	"github.com/unused-buddy/npm-dist/internal/config"
	"github.com/unused-buddy/npm-dist/internal/logger"
	"github.com/unused-buddy/npm-dist/internal/manifest"
	"github.com/unused-buddy/npm-dist/internal/pack"
	"github.com/unused-buddy/npm-dist/internal/platform"
	"github.com/unused-buddy/npm-dist/internal/registry"
	"github.com/unused-buddy/npm-dist/internal/runner"
)

// Options contains inputs for the publisher entry point.
type Options struct {
	// ConfigPath is an optional path to a YAML defaults file. When empty the
	// default filename is tried and silently skipped if absent.
	ConfigPath string
	// AssetsDir holds the CI-produced manifest, checksum table and archives.
	AssetsDir string
	// Tag is the release tag being published.
	Tag string
	// DryRun switches registry publishes to npm's non-mutating mode.
	DryRun bool
	// PublishTarget selects which packages are published (all, meta, windows, none).
	PublishTarget string
	// RepoIdentity overrides the repository slug used in descriptor metadata.
	RepoIdentity string
	// OutputDir overrides where package directories are synthesized.
	OutputDir string
	// Provenance requests registry-side provenance attestation.
	Provenance bool
	// CITrusted reports that ambient CI identity signals were detected.
	// Attestation is requested only when both Provenance and CITrusted hold.
	CITrusted bool
	// Runner overrides subprocess invocation; nil selects the real executor.
	Runner runner.Runner
}

// publisher holds the state of one publish run.
// It is unexported; callers use Run, which encapsulates setup and teardown.
type publisher struct {
	// cfg is the explicit configuration threaded through every stage.
	cfg *config.Config
	// release is the validated manifest plus archive checksum table.
	release *manifest.Release
	// npm publishes package directories through the registry CLI.
	npm *registry.Client
	// scratchDir is the per-run extraction workspace, removed on exit.
	scratchDir string
	// digests accumulates package name → binary digest across synthesis.
	digests map[string]string
}

// Run executes the publish workflow and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "ub-publish")

	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}

	pub, err := newPublisher(ctx, cfg, opts.Runner)
	if err != nil {
		return fmt.Errorf("initialize publisher: %w", err)
	}

	defer pub.cleanup(ctx)

	if err := pub.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Publish run failed", "error", err)
		return err
	}

	logger.Info(ctx, "Publish run completed successfully")

	return nil
}

// buildConfig merges optional file defaults with the run's explicit options
// into the single configuration value every component receives.
func buildConfig(opts *Options) (*config.Config, error) {
	cfg := &config.Config{}

	switch {
	case opts.ConfigPath != "":
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	default:
		loaded, err := config.Load(config.DefaultConfigFilename)
		if err == nil {
			cfg = loaded
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg.AssetsDir = opts.AssetsDir
	cfg.Tag = opts.Tag
	cfg.DryRun = opts.DryRun
	cfg.Provenance = opts.Provenance
	cfg.CITrusted = opts.CITrusted

	if opts.PublishTarget != "" {
		target, err := config.ParsePublishTarget(opts.PublishTarget)
		if err != nil {
			return nil, err
		}

		cfg.Target = target
	}

	if opts.RepoIdentity != "" {
		cfg.RepoIdentity = opts.RepoIdentity
	}

	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newPublisher validates the release inputs and prepares run-scoped state.
// Nothing is extracted, synthesized or published yet; any failure here
// happens before the pipeline mutates the filesystem.
func newPublisher(ctx context.Context, cfg *config.Config, run runner.Runner) (*publisher, error) {
	if isPublisherRunningNow(ctx) {
		return nil, errPublisherRunning
	}

	if err := createMarker(); err != nil {
		return nil, fmt.Errorf("create publish marker: %w", err)
	}

	release, err := manifest.Load(cfg.AssetsDir, cfg.Tag)
	if err != nil {
		removeMarker()
		return nil, err
	}

	logger.InfoKV(ctx, "Loaded release manifest",
		"version", release.Manifest.Version, "artifacts", len(release.Manifest.Artifacts))

	scratchDir, err := os.MkdirTemp("", "ub-publish-*")
	if err != nil {
		removeMarker()
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	if run == nil {
		run = runner.NewExec()
	}

	return &publisher{
		cfg:        cfg,
		release:    release,
		npm:        registry.NewClient(cfg.NpmBin, run),
		scratchDir: scratchDir,
		digests:    make(map[string]string, len(release.Manifest.Artifacts)),
	}, nil
}

// Run drives the pipeline: verify every archive, then synthesize and publish
// platform packages in manifest order, then the meta package. Any error
// aborts the whole run; there is no partial success and no rollback.
func (p *publisher) Run(ctx context.Context) error {
	if err := p.verifyArchives(ctx); err != nil {
		return err
	}

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	info := pack.ReleaseInfo{
		Version:      p.release.Manifest.Version,
		RepoIdentity: p.cfg.RepoIdentity,
		NodeEngine:   p.cfg.NodeEngine,
	}

	for _, artifact := range p.release.Manifest.Artifacts {
		if err := p.processArtifact(ctx, artifact, info); err != nil {
			return err
		}
	}

	metaDir, err := pack.BuildMetaPackage(ctx, p.cfg.OutputDir, p.release.Manifest, p.digests, info)
	if err != nil {
		return err
	}

	if p.cfg.Target.SelectsMeta() {
		if err := p.npm.Publish(ctx, metaDir, p.publishOptions()); err != nil {
			return err
		}
	}

	return nil
}

// verifyArchives checks every declared archive against the checksum table
// before any extraction: a release with one bad artifact produces nothing.
func (p *publisher) verifyArchives(ctx context.Context) error {
	for _, artifact := range p.release.Manifest.Artifacts {
		if err := p.release.Archives.VerifyFile(p.cfg.AssetsDir, artifact.Archive); err != nil {
			return fmt.Errorf("artifact %s: %w", artifact.Package, err)
		}
	}

	logger.InfoKV(ctx, "Verified all archive checksums", "archives", len(p.release.Manifest.Artifacts))

	return nil
}

// processArtifact extracts one verified archive, synthesizes its platform
// package, records the binary digest and publishes when selected.
func (p *publisher) processArtifact(ctx context.Context, artifact manifest.Artifact, info pack.ReleaseInfo) error {
	extractDir := filepath.Join(p.scratchDir, platform.Key(artifact.OS, artifact.CPU))

	archivePath := filepath.Join(p.cfg.AssetsDir, artifact.Archive)
	if err := archive.Extract(archivePath, extractDir); err != nil {
		return fmt.Errorf("artifact %s: %w", artifact.Package, err)
	}

	pkg, err := pack.BuildPlatformPackage(ctx, p.cfg.OutputDir, artifact, extractDir, info)
	if err != nil {
		return err
	}

	p.digests[pkg.Name] = pkg.Digest

	if p.cfg.Target.SelectsPlatform(pkg.OS) {
		if err := p.npm.Publish(ctx, pkg.Dir, p.publishOptions()); err != nil {
			return err
		}
	}

	return nil
}

// publishOptions derives per-call registry options from the run configuration.
// Provenance attestation is requested only under a trusted CI identity; the
// flag is never an authentication substitute.
func (p *publisher) publishOptions() registry.Options {
	return registry.Options{
		DryRun:     p.cfg.DryRun,
		Provenance: p.cfg.Provenance && p.cfg.CITrusted,
	}
}

// cleanup removes the run's scratch directory and in-flight marker.
func (p *publisher) cleanup(ctx context.Context) {
	if p.scratchDir != "" {
		if err := os.RemoveAll(p.scratchDir); err != nil {
			logger.Warnf(ctx, "Unable to remove scratch dir: %v", err)
		}
	}

	removeMarker()
}
