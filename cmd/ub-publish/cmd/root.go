package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/unused-buddy/npm-dist/internal/logger"
	"github.com/unused-buddy/npm-dist/internal/service/publisher"
	"github.com/unused-buddy/npm-dist/internal/version"
)

var (
	// configPath to the optional YAML defaults file.
	configPath string

	// dryRun switches registry publishes to npm's non-mutating mode.
	dryRun bool

	// publishTarget selects which packages are pushed to the registry.
	publishTarget string

	// repoIdentity overrides the repository slug used in descriptor metadata.
	repoIdentity string

	// outputDir overrides where package directories are synthesized.
	outputDir string

	// provenance requests registry-side provenance attestation.
	provenance bool

	// logLevel adjusts logging verbosity.
	logLevel string

	// rootCmd represents the base command for publishing a tagged release.
	rootCmd = &cobra.Command{
		Use:   "ub-publish [assets-dir] [tag]",
		Short: "Publish a tagged unused-buddy release to the npm registry",
		Long: "Verify a CI-produced set of checksummed platform archives against the release " +
			"manifest, synthesize one npm package per platform plus the unused-buddy meta " +
			"package, and publish them in dependency order.",
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			options := &publisher.Options{
				ConfigPath:    configPath,
				AssetsDir:     args[0],
				Tag:           args[1],
				DryRun:        dryRun,
				PublishTarget: publishTarget,
				RepoIdentity:  repoIdentity,
				OutputDir:     outputDir,
				Provenance:    provenance,
				CITrusted:     detectTrustedCI(),
			}

			return publisher.Run(ctx, options)
		},
	}
)

// Execute runs the ub-publish CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// detectTrustedCI is the single place ambient process state is consulted.
// The result is passed down as an explicit configuration value and decides
// only whether provenance attestation may be requested.
func detectTrustedCI() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true" &&
		os.Getenv("ACTIONS_ID_TOKEN_REQUEST_URL") != ""
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML defaults file")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "run npm publish in non-mutating verification mode")
	rootCmd.Flags().StringVarP(&publishTarget, "publish-target", "t", "none", "packages to publish: all, meta, windows or none")
	rootCmd.Flags().StringVar(&repoIdentity, "repo", "", "repository slug for descriptor metadata")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for synthesized package directories")
	rootCmd.Flags().BoolVar(&provenance, "provenance", false, "request registry provenance attestation (trusted CI only)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "logging verbosity: debug, info, warn or error")
}
