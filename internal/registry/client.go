package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/unused-buddy/npm-dist/internal/logger"
	"github.com/unused-buddy/npm-dist/internal/runner"
)

// ErrPublishFailed is returned when the registry CLI exits non-zero.
var ErrPublishFailed = errors.New("registry publish failed")

// Client pushes package directories to the npm registry by shelling out to
// the npm CLI. The registry is treated as append-only: the client never reads
// prior state back, it only publishes in the order it is called.
type Client struct {
	// npmBin is the registry CLI executable.
	npmBin string
	// run invokes the CLI; swapped for a fake in tests.
	run runner.Runner
}

// Options adjust how a single publish call is issued.
type Options struct {
	// DryRun switches npm to its non-mutating verification mode. Everything
	// up to the registry write still runs.
	DryRun bool
	// Provenance requests registry-side provenance attestation for the upload.
	Provenance bool
}

// NewClient creates a registry client invoking npmBin through run.
func NewClient(npmBin string, run runner.Runner) *Client {
	return &Client{npmBin: npmBin, run: run}
}

// Publish pushes the package directory at pkgDir. Scoped packages default to
// restricted access on npm, so public access is always requested explicitly.
func (c *Client) Publish(ctx context.Context, pkgDir string, opts Options) error {
	args := []string{"publish", "--access", "public"}

	if opts.DryRun {
		args = append(args, "--dry-run")
	}

	if opts.Provenance {
		args = append(args, "--provenance")
	}

	logger.InfoKV(ctx, "Publishing package",
		"dir", pkgDir, "dry_run", opts.DryRun, "provenance", opts.Provenance)

	result, err := c.run.Run(ctx, pkgDir, c.npmBin, args...)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPublishFailed, filepath.Base(pkgDir), err)
	}

	if result.ExitCode != 0 {
		return fmt.Errorf("%w: %s: exit %d: %s",
			ErrPublishFailed, filepath.Base(pkgDir), result.ExitCode, result.Stderr)
	}

	return nil
}
