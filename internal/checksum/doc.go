// Package checksum loads sha256sum-style digest tables and verifies files
// against them.
//
// Two tables flow through a publish run: the archive-level table supplied by
// CI, verified before extraction, and the binary-level table the pipeline
// computes itself and ships inside the meta package for install-time
// re-verification.
package checksum
