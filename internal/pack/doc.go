// Package pack synthesizes the npm package directories of a release: one
// OS/CPU-restricted package per platform binary plus the meta package whose
// generated scripts resolve, verify and launch the right binary on end-user
// machines.
//
// All generated artifacts are deterministic; re-running the pipeline over the
// same inputs reproduces byte-identical output.
package pack
