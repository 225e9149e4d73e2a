// Package manifest loads and validates the release manifest CI produces
// alongside the platform archives.
//
// Validation is all-or-nothing: tag shape, manifest/tag version agreement and
// manifest/support-matrix agreement are all checked before the pipeline
// performs any filesystem mutation or registry call.
package manifest
