// Package archive extracts platform release archives into working
// directories, dispatching on the archive filename suffix.
package archive
