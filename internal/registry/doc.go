// Package registry publishes synthesized package directories through the
// npm CLI.
package registry
