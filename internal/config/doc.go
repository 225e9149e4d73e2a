// Package config defines the publish run configuration and provides helpers
// to load, validate and save operator defaults in YAML format.
//
// The Config type is constructed once in the command layer and passed as an
// explicit value through every pipeline component.
package config
