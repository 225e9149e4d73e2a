// Package platform holds the fixed support matrix mapping (os, cpu) pairs to
// npm package names and binary paths.
//
// Both the package synthesizers and the generated install/run scripts resolve
// platforms through this one table.
package platform
