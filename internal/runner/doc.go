// Package runner abstracts subprocess invocation behind an interface
// returning structured results (exit status, captured stderr).
package runner
