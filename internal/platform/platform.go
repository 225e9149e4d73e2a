package platform

import "fmt"

const (
	// ToolName is the npm name of the meta package and of the shipped binary.
	ToolName = "unused-buddy"

	// Scope is the npm scope holding the per-platform packages.
	Scope = "@unused-buddy"

	// WindowsOS is npm's process.platform value for Windows. The only target
	// whose binary carries an executable suffix.
	WindowsOS = "win32"
)

// Target describes one supported install target: the npm package carrying its
// binary and the path of that binary inside the package.
type Target struct {
	// OS is the npm os value (process.platform): linux, darwin, win32.
	OS string
	// CPU is the npm cpu value (process.arch): x64, arm64.
	CPU string
	// Package is the scoped npm package name for this target.
	Package string
	// Binary is the binary path relative to the package root.
	Binary string
}

// Key returns the "<os>-<cpu>" address of the target, matching what the
// end-user scripts compute from process.platform and process.arch.
func (t Target) Key() string {
	return Key(t.OS, t.CPU)
}

// Key builds the "<os>-<cpu>" address for an OS/CPU pair.
func Key(os, cpu string) string {
	return fmt.Sprintf("%s-%s", os, cpu)
}

// Supported is the fixed support matrix, in publish order. It is the single
// source of truth for platform resolution: package synthesis consumes it
// directly and the generated end-user scripts embed a JSON rendering of the
// same value, so the two cannot drift apart.
//
//nolint:gochecknoglobals // Named constant table shared by synthesis and script generation.
var Supported = []Target{
	{OS: "linux", CPU: "x64", Package: Scope + "/linux-x64", Binary: "bin/" + ToolName},
	{OS: "linux", CPU: "arm64", Package: Scope + "/linux-arm64", Binary: "bin/" + ToolName},
	{OS: "darwin", CPU: "x64", Package: Scope + "/darwin-x64", Binary: "bin/" + ToolName},
	{OS: "darwin", CPU: "arm64", Package: Scope + "/darwin-arm64", Binary: "bin/" + ToolName},
	{OS: WindowsOS, CPU: "x64", Package: Scope + "/win32-x64", Binary: "bin/" + ToolName + ".exe"},
}

// Find looks up the target for an OS/CPU pair.
// The second return value reports whether the pair is supported.
func Find(os, cpu string) (Target, bool) {
	for _, t := range Supported {
		if t.OS == os && t.CPU == cpu {
			return t, true
		}
	}

	return Target{}, false
}

// ExecutableName returns the binary filename for an OS, appending the
// Windows executable suffix where required.
func ExecutableName(os string) string {
	if os == WindowsOS {
		return ToolName + ".exe"
	}

	return ToolName
}
