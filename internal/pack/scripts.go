package pack

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/unused-buddy/npm-dist/internal/platform"
)

//go:embed templates/run.js.tmpl templates/install.js.tmpl
var scriptTemplates embed.FS

// Scripts holds the rendered end-user scripts shipped in the meta package.
type Scripts struct {
	// Launcher resolves the local platform and spawns the binary (run.js).
	Launcher []byte
	// Installer re-verifies the binary digest at install time (install.js).
	Installer []byte
}

// scriptData is the template parameter set. Both scripts receive the same
// matrix rendering, generated from platform.Supported, which is also what the
// synthesizers consume; the table cannot diverge between pipeline and scripts.
type scriptData struct {
	Tool    string
	Version string
	Matrix  string
}

// matrixEntry is the JSON shape of one support-matrix row inside the scripts.
type matrixEntry struct {
	Pkg string `json:"pkg"`
	Bin string `json:"bin"`
}

// RenderScripts generates the launcher and installer scripts for a release.
func RenderScripts(info ReleaseInfo) (*Scripts, error) {
	matrix, err := matrixJSON()
	if err != nil {
		return nil, err
	}

	data := scriptData{
		Tool:    platform.ToolName,
		Version: info.Version,
		Matrix:  matrix,
	}

	launcher, err := renderTemplate("templates/run.js.tmpl", data)
	if err != nil {
		return nil, err
	}

	installer, err := renderTemplate("templates/install.js.tmpl", data)
	if err != nil {
		return nil, err
	}

	return &Scripts{Launcher: launcher, Installer: installer}, nil
}

// matrixJSON renders platform.Supported as a deterministic JSON object keyed
// by "<os>-<cpu>".
func matrixJSON() (string, error) {
	entries := make(map[string]matrixEntry, len(platform.Supported))
	for _, target := range platform.Supported {
		entries[target.Key()] = matrixEntry{Pkg: target.Package, Bin: target.Binary}
	}

	contents, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal support matrix: %w", err)
	}

	return string(contents), nil
}

// renderTemplate executes one embedded script template.
func renderTemplate(name string, data scriptData) ([]byte, error) {
	tmpl, err := template.ParseFS(scriptTemplates, name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}

	return buf.Bytes(), nil
}
