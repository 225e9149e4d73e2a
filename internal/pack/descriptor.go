package pack

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DescriptorFilename is npm's package descriptor name.
const DescriptorFilename = "package.json"

// descriptorFileMode is used for every generated text artifact.
const descriptorFileMode = 0o644

// Repository is the npm repository descriptor field.
type Repository struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Descriptor models the subset of package.json this pipeline generates.
// Field order is fixed and map fields marshal with sorted keys, so rendering
// the same descriptor twice yields identical bytes.
type Descriptor struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Description          string            `json:"description"`
	License              string            `json:"license"`
	Homepage             string            `json:"homepage,omitempty"`
	Bugs                 string            `json:"bugs,omitempty"`
	Repository           *Repository       `json:"repository,omitempty"`
	OS                   []string          `json:"os,omitempty"`
	CPU                  []string          `json:"cpu,omitempty"`
	Bin                  map[string]string `json:"bin,omitempty"`
	Files                []string          `json:"files,omitempty"`
	Scripts              map[string]string `json:"scripts,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty"`
	Engines              map[string]string `json:"engines,omitempty"`
}

// ReleaseInfo carries the release-wide values every generated descriptor needs.
type ReleaseInfo struct {
	// Version is the release version without the "v" prefix.
	Version string
	// RepoIdentity is the source repository slug for descriptor links.
	RepoIdentity string
	// NodeEngine is the minimum Node.js constraint for the meta package.
	NodeEngine string
}

// toolDescription is the one-line description shipped in every descriptor.
const toolDescription = "Find, list, and safely remove unused JS/TS code"

// toolLicense is the license identifier shipped in every descriptor.
const toolLicense = "MIT"

// repoLinks derives the homepage, bugs and repository descriptor fields from
// a repository slug such as "github.com/unused-buddy/unused-buddy".
func repoLinks(repoIdentity string) (homepage, bugs string, repo *Repository) {
	homepage = "https://" + repoIdentity
	bugs = homepage + "/issues"
	repo = &Repository{Type: "git", URL: "git+" + homepage + ".git"}

	return homepage, bugs, repo
}

// writeDescriptor renders the descriptor deterministically and writes it as
// dir/package.json with a trailing newline.
func writeDescriptor(dir string, d *Descriptor) error {
	contents, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}

	contents = append(contents, '\n')

	path := filepath.Join(dir, DescriptorFilename)
	if err := os.WriteFile(path, contents, descriptorFileMode); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}

	return nil
}
