// Package pyproject reads project metadata from a pyproject.toml manifest.
//
// Only the PEP 621 [project] table is consulted. name, version and
// requires-python are mandatory; requires-python must be a lower bound on
// Python 3 (">=3.x") because the formula depends on a single python@3.x
// keg. The ">=" prefix is stripped from the stored constraint.
package pyproject

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	errs "github.com/matzehuels/uvbrew/pkg/errors"
)

// FileName is the manifest file name looked up under the project root.
const FileName = "pyproject.toml"

// requiresPythonPrefix is the only accepted form of the interpreter constraint.
const requiresPythonPrefix = ">=3."

// Meta is the project metadata needed to write a formula.
// Values are immutable once returned by [Read] or [Parse].
type Meta struct {
	Name           string `json:"name" yaml:"name"`                                   // Distribution name, never empty
	Version        string `json:"version" yaml:"version"`                             // Project version, never empty
	RequiresPython string `json:"requires_python" yaml:"requires_python"`             // Constraint without ">=", e.g. "3.10"
	Description    string `json:"description,omitempty" yaml:"description,omitempty"` // project.description (may be empty)
	Homepage       string `json:"homepage,omitempty" yaml:"homepage,omitempty"`       // project.urls.Homepage (may be empty)
	License        string `json:"license,omitempty" yaml:"license,omitempty"`         // SPDX expression or license text (may be empty)
}

type document struct {
	Project struct {
		Name           *string           `toml:"name"`
		Version        *string           `toml:"version"`
		Description    string            `toml:"description"`
		RequiresPython *string           `toml:"requires-python"`
		URLs           map[string]string `toml:"urls"`
		License        any               `toml:"license"`
	} `toml:"project"`
}

// Read loads and validates <root>/pyproject.toml.
//
// Returns:
//   - [errs.ErrCodeFileNotFound] if the manifest does not exist
//   - [errs.ErrCodeInvalidManifest] for decode failures, missing required
//     fields, or a requires-python that is not of the form ">=3.x"
func Read(root string) (*Meta, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.New(errs.ErrCodeFileNotFound, "%s not found", path)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "read %s", path)
	}
	return Parse(data)
}

// Parse validates manifest content already in memory. See [Read].
func Parse(data []byte) (*Meta, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "decode %s", FileName)
	}
	p := doc.Project

	if p.Name == nil || *p.Name == "" {
		return nil, missing("name")
	}
	if err := errs.ValidatePythonPackageName(*p.Name); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "project.name in %s", FileName)
	}
	if p.Version == nil || *p.Version == "" {
		return nil, missing("version")
	}
	if p.RequiresPython == nil {
		return nil, missing("requires-python")
	}

	requires := *p.RequiresPython
	if !strings.HasPrefix(requires, requiresPythonPrefix) {
		return nil, errs.New(errs.ErrCodeInvalidManifest,
			"project.requires-python must be >=3.x, got %q", *p.RequiresPython)
	}

	return &Meta{
		Name:           *p.Name,
		Version:        *p.Version,
		RequiresPython: strings.TrimPrefix(requires, ">="),
		Description:    p.Description,
		Homepage:       p.URLs["Homepage"],
		License:        licenseOf(p.License),
	}, nil
}

func missing(field string) error {
	return errs.New(errs.ErrCodeInvalidManifest, "project.%s not found in %s", field, FileName)
}

// licenseOf accepts both the PEP 639 string form and the legacy
// {text = "..."} table. File references are ignored.
func licenseOf(v any) string {
	switch l := v.(type) {
	case string:
		return strings.TrimSpace(l)
	case map[string]any:
		if text, ok := l["text"].(string); ok && !strings.Contains(text, "\n") {
			return strings.TrimSpace(text)
		}
	}
	return ""
}
