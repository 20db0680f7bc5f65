// Package lock enumerates a project's locked runtime dependencies.
//
// The lock itself (uv.lock) is never read directly. Instead uv is asked to
// export it as a PEP 751 pylock.toml document with dev dependencies removed,
// and each exported package that has a source distribution becomes a
// [Package]. Packages without an sdist (wheel-only, git, or directory
// sources) are skipped with a warning, since Homebrew resources must be
// buildable from source.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/uvbrew/pkg/checksum"
	errs "github.com/matzehuels/uvbrew/pkg/errors"
	"github.com/matzehuels/uvbrew/pkg/integrations"
	"github.com/matzehuels/uvbrew/pkg/uv"
)

// FileName is the uv lockfile whose presence marks a uv-managed project.
const FileName = "uv.lock"

// Package is one locked dependency, pinned to its source archive.
type Package struct {
	Name   string `json:"name" yaml:"name"`                         // Name as listed by the exporter
	URL    string `json:"url" yaml:"url"`                           // sdist archive location
	SHA256 string `json:"sha256,omitempty" yaml:"sha256,omitempty"` // Lowercase hex digest (may be empty)
}

// Exporter produces a pylock.toml document for the project in dir.
// [uv.Tool] is the production implementation.
type Exporter interface {
	Export(ctx context.Context, dir string) ([]byte, error)
}

// Options configures dependency resolution.
type Options struct {
	Skip   []string    // Package names to exclude (compared after PEP 503 normalization)
	Logger *log.Logger // Receives skip warnings (default: log.Default())
}

// Resolve exports the lock for root and returns its packages in exporter
// order. The exporter is invoked exactly once.
//
// Returns [errs.ErrCodeResolution] if the exporter fails or its output
// cannot be decoded.
func Resolve(ctx context.Context, exp Exporter, root string, opts Options) ([]Package, error) {
	data, err := exp.Export(ctx, root)
	if err != nil {
		var exitErr *uv.ExitError
		if errors.As(err, &exitErr) {
			return nil, errs.Wrap(errs.ErrCodeResolution, err, "uv export failed (exit code %d)", exitErr.ExitCode)
		}
		return nil, errs.Wrap(errs.ErrCodeResolution, err, "uv export failed")
	}
	return Parse(data, opts)
}

type document struct {
	Packages []entry `toml:"packages"`
}

type entry struct {
	Name  string `toml:"name"`
	Sdist *sdist `toml:"sdist"`
}

type sdist struct {
	URL    string            `toml:"url"`
	Hashes map[string]string `toml:"hashes"`
}

// Parse decodes a pylock.toml document. See [Resolve].
func Parse(data []byte, opts Options) ([]Package, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(errs.ErrCodeResolution, err, "decode pylock.toml")
	}

	skip := make(map[string]bool, len(opts.Skip))
	for _, name := range opts.Skip {
		skip[integrations.NormalizePkgName(name)] = true
	}

	pkgs := make([]Package, 0, len(doc.Packages))
	for i, e := range doc.Packages {
		if e.Name == "" {
			return nil, errs.New(errs.ErrCodeResolution, "packages[%d].name missing", i)
		}
		if skip[integrations.NormalizePkgName(e.Name)] {
			continue
		}
		if e.Sdist == nil {
			logger.Warn("sdist not found, skipping package", "package", e.Name)
			continue
		}
		if e.Sdist.URL == "" {
			return nil, errs.New(errs.ErrCodeResolution, "packages[%d].sdist.url missing for %s", i, e.Name)
		}
		digest := strings.ToLower(e.Sdist.Hashes["sha256"])
		if digest != "" && !checksum.Valid(digest) {
			return nil, errs.New(errs.ErrCodeResolution, "packages[%d].sdist.hashes.sha256 malformed for %s: %q", i, e.Name, e.Sdist.Hashes["sha256"])
		}
		pkgs = append(pkgs, Package{
			Name:   e.Name,
			URL:    e.Sdist.URL,
			SHA256: digest,
		})
	}
	return pkgs, nil
}

// String renders the package as name (url) for log output.
func (p Package) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.URL)
}
