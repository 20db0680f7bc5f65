// Package artifact locates the source distribution a formula points at.
//
// The project's own sdist is looked up on the package index first. When the
// index has no usable sdist for the exact version (unknown project, unknown
// version, wheels only, or an error status) the lookup is a soft miss and
// the archive is built locally with `uv build` instead. Only transport
// failures and failed downloads are fatal on the index branch.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/uvbrew/pkg/checksum"
	errs "github.com/matzehuels/uvbrew/pkg/errors"
	"github.com/matzehuels/uvbrew/pkg/integrations"
	"github.com/matzehuels/uvbrew/pkg/integrations/pypi"
	"github.com/matzehuels/uvbrew/pkg/pyproject"
	"github.com/matzehuels/uvbrew/pkg/uv"
)

// Source records which branch produced an [Artifact].
type Source string

const (
	SourceIndex Source = "index" // Published sdist on the package index
	SourceLocal Source = "local" // Archive under <root>/dist
)

// DistDir is the directory uv build writes archives to, relative to the root.
const DistDir = "dist"

// Artifact is the project's own source archive.
type Artifact struct {
	URL    string `json:"url" yaml:"url"`       // https:// for index artifacts, file:// for local ones
	SHA256 string `json:"sha256" yaml:"sha256"` // Lowercase hex digest
	Source Source `json:"source" yaml:"source"`
}

// Index is the subset of [pypi.Client] the resolver needs.
type Index interface {
	FetchProject(ctx context.Context, name string) (*pypi.Project, error)
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Builder builds a source archive for the project in dir.
// [uv.Tool] is the production implementation.
type Builder interface {
	Build(ctx context.Context, dir string) error
}

// Resolver finds the project's sdist, on the index or locally.
type Resolver struct {
	Index     Index       // Package index client (required unless SkipIndex)
	Builder   Builder     // Local build fallback (required)
	Logger    *log.Logger // Receives soft-miss diagnostics (default: log.Default())
	SkipIndex bool        // Go straight to the local branch
}

// Resolve returns the artifact for meta, trying the index before building
// the project in root.
func (r *Resolver) Resolve(ctx context.Context, root string, meta *pyproject.Meta) (*Artifact, error) {
	if !r.SkipIndex {
		a, ok, err := r.FromIndex(ctx, meta.Name, meta.Version)
		if err != nil {
			return nil, err
		}
		if ok {
			return a, nil
		}
		r.logger().Info("no sdist on index, using local build", "package", meta.Name, "version", meta.Version)
	}
	return r.FromLocal(ctx, root, meta)
}

// FromIndex looks up the sdist of name at version on the index.
//
// ok is false on a soft miss; err is non-nil only for transport failures on
// the metadata request and for failed artifact downloads. The first release
// file accepted by [pypi.ReleaseFile.IsSourceDist] wins. Its published
// digest is used when present; otherwise the archive is downloaded and
// hashed.
func (r *Resolver) FromIndex(ctx context.Context, name, version string) (a *Artifact, ok bool, err error) {
	logger := r.logger().With("package", name, "version", version)

	project, err := r.Index.FetchProject(ctx, name)
	if err != nil {
		var statusErr *integrations.StatusError
		switch {
		case errors.Is(err, integrations.ErrNotFound):
			logger.Warn("package not found on index")
			return nil, false, nil
		case errors.As(err, &statusErr):
			logger.Error("index request failed", "status", statusErr.StatusCode, "body", statusErr.Body)
			return nil, false, nil
		case errors.Is(err, integrations.ErrNetwork), ctx.Err() != nil:
			return nil, false, errs.Wrap(errs.ErrCodeNetwork, err, "query index for %s", name)
		default:
			logger.Warn("unreadable index response", "error", err)
			return nil, false, nil
		}
	}

	files, found := project.Releases[version]
	if !found {
		logger.Warn("version not found on index")
		return nil, false, nil
	}

	for _, f := range files {
		if f.URL == "" || !f.IsSourceDist() {
			continue
		}
		digest := strings.ToLower(f.Digests.SHA256)
		if digest != "" && !checksum.Valid(digest) {
			logger.Warn("ignoring malformed digest", "sha256", f.Digests.SHA256)
			digest = ""
		}
		if digest == "" {
			logger.Debug("no published digest, downloading", "url", f.URL)
			if digest, err = r.download(ctx, f.URL); err != nil {
				return nil, false, err
			}
		}
		return &Artifact{URL: f.URL, SHA256: digest, Source: SourceIndex}, true, nil
	}

	names := make([]string, 0, len(files))
	wheels := 0
	for _, f := range files {
		if f.IsWheel() {
			wheels++
		}
		if n := f.Name(); n != "" {
			names = append(names, n)
		}
	}
	logger.Warn("no sdist among release files", "files", strings.Join(names, ", "), "wheels", wheels)
	return nil, false, nil
}

func (r *Resolver) download(ctx context.Context, url string) (string, error) {
	body, err := r.Index.Download(ctx, url)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeNetwork, err, "download %s", url)
	}
	defer body.Close()
	digest, err := checksum.Reader(body)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeNetwork, err, "download %s", url)
	}
	return digest, nil
}

// FromLocal returns the sdist under <root>/dist, running the builder only
// when no archive for meta's name and version exists yet.
//
// Returns [errs.ErrCodeBuild] if the build fails or leaves no archive behind.
func (r *Resolver) FromLocal(ctx context.Context, root string, meta *pyproject.Meta) (*Artifact, error) {
	candidates := DistPaths(root, meta.Name, meta.Version)
	logger := r.logger().With("package", meta.Name, "version", meta.Version)

	path, found := firstExisting(candidates)
	if found {
		logger.Debug("reusing existing sdist", "path", path)
	} else {
		logger.Info("building sdist", "root", root)
		if err := r.Builder.Build(ctx, root); err != nil {
			var exitErr *uv.ExitError
			if errors.As(err, &exitErr) {
				return nil, errs.Wrap(errs.ErrCodeBuild, err, "uv build failed (exit code %d)", exitErr.ExitCode)
			}
			return nil, errs.Wrap(errs.ErrCodeBuild, err, "uv build failed")
		}
		if path, found = firstExisting(candidates); !found {
			return nil, errs.New(errs.ErrCodeBuild, "build finished but %s does not exist", candidates[0])
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "resolve %s", path)
	}
	digest, err := checksum.File(abs)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeBuild, err, "read %s", abs)
	}
	return &Artifact{URL: FileURL(abs), SHA256: digest, Source: SourceLocal}, nil
}

var distNameRE = regexp.MustCompile(`[-_.]+`)

// DistPaths returns the archive paths uv build may produce for name and
// version, preferred first: the name as written, then the PEP 625 form
// (lowercase, separators collapsed to "_").
func DistPaths(root, name, version string) []string {
	dir := filepath.Join(root, DistDir)
	paths := []string{filepath.Join(dir, fmt.Sprintf("%s-%s.tar.gz", name, version))}
	normalized := distNameRE.ReplaceAllString(strings.ToLower(name), "_")
	if normalized != name {
		paths = append(paths, filepath.Join(dir, fmt.Sprintf("%s-%s.tar.gz", normalized, version)))
	}
	return paths
}

// FileURL turns an absolute path into a file:// URL.
func FileURL(abs string) string {
	return "file://" + filepath.ToSlash(abs)
}

func firstExisting(paths []string) (string, bool) {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}

func (r *Resolver) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}
