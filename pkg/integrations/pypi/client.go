package pypi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/uvbrew/pkg/buildinfo"
	"github.com/matzehuels/uvbrew/pkg/integrations"
)

// DefaultIndexURL is the PyPI JSON API base.
const DefaultIndexURL = "https://pypi.org/pypi"

// Package types as reported in the packagetype field of release files.
const (
	PackageTypeSdist = "sdist"
	PackageTypeWheel = "bdist_wheel"
)

// sdistSuffix is the archive suffix trusted when packagetype is absent.
const sdistSuffix = ".tar.gz"

// Project holds the release listing of a package from the index.
//
// Releases maps each published version to its files in index order.
// A nil map is valid and means the project has no releases.
type Project struct {
	Name     string                   // Project name as reported by the index (may be empty)
	Releases map[string][]ReleaseFile // Version → files
}

// ReleaseFile describes one distribution file of a release.
type ReleaseFile struct {
	URL         string `json:"url"`         // Download location (may be empty on broken mirrors)
	Filename    string `json:"filename"`    // Archive file name
	PackageType string `json:"packagetype"` // "sdist", "bdist_wheel", ... (may be empty)
	Digests     struct {
		SHA256 string `json:"sha256"` // Published digest (may be empty)
	} `json:"digests"`
}

// IsSourceDist reports whether f is a source distribution. Files that
// declare a package type must declare "sdist"; files that don't are
// accepted when their URL ends in ".tar.gz".
func (f ReleaseFile) IsSourceDist() bool {
	if f.PackageType != "" {
		return f.PackageType == PackageTypeSdist
	}
	return strings.HasSuffix(f.URL, sdistSuffix)
}

// IsWheel reports whether f is a built wheel.
func (f ReleaseFile) IsWheel() bool {
	if f.PackageType != "" {
		return f.PackageType == PackageTypeWheel
	}
	return strings.HasSuffix(f.URL, ".whl")
}

// Name returns the archive file name, taken from the last URL path segment
// when the index omits filename.
func (f ReleaseFile) Name() string {
	if f.Filename != "" {
		return f.Filename
	}
	return f.URL[strings.LastIndex(f.URL, "/")+1:]
}

// Client provides access to a PyPI-compatible JSON API.
// Any index serving GET {base}/{project}/json works, including private
// mirrors.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a client for the index rooted at baseURL.
// An empty baseURL selects [DefaultIndexURL]; a trailing slash is ignored.
// timeout bounds each request (see [integrations.NewHTTPClient]).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultIndexURL
	}
	headers := map[string]string{
		"Accept":     "application/json",
		"User-Agent": buildinfo.UserAgent(),
	}
	return &Client{
		Client:  integrations.NewClient(headers, timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the index base URL requests are made against.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchProject retrieves the release listing for pkg.
//
// Returns:
//   - Project populated with releases on success
//   - [integrations.ErrNotFound] if the index answers 404
//   - [*integrations.StatusError] for any other non-200 answer
//   - [integrations.ErrNetwork] for transport failures
//   - Other errors for JSON decoding failures
func (c *Client) FetchProject(ctx context.Context, pkg string) (*Project, error) {
	var data apiResponse
	if err := c.Get(ctx, c.projectURL(pkg), &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, fmt.Errorf("%w: pypi package %s", err, pkg)
		}
		return nil, err
	}
	return &Project{Name: data.Info.Name, Releases: data.Releases}, nil
}

// Download opens the file at rawURL for streaming. The caller must close it.
func (c *Client) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return c.Open(ctx, rawURL)
}

func (c *Client) projectURL(pkg string) string {
	return fmt.Sprintf("%s/%s/json", c.baseURL, url.PathEscape(pkg))
}

type apiResponse struct {
	Info struct {
		Name string `json:"name"`
	} `json:"info"`
	Releases map[string][]ReleaseFile `json:"releases"`
}
