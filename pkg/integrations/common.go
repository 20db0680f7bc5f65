package integrations

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// DefaultTimeout bounds a single registry request, including body transfer.
// Artifact downloads for checksumming go through the same client, so this
// is generous compared to a metadata-only client.
const DefaultTimeout = 60 * time.Second

var (
	// ErrNotFound is returned when a package or resource doesn't exist in the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, non-2xx responses).
	ErrNetwork = errors.New("network error")
)

// StatusError reports a response with an unexpected status code.
// It unwraps to [ErrNetwork].
type StatusError struct {
	StatusCode int    // HTTP status code
	Body       string // Leading part of the response body, for diagnostics
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: status %d", ErrNetwork, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrNetwork }

// NewHTTPClient creates an HTTP client with the given timeout.
// A non-positive timeout selects [DefaultTimeout].
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

var separatorRE = regexp.MustCompile(`[-_.]+`)

// NormalizePkgName converts a package name to its canonical form.
// Applies lowercase and collapses runs of "-", "_" and "." into a single
// hyphen, following PEP 503 normalization rules used by PyPI.
func NormalizePkgName(name string) string {
	return separatorRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}
