// Package pipeline provides the formula generation pipeline for uvbrew.
//
// This package wires the individual stages together so the CLI (and tests)
// run exactly the same sequence:
//
//  1. Gate: the project root must contain uv.lock
//  2. Manifest: read project metadata from pyproject.toml
//  3. Artifact: find the project's sdist on the index, or build it locally
//  4. Lock: enumerate locked runtime dependencies via `uv export`
//
// Stages run sequentially; each reports start and completion to
// [observability.Pipeline] hooks. The result is a [formula.Formula] ready
// for rendering.
//
// # Usage
//
//	runner := pipeline.NewRunner(logger)
//	result, err := runner.Execute(ctx, pipeline.Options{Root: "."})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = runner.Render(result, os.Stdout, opts)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/uvbrew/pkg/errors"
	"github.com/matzehuels/uvbrew/pkg/formula"
	"github.com/matzehuels/uvbrew/pkg/integrations"
	"github.com/matzehuels/uvbrew/pkg/integrations/pypi"
	"github.com/matzehuels/uvbrew/pkg/uv"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and config
// =============================================================================

const (
	// DefaultRoot is the project directory used when none is given.
	DefaultRoot = "."

	// DefaultIndexURL is the package index queried for the project's sdist.
	DefaultIndexURL = pypi.DefaultIndexURL

	// DefaultIndent is the number of spaces per nesting level in formulas.
	DefaultIndent = formula.DefaultIndent

	// DefaultFormat is the output format.
	DefaultFormat = formula.FormatFormula

	// DefaultUVCommand is the command line used to run uv.
	DefaultUVCommand = uv.DefaultCommand

	// DefaultHTTPTimeout bounds each index request and artifact download.
	DefaultHTTPTimeout = integrations.DefaultTimeout

	// DefaultBuildTimeout bounds uv invocations. Zero means no limit.
	DefaultBuildTimeout = time.Duration(0)
)

// MissingLockMessage is reported when the project root has no uv.lock.
const MissingLockMessage = "No uv.lock file found. Are you in a uv managed project?"

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
type Options struct {
	Root         string         `json:"root"`                    // Project directory
	IndexURL     string         `json:"index_url,omitempty"`     // JSON API base URL
	SkipIndex    bool           `json:"skip_index,omitempty"`    // Always build locally
	Indent       int            `json:"indent,omitempty"`        // Formula indentation width
	Format       formula.Format `json:"format,omitempty"`        // Output format
	UVCommand    string         `json:"uv,omitempty"`            // Shell-style command line for uv
	HTTPTimeout  time.Duration  `json:"http_timeout,omitempty"`  // Per-request timeout
	BuildTimeout time.Duration  `json:"build_timeout,omitempty"` // Per-invocation uv timeout

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Formula is the data handed to the renderer.
	Formula *formula.Formula

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Resources    int
	ManifestTime time.Duration
	ArtifactTime time.Duration
	LockTime     time.Duration
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks option values and fills in defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Root == "" {
		o.Root = DefaultRoot
	}
	if o.IndexURL == "" {
		o.IndexURL = DefaultIndexURL
	}
	if err := errs.ValidateURL(o.IndexURL); err != nil {
		return err
	}
	if o.Indent < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "indent must not be negative (got %d)", o.Indent)
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	format, err := formula.ParseFormat(string(o.Format))
	if err != nil {
		return err
	}
	o.Format = format
	if o.UVCommand == "" {
		o.UVCommand = DefaultUVCommand
	}
	if o.HTTPTimeout <= 0 {
		o.HTTPTimeout = DefaultHTTPTimeout
	}
	if o.BuildTimeout < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "build timeout must not be negative (got %s)", o.BuildTimeout)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// RenderOptions returns the formula rendering options.
func (o *Options) RenderOptions() formula.Options {
	return formula.Options{Indent: o.Indent}
}
