package pipeline

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/uvbrew/pkg/artifact"
	errs "github.com/matzehuels/uvbrew/pkg/errors"
	"github.com/matzehuels/uvbrew/pkg/formula"
	"github.com/matzehuels/uvbrew/pkg/integrations/pypi"
	"github.com/matzehuels/uvbrew/pkg/lock"
	"github.com/matzehuels/uvbrew/pkg/observability"
	"github.com/matzehuels/uvbrew/pkg/pyproject"
	"github.com/matzehuels/uvbrew/pkg/uv"
)

// Tool runs uv for the lock and artifact stages. [uv.Tool] is the
// production implementation.
type Tool interface {
	lock.Exporter
	artifact.Builder
}

// Runner executes the pipeline.
//
// Index and Tool are optional; when nil, Execute creates a [pypi.Client]
// for Options.IndexURL and a [uv.Tool] for Options.UVCommand. The Runner
// holds no per-run state.
type Runner struct {
	Index  artifact.Index
	Tool   Tool
	Logger *log.Logger
}

// NewRunner creates a runner that logs to logger (log.Default() if nil).
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Logger: logger}
}

// Execute runs gate → manifest → artifact → lock and assembles the formula.
//
// Errors carry [errs.Code] values: FILE_NOT_FOUND when uv.lock or
// pyproject.toml is missing, INVALID_MANIFEST, RESOLUTION_FAILED,
// BUILD_FAILED, NETWORK_ERROR, or INVALID_INPUT for bad options.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	if err := CheckLock(opts.Root); err != nil {
		return nil, err
	}

	index, tool, err := r.deps(opts)
	if err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Manifest
	var meta *pyproject.Meta
	result.Stats.ManifestTime, err = runStage(ctx, observability.StageManifest, func() error {
		var err error
		meta, err = pyproject.Read(opts.Root)
		return err
	})
	if err != nil {
		return nil, err
	}
	opts.Logger.Info("read manifest",
		"package", meta.Name,
		"version", meta.Version,
		"requires_python", meta.RequiresPython)

	// Stage 2: Artifact
	resolver := &artifact.Resolver{
		Index:     index,
		Builder:   tool,
		Logger:    opts.Logger,
		SkipIndex: opts.SkipIndex,
	}
	var art *artifact.Artifact
	result.Stats.ArtifactTime, err = runStage(ctx, observability.StageArtifact, func() error {
		var err error
		art, err = resolver.Resolve(ctx, opts.Root, meta)
		return err
	})
	if err != nil {
		return nil, err
	}
	opts.Logger.Info("resolved artifact",
		"source", art.Source,
		"url", art.URL,
		"duration", result.Stats.ArtifactTime)

	// Stage 3: Lock
	var resources []lock.Package
	result.Stats.LockTime, err = runStage(ctx, observability.StageLock, func() error {
		var err error
		resources, err = lock.Resolve(ctx, tool, opts.Root, lock.Options{
			Skip:   []string{meta.Name},
			Logger: opts.Logger,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	result.Stats.Resources = len(resources)
	opts.Logger.Info("resolved dependencies",
		"resources", len(resources),
		"duration", result.Stats.LockTime)

	result.Formula = &formula.Formula{Meta: meta, Artifact: art, Resources: resources}
	return result, nil
}

// Render writes result in opts.Format to w.
func (r *Runner) Render(result *Result, w io.Writer, opts Options) error {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	return formula.Write(result.Formula, w, opts.Format, opts.RenderOptions())
}

// CheckLock reports whether root is a uv-managed project, i.e. contains uv.lock.
func CheckLock(root string) error {
	info, err := os.Stat(filepath.Join(root, lock.FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errs.New(errs.ErrCodeFileNotFound, MissingLockMessage)
		}
		return errs.Wrap(errs.ErrCodeFileNotFound, err, MissingLockMessage)
	}
	if info.IsDir() {
		return errs.New(errs.ErrCodeFileNotFound, MissingLockMessage)
	}
	return nil
}

func (r *Runner) deps(opts Options) (artifact.Index, Tool, error) {
	index := r.Index
	if index == nil && !opts.SkipIndex {
		index = pypi.NewClient(opts.IndexURL, opts.HTTPTimeout)
	}
	tool := r.Tool
	if tool == nil {
		t, err := uv.New(opts.UVCommand, opts.BuildTimeout)
		if err != nil {
			return nil, nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid uv command")
		}
		tool = t
	}
	return index, tool, nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func runStage(ctx context.Context, stage string, fn func() error) (time.Duration, error) {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, stage)
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	hooks.OnStageComplete(ctx, stage, elapsed, err)
	return elapsed, err
}
