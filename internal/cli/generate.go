package cli

import (
	"context"
	"fmt"

	"github.com/matzehuels/uvbrew/internal/config"
	errs "github.com/matzehuels/uvbrew/pkg/errors"
	"github.com/matzehuels/uvbrew/pkg/formula"
	"github.com/matzehuels/uvbrew/pkg/pipeline"
)

// runGenerate runs the pipeline for root and writes the result to stdout.
func (c *CLI) runGenerate(ctx context.Context, cfg *config.Config, root string) error {
	logger := loggerFromContext(ctx)
	opts := cfg.PipelineOptions(root)
	opts.Logger = logger
	runner := pipeline.NewRunner(logger)
	prog := newProgress(logger)

	interactive := isTerminal(c.Stderr)
	var spinner *Spinner
	if interactive {
		spinner = newSpinnerWithContext(ctx, c.Stderr, fmt.Sprintf("Resolving formula for %s...", root))
		spinner.Start()
	}

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		if spinner != nil {
			spinner.StopWithError(errs.UserMessage(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	if spinner != nil {
		spinner.Stop()
	}

	if err := runner.Render(result, c.Stdout, opts); err != nil {
		return fmt.Errorf("write formula: %w", err)
	}
	prog.done(fmt.Sprintf("Generated formula for %s", result.Formula.Meta.Name))

	if interactive {
		f := result.Formula
		printSuccess(c.Stderr, "Formula %s %s", StyleTitle.Render(formula.ClassName(f.Meta.Name)), StyleValue.Render(f.Meta.Version))
		printDetail(c.Stderr, "%s", f.Artifact.URL)
		printStats(c.Stderr, result.Stats.Resources, string(f.Artifact.Source))
	}
	return nil
}
