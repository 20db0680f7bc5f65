// Package uv runs the uv project manager as a blocking subprocess.
//
// Two invocations are needed to write a formula:
//
//	uv export --format pylock.toml --no-dev   // locked runtime dependencies
//	uv build                                  // local sdist fallback
//
// Both run with the project root as working directory. The command used to
// start uv is configurable as a shell-style command line ("uv",
// "uvx --from uv==0.8 uv", "/opt/uv/bin/uv --offline") and is split with
// shell quoting rules, without invoking a shell.
package uv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"mvdan.cc/sh/v3/shell"
)

// DefaultCommand is the command line used when none is configured.
const DefaultCommand = "uv"

// Tool invokes uv. The zero value is not usable; construct with [New].
type Tool struct {
	argv    []string
	timeout time.Duration
}

// New parses cmdline into an argv prefix. An empty cmdline selects
// [DefaultCommand]. Environment references ($HOME) are expanded.
//
// timeout bounds every invocation; zero means no limit.
func New(cmdline string, timeout time.Duration) (*Tool, error) {
	if strings.TrimSpace(cmdline) == "" {
		cmdline = DefaultCommand
	}
	argv, err := shell.Fields(cmdline, nil)
	if err != nil {
		return nil, fmt.Errorf("parse uv command %q: %w", cmdline, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("parse uv command %q: empty", cmdline)
	}
	return &Tool{argv: argv, timeout: timeout}, nil
}

// Argv returns a copy of the command prefix.
func (t *Tool) Argv() []string {
	return append([]string(nil), t.argv...)
}

// Export runs `uv export --format pylock.toml --no-dev` in dir and returns stdout.
func (t *Tool) Export(ctx context.Context, dir string) ([]byte, error) {
	return t.run(ctx, dir, "export", "--format", "pylock.toml", "--no-dev")
}

// Build runs `uv build` in dir. Artifacts land in dir/dist.
func (t *Tool) Build(ctx context.Context, dir string) error {
	_, err := t.run(ctx, dir, "build")
	return err
}

// ExitError reports a uv invocation that ran but did not succeed.
type ExitError struct {
	Args     []string // Full argv of the failed invocation
	ExitCode int      // Process exit code, -1 if killed
	Stderr   string   // Captured standard error, trimmed
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (t *Tool) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	argv := append(t.Argv(), args...)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s: %w", strings.Join(argv, " "), ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, &ExitError{
			Args:     argv,
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	return nil, fmt.Errorf("%s: %w", strings.Join(argv, " "), err)
}
