// Package cli implements the uvbrew command-line interface.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/uvbrew/internal/config"
	"github.com/matzehuels/uvbrew/pkg/buildinfo"
	"github.com/matzehuels/uvbrew/pkg/formula"
	"github.com/matzehuels/uvbrew/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display.
	appName = "uvbrew"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// Flag names. Flags that mirror config keys are bound through Viper so
// that an explicitly set flag beats environment and config file values.
const (
	flagProject      = "project"
	flagIndent       = "indent-length"
	flagIndexURL     = "index-url"
	flagFormat       = "format"
	flagNoIndex      = "no-index"
	flagVerbose      = "verbose"
	flagConfig       = "config"
	flagUV           = "uv"
	flagHTTPTimeout  = "http-timeout"
	flagBuildTimeout = "build-timeout"
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
//
// Stdout receives only command output (the formula, the config dump);
// logs, status lines and the spinner go to Stderr.
type CLI struct {
	Logger *log.Logger
	Stdout io.Writer
	Stderr io.Writer

	project    string
	configFile string
	verbose    bool
}

// New creates a new CLI instance with a default logger writing to stderr.
func New(stdout, stderr io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(stderr, level),
		Stdout: stdout,
		Stderr: stderr,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// Running the root command generates a formula for the project.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName + " [flags]",
		Short: "Generate Homebrew formulas for uv-managed Python projects",
		Long: `uvbrew writes a Homebrew formula for the uv-managed Python project in the
current directory (or --project). Metadata comes from pyproject.toml, the
project's sdist from the package index (or a local uv build), and one
resource block per locked runtime dependency from uv export.

The formula is written to stdout; logs go to stderr.`,
		Example: `  uvbrew > Formula/my-tool.rb
  uvbrew -C ~/src/my-tool --index-url https://mirror.example/pypi
  uvbrew --no-index --format json`,
		Version:      buildinfo.Version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := LogInfo
			if c.verbose {
				level = LogDebug
			}
			c.SetLogLevel(level)
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			registerHooks(c.Logger)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			return c.runGenerate(cmd.Context(), cfg, c.project)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.BoolVarP(&c.verbose, flagVerbose, "v", false, "enable verbose logging")
	pf.StringVar(&c.configFile, flagConfig, "", "config file (default $XDG_CONFIG_HOME/uvbrew/config.toml)")
	pf.StringVarP(&c.project, flagProject, "C", pipeline.DefaultRoot, "project directory containing pyproject.toml and uv.lock")
	pf.IntP(flagIndent, "i", pipeline.DefaultIndent, "number of spaces to indent")
	pf.StringP(flagIndexURL, "I", pipeline.DefaultIndexURL, "custom package index url, must support the '/json' endpoint")
	pf.StringP(flagFormat, "f", string(pipeline.DefaultFormat), "output format: formula, json or yaml")
	pf.Bool(flagNoIndex, false, "skip the index lookup and always build the sdist locally")
	pf.String(flagUV, pipeline.DefaultUVCommand, "command line used to run uv")
	pf.Duration(flagHTTPTimeout, pipeline.DefaultHTTPTimeout, "timeout for each index request")
	pf.Duration(flagBuildTimeout, pipeline.DefaultBuildTimeout, "timeout for each uv invocation (0 for none)")

	_ = root.RegisterFlagCompletionFunc(flagFormat, func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, len(formula.Formats))
		for i, f := range formula.Formats {
			names[i] = string(f)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
	_ = root.MarkPersistentFlagDirname(flagProject)
	_ = root.MarkPersistentFlagFilename(flagConfig, "toml")

	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig resolves the effective configuration for cmd.
func (c *CLI) loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	fs := cmd.Flags()
	cfg, path, err := config.Load(cmd.Context(), config.LoadOptions{
		ConfigFilePath: c.configFile,
		Flags: map[string]*pflag.Flag{
			config.KeyIndent:       fs.Lookup(flagIndent),
			config.KeyIndexURL:     fs.Lookup(flagIndexURL),
			config.KeyFormat:       fs.Lookup(flagFormat),
			config.KeyNoIndex:      fs.Lookup(flagNoIndex),
			config.KeyUV:           fs.Lookup(flagUV),
			config.KeyHTTPTimeout:  fs.Lookup(flagHTTPTimeout),
			config.KeyBuildTimeout: fs.Lookup(flagBuildTimeout),
		},
	})
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		c.Logger.Debug("loaded config", "path", path)
	}
	return cfg, path, nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
