package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	errs "github.com/matzehuels/uvbrew/pkg/errors"
	"github.com/matzehuels/uvbrew/pkg/formula"
	"github.com/matzehuels/uvbrew/pkg/pipeline"
)

const (
	// AppName is the application name.
	AppName = "uvbrew"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
	// EnvPrefix prefixes environment overrides (UVBREW_INDEX_URL, ...).
	EnvPrefix = "UVBREW"
)

// Config keys, shared by the config file, environment and flag bindings.
const (
	KeyIndexURL     = "index_url"
	KeyIndent       = "indent"
	KeyUV           = "uv"
	KeyHTTPTimeout  = "http_timeout"
	KeyBuildTimeout = "build_timeout"
	KeyFormat       = "format"
	KeyNoIndex      = "no_index"
)

// Config holds the effective settings.
type Config struct {
	IndexURL     string        `mapstructure:"index_url"`
	Indent       int           `mapstructure:"indent"`
	UV           string        `mapstructure:"uv"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	BuildTimeout time.Duration `mapstructure:"build_timeout"`
	Format       string        `mapstructure:"format"`
	NoIndex      bool          `mapstructure:"no_index"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		IndexURL:     pipeline.DefaultIndexURL,
		Indent:       pipeline.DefaultIndent,
		UV:           pipeline.DefaultUVCommand,
		HTTPTimeout:  pipeline.DefaultHTTPTimeout,
		BuildTimeout: pipeline.DefaultBuildTimeout,
		Format:       string(pipeline.DefaultFormat),
		NoIndex:      false,
	}
}

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
	// Flags maps command-line flags onto config keys. Only flags that
	// were set explicitly override lower layers.
	Flags map[string]*pflag.Flag
}

// Load resolves the effective configuration. It returns the config file
// that was read, or "" when only defaults, environment and flags applied.
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault(KeyIndexURL, defaults.IndexURL)
	v.SetDefault(KeyIndent, defaults.Indent)
	v.SetDefault(KeyUV, defaults.UV)
	v.SetDefault(KeyHTTPTimeout, defaults.HTTPTimeout)
	v.SetDefault(KeyBuildTimeout, defaults.BuildTimeout)
	v.SetDefault(KeyFormat, defaults.Format)
	v.SetDefault(KeyNoIndex, defaults.NoIndex)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, "", fmt.Errorf("bind flag --%s: %w", flag.Name, err)
		}
	}

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", errs.New(errs.ErrCodeFileNotFound, "config file not found: %s", opts.ConfigFilePath)
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		dir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}
		if path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt); fileExists(path) {
			resolvedPath = path
		}
	}

	if resolvedPath != "" {
		v.SetConfigFile(resolvedPath)
		v.SetConfigType(ConfigFileExt)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", errs.Wrap(errs.ErrCodeInvalidInput, err, "read config %s", resolvedPath)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", errs.Wrap(errs.ErrCodeInvalidInput, err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolvedPath, nil
}

// Validate checks values that Viper cannot type-check.
func (c *Config) Validate() error {
	if err := errs.ValidateURL(c.IndexURL); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "%s", KeyIndexURL)
	}
	if c.Indent < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "%s must not be negative (got %d)", KeyIndent, c.Indent)
	}
	if _, err := formula.ParseFormat(c.Format); err != nil {
		return err
	}
	if c.HTTPTimeout < 0 || c.BuildTimeout < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "timeouts must not be negative")
	}
	return nil
}

// PipelineOptions converts c into options for a run on root.
func (c *Config) PipelineOptions(root string) pipeline.Options {
	return pipeline.Options{
		Root:         root,
		IndexURL:     c.IndexURL,
		SkipIndex:    c.NoIndex,
		Indent:       c.Indent,
		Format:       formula.Format(c.Format),
		UVCommand:    c.UV,
		HTTPTimeout:  c.HTTPTimeout,
		BuildTimeout: c.BuildTimeout,
	}
}

type fileView struct {
	IndexURL     string `toml:"index_url"`
	Indent       int    `toml:"indent"`
	UV           string `toml:"uv"`
	HTTPTimeout  string `toml:"http_timeout"`
	BuildTimeout string `toml:"build_timeout"`
	Format       string `toml:"format"`
	NoIndex      bool   `toml:"no_index"`
}

// Encode writes c in config file syntax. Durations are written as
// strings ("1m0s") so the output can be loaded back.
func Encode(c *Config, w io.Writer) error {
	view := fileView{
		IndexURL:     c.IndexURL,
		Indent:       c.Indent,
		UV:           c.UV,
		HTTPTimeout:  c.HTTPTimeout.String(),
		BuildTimeout: c.BuildTimeout.String(),
		Format:       c.Format,
		NoIndex:      c.NoIndex,
	}
	return toml.NewEncoder(w).Encode(view)
}

// ConfigDir returns the uvbrew configuration directory: %APPDATA%\uvbrew on
// Windows, $XDG_CONFIG_HOME/uvbrew (default ~/.config/uvbrew) elsewhere.
func ConfigDir() (string, error) {
	var configDir string
	if runtime.GOOS == "windows" {
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	} else {
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(configDir, AppName), nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
