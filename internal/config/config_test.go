package config

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/matzehuels/uvbrew/internal/testutil"
	errs "github.com/matzehuels/uvbrew/pkg/errors"
	"github.com/matzehuels/uvbrew/pkg/formula"
)

// isolate points the default config lookup at an empty directory and
// clears UVBREW_* variables that could leak in from the environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, key := range []string{KeyIndexURL, KeyIndent, KeyUV, KeyHTTPTimeout, KeyBuildTimeout, KeyFormat, KeyNoIndex} {
		t.Setenv(EnvPrefix+"_"+strings.ToUpper(key), "")
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, path, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want none", path)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("cfg = %+v, want defaults %+v", cfg, DefaultConfig())
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)
	testutil.WriteFile(t, dir, "config.toml", `
index_url = "https://mirror.example/pypi"
indent = 4
uv = "uvx --from uv==0.8.0 uv"
http_timeout = "15s"
no_index = true
`)

	cfg, path, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if path != filepath.Join(dir, "config.toml") {
		t.Errorf("path = %q", path)
	}
	if cfg.IndexURL != "https://mirror.example/pypi" || cfg.Indent != 4 || !cfg.NoIndex {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.UV != "uvx --from uv==0.8.0 uv" {
		t.Errorf("UV = %q", cfg.UV)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Errorf("HTTPTimeout = %s", cfg.HTTPTimeout)
	}
	if cfg.Format != string(formula.FormatFormula) {
		t.Errorf("unset keys should keep defaults, Format = %q", cfg.Format)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)
	testutil.WriteFile(t, dir, "config.toml", "indent = 4\nformat = \"json\"\nhttp_timeout = \"10s\"\n")
	t.Setenv("UVBREW_INDENT", "6")
	t.Setenv("UVBREW_HTTP_TIMEOUT", "20s")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.IntP("indent-length", "i", 2, "")
	flags.String("format", "formula", "")
	if err := flags.Parse([]string{"-i", "8"}); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := Load(context.Background(), LoadOptions{
		ConfigDirPath: dir,
		Flags: map[string]*pflag.Flag{
			KeyIndent: flags.Lookup("indent-length"),
			KeyFormat: flags.Lookup("format"),
		},
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Indent != 8 {
		t.Errorf("Indent = %d, want flag value 8", cfg.Indent)
	}
	if cfg.HTTPTimeout != 20*time.Second {
		t.Errorf("HTTPTimeout = %s, want env value 20s", cfg.HTTPTimeout)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want file value json (flag not set)", cfg.Format)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	dir := isolate(t)

	_, _, err := Load(context.Background(), LoadOptions{ConfigFilePath: filepath.Join(dir, "nope.toml")})
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("expected FILE_NOT_FOUND, got %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", "indent = ["},
		{"bad format", `format = "svg"`},
		{"bad url", `index_url = "pypi.org"`},
		{"negative indent", "indent = -2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := testutil.WriteFile(t, dir, "custom.toml", tt.content)

			if _, _, err := Load(context.Background(), LoadOptions{ConfigFilePath: path}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Load(ctx, LoadOptions{}); err == nil {
		t.Error("expected cancellation error")
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	dir := isolate(t)
	want := DefaultConfig()
	want.Indent = 3
	want.BuildTimeout = 5 * time.Minute
	want.NoIndex = true

	var buf bytes.Buffer
	if err := Encode(want, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `build_timeout = '5m0s'`) && !strings.Contains(buf.String(), `build_timeout = "5m0s"`) {
		t.Errorf("unexpected encoding:\n%s", buf.String())
	}

	path := testutil.WriteFile(t, dir, "config.toml", buf.String())
	got, _, err := Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoIndex = true
	cfg.Format = "yaml"

	opts := cfg.PipelineOptions("/src/demo")
	if opts.Root != "/src/demo" || !opts.SkipIndex || opts.Format != formula.FormatYAML {
		t.Errorf("opts = %+v", opts)
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Errorf("converted options should validate: %v", err)
	}
}
