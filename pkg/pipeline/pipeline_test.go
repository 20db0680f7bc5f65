package pipeline

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/uvbrew/internal/testutil"
	"github.com/matzehuels/uvbrew/pkg/artifact"
	errs "github.com/matzehuels/uvbrew/pkg/errors"
	"github.com/matzehuels/uvbrew/pkg/formula"
	"github.com/matzehuels/uvbrew/pkg/observability"
	"github.com/matzehuels/uvbrew/pkg/pyproject"
)

const (
	demoDigest  = "abc1230000000000000000000000000000000000000000000000000000000000"
	clickDigest = "ca9853ad459e787e2192211578cc907e7594e294c7ccc834310722b41b9ca6de"
)

const demoManifest = `[project]
name = "demo"
version = "1.0.0"
requires-python = ">=3.10"
dependencies = ["click"]
`

const demoPylock = `lock-version = "1.0"
created-by = "uv"

[[packages]]
name = "click"
version = "8.1.7"
sdist = { url = "https://files/click-8.1.7.tar.gz", hashes = { sha256 = "` + clickDigest + `" } }

[[packages]]
name = "demo"
directory = { path = ".", editable = true }
`

// fakeTool records uv invocations and answers them from fixtures.
type fakeTool struct {
	export  []byte
	exports int
	builds  int
}

func (f *fakeTool) Export(ctx context.Context, dir string) ([]byte, error) {
	f.exports++
	return f.export, nil
}

func (f *fakeTool) Build(ctx context.Context, dir string) error {
	f.builds++
	return nil
}

func newProject(t *testing.T, withLock bool) string {
	t.Helper()
	root := t.TempDir()
	testutil.WriteFile(t, root, "pyproject.toml", demoManifest)
	if withLock {
		testutil.WriteFile(t, root, "uv.lock", "version = 1\n")
	}
	return root
}

func newIndexServer(t *testing.T, releases string) string {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/pypi/demo/json", func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, `{"releases": `+releases+`}`)
	})
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server.URL + "/pypi"
}

func TestExecute_IndexHit(t *testing.T) {
	root := newProject(t, true)
	indexURL := newIndexServer(t, `{"1.0.0": [{"url": "https://files/demo-1.0.0.tar.gz", "packagetype": "sdist", "digests": {"sha256": "`+demoDigest+`"}}]}`)
	tool := &fakeTool{export: []byte(demoPylock)}

	runner := &Runner{Tool: tool}
	result, err := runner.Execute(context.Background(), Options{Root: root, IndexURL: indexURL})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	f := result.Formula
	if f.Artifact.URL != "https://files/demo-1.0.0.tar.gz" || f.Artifact.SHA256 != demoDigest {
		t.Errorf("artifact = %+v", f.Artifact)
	}
	if tool.builds != 0 {
		t.Errorf("build invoked %d times, want 0", tool.builds)
	}
	if tool.exports != 1 {
		t.Errorf("export invoked %d times, want 1", tool.exports)
	}
	if len(f.Resources) != 1 || f.Resources[0].Name != "click" {
		t.Errorf("resources = %+v, want only click (own package skipped)", f.Resources)
	}
	if result.Stats.Resources != 1 {
		t.Errorf("Stats.Resources = %d", result.Stats.Resources)
	}

	var out bytes.Buffer
	if err := runner.Render(result, &out, Options{}); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"class Demo < Formula",
		`url "https://files/demo-1.0.0.tar.gz"`,
		`depends_on "python@3.10"`,
		`resource "click" do`,
		`sha256 "` + clickDigest + `"`,
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("formula missing %q:\n%s", want, out.String())
		}
	}
}

func TestExecute_NotFoundUsesExistingDist(t *testing.T) {
	root := newProject(t, true)
	testutil.WriteFile(t, root, "dist/demo-1.0.0.tar.gz", "local sdist")
	indexURL := newIndexServer(t, `{}`)
	tool := &fakeTool{export: []byte(demoPylock)}

	runner := &Runner{Tool: tool}
	// "demo" exists on this index but has no 1.0.0 release.
	result, err := runner.Execute(context.Background(), Options{Root: root, IndexURL: indexURL})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Formula.Artifact.Source != artifact.SourceLocal {
		t.Errorf("Source = %q, want local", result.Formula.Artifact.Source)
	}
	if tool.builds != 0 {
		t.Errorf("build invoked %d times, want 0", tool.builds)
	}
}

func TestExecute_MissingLock(t *testing.T) {
	root := newProject(t, false)
	tool := &fakeTool{}

	_, err := (&Runner{Tool: tool}).Execute(context.Background(), Options{Root: root})
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Fatalf("expected FILE_NOT_FOUND, got %v", err)
	}
	if errs.UserMessage(err) != MissingLockMessage {
		t.Errorf("message = %q", errs.UserMessage(err))
	}
	if tool.exports+tool.builds != 0 {
		t.Error("uv must not run without uv.lock")
	}
}

func TestExecute_MissingManifest(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "uv.lock", "")

	_, err := (&Runner{Tool: &fakeTool{}}).Execute(context.Background(), Options{Root: root, SkipIndex: true})
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Fatalf("expected FILE_NOT_FOUND, got %v", err)
	}
}

func TestExecute_WithFakeUV(t *testing.T) {
	root := newProject(t, true)
	script := testutil.FakeUV(t, `case "$1" in
export) cat <<'PYLOCK'
`+demoPylock+`PYLOCK
;;
build) mkdir -p dist && printf 'built' > dist/demo-1.0.0.tar.gz ;;
*) echo "unexpected: $*" >&2; exit 2 ;;
esac`)

	var logs bytes.Buffer
	runner := NewRunner(log.NewWithOptions(&logs, log.Options{Level: log.DebugLevel}))
	result, err := runner.Execute(context.Background(), Options{Root: root, SkipIndex: true, UVCommand: script})
	if err != nil {
		t.Fatalf("Execute failed: %v\nlogs:\n%s", err, logs.String())
	}
	if result.Formula.Artifact.Source != artifact.SourceLocal {
		t.Errorf("Source = %q", result.Formula.Artifact.Source)
	}
	if !strings.HasPrefix(result.Formula.Artifact.URL, "file://") {
		t.Errorf("URL = %q", result.Formula.Artifact.URL)
	}
	if len(result.Formula.Resources) != 1 {
		t.Errorf("resources = %+v", result.Formula.Resources)
	}
}

func TestExecute_ExportFailure(t *testing.T) {
	root := newProject(t, true)
	testutil.WriteFile(t, root, "dist/demo-1.0.0.tar.gz", "x")
	script := testutil.FakeUV(t, `echo "error: lock is stale" >&2; exit 2`)

	_, err := NewRunner(nil).Execute(context.Background(), Options{Root: root, SkipIndex: true, UVCommand: script})
	if !errs.Is(err, errs.ErrCodeResolution) {
		t.Fatalf("expected RESOLUTION_FAILED, got %v", err)
	}
	if !strings.Contains(err.Error(), "lock is stale") {
		t.Errorf("stderr should be propagated: %v", err)
	}
}

type recordingHooks struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) OnStageStart(_ context.Context, stage string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "start:"+stage)
}

func (h *recordingHooks) OnStageComplete(_ context.Context, stage string, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	status := "ok"
	if err != nil {
		status = "err"
	}
	h.events = append(h.events, stage+":"+status)
}

func TestExecute_StageHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	t.Cleanup(observability.Reset)

	root := newProject(t, true)
	testutil.WriteFile(t, root, "dist/demo-1.0.0.tar.gz", "x")
	if _, err := (&Runner{Tool: &fakeTool{export: []byte(demoPylock)}}).Execute(context.Background(), Options{Root: root, SkipIndex: true}); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"start:" + observability.StageManifest, observability.StageManifest + ":ok",
		"start:" + observability.StageArtifact, observability.StageArtifact + ":ok",
		"start:" + observability.StageLock, observability.StageLock + ":ok",
	}
	if strings.Join(hooks.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", hooks.events, want)
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.Root != DefaultRoot || o.IndexURL != DefaultIndexURL || o.Indent != 0 {
		t.Errorf("defaults not applied: %+v", o)
	}
	if o.Format != formula.FormatFormula || o.UVCommand != DefaultUVCommand || o.HTTPTimeout != DefaultHTTPTimeout {
		t.Errorf("defaults not applied: %+v", o)
	}
	if o.Logger == nil {
		t.Error("Logger should default to a discarding logger")
	}
}

func TestValidateAndSetDefaults_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errs.Code
	}{
		{"bad index scheme", Options{IndexURL: "ftp://mirror"}, errs.ErrCodeInvalidInput},
		{"negative indent", Options{Indent: -1}, errs.ErrCodeInvalidInput},
		{"unknown format", Options{Format: "toml"}, errs.ErrCodeInvalidFormat},
		{"negative build timeout", Options{BuildTimeout: -time.Second}, errs.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errs.Is(err, tt.code) {
				t.Errorf("got %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestCheckLock(t *testing.T) {
	root := t.TempDir()
	if err := CheckLock(root); !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("expected FILE_NOT_FOUND, got %v", err)
	}
	testutil.WriteFile(t, root, "uv.lock", "")
	if err := CheckLock(root); err != nil {
		t.Errorf("CheckLock with uv.lock: %v", err)
	}
}

func TestRender_IndentWidth(t *testing.T) {
	result := &Result{Formula: &formula.Formula{
		Meta:     &pyproject.Meta{Name: "demo", Version: "1.0.0", RequiresPython: "3.10"},
		Artifact: &artifact.Artifact{URL: "https://files/demo-1.0.0.tar.gz", SHA256: demoDigest},
	}}

	tests := []struct {
		indent int
		want   string
	}{
		{0, "\ninclude Language::Python::Virtualenv\n"},
		{2, "\n  include Language::Python::Virtualenv\n"},
		{4, "\n    include Language::Python::Virtualenv\n"},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		if err := NewRunner(nil).Render(result, &out, Options{Indent: tt.indent}); err != nil {
			t.Fatalf("Render(indent=%d) error: %v", tt.indent, err)
		}
		if !strings.Contains(out.String(), tt.want) {
			t.Errorf("Render(indent=%d) =\n%s\nwant line %q", tt.indent, out.String(), tt.want)
		}
	}
}
