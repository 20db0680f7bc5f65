// Package formula turns resolved project data into a Homebrew formula.
//
// A [Formula] bundles the project metadata, the project's own source
// archive and the locked dependency archives. [Render] writes it in
// Homebrew's Ruby DSL as a virtualenv-based Python formula; [WriteJSON] and
// [WriteYAML] emit the same data for other tooling.
package formula

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/uvbrew/pkg/artifact"
	errs "github.com/matzehuels/uvbrew/pkg/errors"
	"github.com/matzehuels/uvbrew/pkg/lock"
	"github.com/matzehuels/uvbrew/pkg/pyproject"
)

// Formula is everything needed to write a formula.
type Formula struct {
	Meta      *pyproject.Meta    `json:"project" yaml:"project"`
	Artifact  *artifact.Artifact `json:"artifact" yaml:"artifact"`
	Resources []lock.Package     `json:"resources" yaml:"resources"`
}

// Format selects the output encoding.
type Format string

const (
	FormatFormula Format = "formula" // Homebrew Ruby DSL
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
)

// Formats lists the supported output formats.
var Formats = []Format{FormatFormula, FormatJSON, FormatYAML}

// ParseFormat validates a format name. Matching is case-insensitive.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errs.New(errs.ErrCodeInvalidFormat, "unknown output format %q (want formula, json or yaml)", s)
}

// DefaultIndent is the indentation width used when none is configured.
const DefaultIndent = 2

// Options configures [Render].
type Options struct {
	Indent int // Spaces per nesting level; zero renders flush
}

// Write encodes f in the given format.
func Write(f *Formula, w io.Writer, format Format, opts Options) error {
	switch format {
	case FormatFormula, "":
		return Render(f, w, opts)
	case FormatJSON:
		return WriteJSON(f, w)
	case FormatYAML:
		return WriteYAML(f, w)
	default:
		return errs.New(errs.ErrCodeInvalidFormat, "unknown output format %q", format)
	}
}

// Render writes f as a Homebrew formula in Ruby DSL.
func Render(f *Formula, w io.Writer, opts Options) error {
	if opts.Indent < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "indent must not be negative (got %d)", opts.Indent)
	}
	in := strings.Repeat(" ", opts.Indent)
	m := f.Meta

	var b strings.Builder
	line := func(depth int, format string, args ...any) {
		b.WriteString(strings.Repeat(in, depth))
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	blank := func() { b.WriteByte('\n') }

	line(0, "class %s < Formula", ClassName(m.Name))
	line(1, "include Language::Python::Virtualenv")
	blank()

	if m.Description != "" {
		line(1, "desc %s", Quote(m.Description))
	}
	if m.Homepage != "" {
		line(1, "homepage %s", Quote(m.Homepage))
	}
	line(1, "url %s", Quote(f.Artifact.URL))
	line(1, "sha256 %s", Quote(f.Artifact.SHA256))
	if m.License != "" {
		line(1, "license %s", Quote(m.License))
	}
	blank()

	line(1, "depends_on %s", Quote(PythonDependency(m.RequiresPython)))
	blank()

	for _, pkg := range f.Resources {
		line(1, "resource %s do", Quote(pkg.Name))
		line(2, "url %s", Quote(pkg.URL))
		if pkg.SHA256 != "" {
			line(2, "sha256 %s", Quote(pkg.SHA256))
		}
		line(1, "end")
		blank()
	}

	line(1, "def install")
	line(2, "virtualenv_install_with_resources")
	line(1, "end")
	blank()

	line(1, "test do")
	line(2, "system %s, %s", Quote(m.Name), Quote("--version"))
	line(1, "end")
	line(0, "end")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON encodes f as indented JSON.
func WriteJSON(f *Formula, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteYAML encodes f as YAML.
func WriteYAML(f *Formula, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// ClassName converts a project name to a Ruby class name. The first
// character and every character following "-" or "_" are upper-cased, then
// the delimiters are dropped: "my-tool" becomes "MyTool". Dots are kept.
func ClassName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '-' || r == '_' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

var pythonVersionRE = regexp.MustCompile(`^\s*(\d+)\.(\d+)`)

// PythonDependency returns the Homebrew python keg for a stripped
// requires-python constraint: "3.10" and "3.10.4,<4" both give "python@3.10".
// Constraints without a leading major.minor are used verbatim.
func PythonDependency(requiresPython string) string {
	if m := pythonVersionRE.FindStringSubmatch(requiresPython); m != nil {
		return "python@" + m[1] + "." + m[2]
	}
	return "python@" + strings.TrimSpace(requiresPython)
}

// Quote returns s as a double-quoted Ruby string literal with backslashes,
// quotes and interpolation sequences escaped.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', '"':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '#':
			if i+1 < len(s) && (s[i+1] == '{' || s[i+1] == '$' || s[i+1] == '@') {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
