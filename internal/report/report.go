// Package report renders a finished harness.Report.
//
// Format selection:
//   - text is the default; it is styled with lipgloss when the output is a
//     terminal (or when color is forced)
//   - json and yaml emit the same document for machine consumers
//   - invalid formats are errors
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/procharness/internal/harness"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format string. The empty string selects text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid format: %q (must be text, json, or yaml)", s)
	}
}

// ColorMode controls styling of text output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode parses a --color value. The empty string selects auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return "", fmt.Errorf("invalid color mode: %q (must be auto, always, or never)", s)
	}
}

// ExitStatus is 0 iff every entry passed and the run was not truncated.
func ExitStatus(r *harness.Report) int {
	if r.OK() {
		return 0
	}
	return 1
}

// Document is the json/yaml shape of a report.
type Document struct {
	Status     string          `json:"status" yaml:"status"`
	ExitStatus int             `json:"exit_status" yaml:"exit_status"`
	Total      int             `json:"total" yaml:"total"`
	NotRun     int             `json:"not_run" yaml:"not_run"`
	Report     *harness.Report `json:"report" yaml:"report"`
}

// NewDocument wraps r for structured output.
func NewDocument(r *harness.Report) Document {
	status := "ok"
	switch {
	case r.Aborted:
		status = "aborted"
	case !r.OK():
		status = "failed"
	}
	return Document{
		Status:     status,
		ExitStatus: ExitStatus(r),
		Total:      r.Total(),
		NotRun:     r.NotRun(),
		Report:     r,
	}
}

// Renderer writes reports in one format.
type Renderer struct {
	format Format
	color  ColorMode
	out    io.Writer
}

// NewRenderer creates a renderer writing to out.
func NewRenderer(format Format, color ColorMode, out io.Writer) *Renderer {
	return &Renderer{format: format, color: color, out: out}
}

// Render outputs r in the configured format.
func (rd *Renderer) Render(r *harness.Report) error {
	switch rd.format {
	case FormatText, "":
		if rd.styled() {
			return RenderStyled(rd.out, r, rd.color == ColorAlways)
		}
		return Render(rd.out, r)
	case FormatJSON:
		return RenderJSON(rd.out, r)
	case FormatYAML:
		return RenderYAML(rd.out, r)
	default:
		return fmt.Errorf("unknown format: %s", rd.format)
	}
}

func (rd *Renderer) styled() bool {
	switch rd.color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return IsTerminal(rd.out)
	}
}

// Render writes the plain text form of r.
func Render(w io.Writer, r *harness.Report) error {
	return writeText(w, r, plain)
}

// RenderJSON writes r as indented JSON.
func RenderJSON(w io.Writer, r *harness.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(r))
}

// RenderYAML writes r as YAML.
func RenderYAML(w io.Writer, r *harness.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(r)); err != nil {
		return err
	}
	return enc.Close()
}

// Summary returns the one-line count summary of r.
func Summary(r *harness.Report) string {
	return fmt.Sprintf("Test Summary: %d passed, %d failed, %d panicked, %d total",
		r.Passed, r.Failed, r.AbnormallyTerminated, r.Total())
}

// AbortLine describes a truncated run. It is empty when r ran to completion.
func AbortLine(r *harness.Report) string {
	if !r.Aborted {
		return ""
	}
	if r.AbortedDuring == "" {
		if r.AbortReason != "" {
			return fmt.Sprintf("Run %s; remaining cases were not run", r.AbortReason)
		}
		return "Run aborted; remaining cases were not run"
	}
	return fmt.Sprintf("Run aborted during %s; remaining cases were not run", r.AbortedDuring)
}

func writeText(w io.Writer, r *harness.Report, p palette) error {
	var b strings.Builder
	for _, e := range r.Entries {
		if e.Outcome.Kind == harness.Passed {
			fmt.Fprintf(&b, "%s %s\n", p.pass("✓"), e.Name)
			continue
		}
		fmt.Fprintf(&b, "%s %s %s\n", p.fail("✗"), e.Name, p.muted("("+e.Outcome.Kind.String()+")"))
		if e.Outcome.Message == "" {
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(e.Outcome.Message, "\n"), "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}

	b.WriteString("\n")
	b.WriteString(p.bold(Summary(r)))
	b.WriteString("\n")

	switch {
	case r.Aborted:
		b.WriteString(p.fail(AbortLine(r)))
		b.WriteString("\n")
	case r.OK() && r.Total() > 0:
		b.WriteString(p.pass("✓ All tests passed"))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
