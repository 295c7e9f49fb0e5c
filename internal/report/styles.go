package report

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/roach88/procharness/internal/harness"
)

// Color palette.
var (
	successColor = lipgloss.Color("#10B981") // Green
	errorColor   = lipgloss.Color("#EF4444") // Red
	mutedColor   = lipgloss.Color("#6B7280") // Gray
)

// palette paints the parts of a text report.
type palette struct {
	pass  func(string) string
	fail  func(string) string
	muted func(string) string
	bold  func(string) string
}

func identity(s string) string { return s }

var plain = palette{pass: identity, fail: identity, muted: identity, bold: identity}

func newPalette(lr *lipgloss.Renderer) palette {
	return palette{
		pass:  lr.NewStyle().Foreground(successColor).Render,
		fail:  lr.NewStyle().Foreground(errorColor).Render,
		muted: lr.NewStyle().Foreground(mutedColor).Render,
		bold:  lr.NewStyle().Bold(true).Render,
	}
}

// RenderStyled writes the text form of r with colors. When force is set the
// true-color profile is used even if w is not a terminal.
func RenderStyled(w io.Writer, r *harness.Report, force bool) error {
	lr := lipgloss.NewRenderer(w)
	if force {
		lr.SetColorProfile(termenv.TrueColor)
	}
	return writeText(w, r, newPalette(lr))
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
