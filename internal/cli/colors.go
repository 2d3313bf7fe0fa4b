package cli

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/banshee-data/packwave/internal/sweep"
)

// ColorScheme defines the colors used for the different elements of CLI
// output.
type ColorScheme struct {
	Title     *color.Color
	Key       *color.Color
	Success   *color.Color
	Warn      *color.Color
	Error     *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Title:     color.New(color.FgCyan, color.Bold),
		Key:       color.New(color.FgYellow),
		Success:   color.New(color.FgGreen, color.Bold),
		Warn:      color.New(color.FgYellow, color.Bold),
		Error:     color.New(color.FgRed, color.Bold),
		Highlight: color.New(color.FgMagenta, color.Bold),
	}
}

// NoColorScheme returns a color scheme with all colors disabled.
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()

	scheme.Title.DisableColor()
	scheme.Key.DisableColor()
	scheme.Success.DisableColor()
	scheme.Warn.DisableColor()
	scheme.Error.DisableColor()
	scheme.Highlight.DisableColor()

	return scheme
}

// schemeFor picks a color scheme for the output writer: colors only when
// writing to a terminal and not explicitly disabled.
func schemeFor(w io.Writer, noColor bool) *ColorScheme {
	if noColor || !isTerminal(w) {
		return NoColorScheme()
	}
	return DefaultColorScheme()
}

// isTerminal checks if the writer is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// statusColor returns the scheme color matching a sweep status string.
func (c *ColorScheme) statusColor(status string) *color.Color {
	switch status {
	case string(sweep.StatusDone):
		return c.Success
	case string(sweep.StatusFailed):
		return c.Error
	default:
		return c.Warn
	}
}
