package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	tokenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	colorEnabled bool
)

// setupColor decides whether styles are applied to w.
func setupColor(mode string, w io.Writer) error {
	switch mode {
	case "never":
		colorEnabled = false
	case "always":
		colorEnabled = true
		lipgloss.SetColorProfile(termenv.TrueColor)
	case "auto":
		f, ok := w.(*os.File)
		colorEnabled = ok && term.IsTerminal(int(f.Fd()))
	default:
		return fmt.Errorf("unknown color mode: %s", mode)
	}
	return nil
}

func paint(s lipgloss.Style, text string) string {
	if !colorEnabled {
		return text
	}
	return s.Render(text)
}

func header(title string) string {
	if !colorEnabled {
		return "=== " + title + " ==="
	}
	return headerStyle.Render(title)
}

func tokenStr(t uint32) string {
	return paint(tokenStyle, fmt.Sprintf("0x%08X", t))
}
