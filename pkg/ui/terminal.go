package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Banner is printed by interactive commands
const Banner = `
  ┌─────────────────────────────────────────────┐
  │  r e d d i t a n a l y z e r                │
  │  collect · upload · report                  │
  └─────────────────────────────────────────────┘
`

var (
	cyan    = lipgloss.Color("#00D7D7")
	yellow  = lipgloss.Color("#FFD75F")
	red     = lipgloss.Color("#FF5F5F")
	green   = lipgloss.Color("#5FFF87")
	magenta = lipgloss.Color("#D75FFF")

	bannerStyle    = lipgloss.NewStyle().Foreground(cyan)
	errorStyle     = lipgloss.NewStyle().Foreground(red).Bold(true)
	successStyle   = lipgloss.NewStyle().Foreground(green).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(cyan)
	valueStyle     = lipgloss.NewStyle().Foreground(yellow)
	warningStyle   = lipgloss.NewStyle().Foreground(yellow)
	highlightStyle = lipgloss.NewStyle().Foreground(magenta).Bold(true)
)

var (
	outMu sync.Mutex
	out   io.Writer = os.Stdout
)

// SetOutput redirects all Print helpers to w
func SetOutput(w io.Writer) {
	outMu.Lock()
	out = w
	outMu.Unlock()
}

func writeLine(s string) {
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintln(out, s)
}

// PrintBanner prints the banner
func PrintBanner() {
	writeLine(bannerStyle.Render(Banner))
}

// PrintError prints an error message, with an optional detail
func PrintError(msg string, args ...interface{}) {
	writeLine(errorStyle.Render(withDetail(msg, args)))
}

// PrintSuccess prints a success message
func PrintSuccess(msg string) {
	writeLine(successStyle.Render(msg))
}

// PrintInfo prints a label and its value
func PrintInfo(label string, value string) {
	writeLine(labelStyle.Render(label+":") + " " + valueStyle.Render(value))
}

// PrintWarning prints a warning message, with an optional detail
func PrintWarning(msg string, args ...interface{}) {
	writeLine(warningStyle.Render(withDetail(msg, args)))
}

// PrintHighlight prints an emphasised message
func PrintHighlight(msg string) {
	writeLine(highlightStyle.Render(msg))
}

func withDetail(msg string, args []interface{}) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, args[0])
}
