package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Logo is the banner printed before fetch commands
const Logo = `hirafetch
HIRA hospital open-data fetcher`

var (
	mu        sync.Mutex
	out       io.Writer = os.Stdout
	errOut    io.Writer = os.Stderr
	quietMode bool
)

// SetOutput redirects normal and error output, mainly for tests
func SetOutput(stdout, stderr io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = stdout
	errOut = stderr
}

// SetQuietMode suppresses everything except errors
func SetQuietMode(quiet bool) {
	mu.Lock()
	defer mu.Unlock()
	quietMode = quiet
}

// IsQuietMode reports whether quiet mode is on
func IsQuietMode() bool {
	mu.Lock()
	defer mu.Unlock()
	return quietMode
}

// Writer returns the current normal output
func Writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

func emit(s string) {
	mu.Lock()
	defer mu.Unlock()
	if quietMode {
		return
	}
	fmt.Fprintln(out, s)
}

// PrintLogo prints the banner
func PrintLogo() {
	emit(BoxStyle.Render(TitleStyle.Render(Logo)))
}

// PrintError prints an error message, with an optional detail, to stderr.
// Errors are shown in quiet mode too.
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, args[0])
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(errOut, ErrorStyle.Render("✗ "+msg))
}

// PrintSuccess prints a success message
func PrintSuccess(msg string) {
	emit(SuccessStyle.Render("✓ " + msg))
}

// PrintInfo prints a label and value pair
func PrintInfo(label string, value string) {
	emit(LabelStyle.Render(label+":") + " " + ValueStyle.Render(value))
}

// PrintWarning prints a warning message with an optional detail
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, args[0])
	}
	emit(WarningStyle.Render("! " + msg))
}

// PrintHighlight prints an emphasized line
func PrintHighlight(msg string) {
	emit(HighlightStyle.Render(msg))
}

// PrintBlock prints pre-rendered text such as a summary box or table
func PrintBlock(block string) {
	emit(block)
}

// truncate shortens s to at most width terminal cells
func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
