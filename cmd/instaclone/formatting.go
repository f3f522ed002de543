package instaclone

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func stderrIsTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// formatBold returns the string formatted as bold using pterm
func formatBold(s string) string {
	// Only apply formatting if output is a terminal
	if !stdoutIsTerminal() {
		return s
	}
	return pterm.Bold.Sprint(s)
}

// FormatError renders a CLI failure for stderr, in red when stderr is
// a terminal.
func FormatError(err error) string {
	msg := "error: " + err.Error()
	if !stderrIsTerminal() {
		return msg
	}
	return pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(msg)
}
