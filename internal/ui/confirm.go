package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm prints question and reads a yes/no answer from in. Anything
// other than "y" or "yes" (case-insensitive) counts as no, as does EOF.
func Confirm(in io.Reader, out io.Writer, question string) bool {
	prompt := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true).
		Render(question + " [y/N]: ")
	_, _ = fmt.Fprint(out, prompt)

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		_, _ = fmt.Fprintln(out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	}

	_, _ = fmt.Fprintln(out, SubtitleStyle.Render("  Cancelled."))
	return false
}
