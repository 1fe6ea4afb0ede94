package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Detail is one "key: value" line in a result box. A slice keeps the
// order stable, which a map would not.
type Detail struct {
	Key   string
	Value string
}

// Printer writes styled command output to a writer.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the width used for boxes
func (p *Printer) Width() int {
	return p.width
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Printf writes formatted content
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Detail) {
	p.Println(RenderResultBox(SuccessMarker+"  "+title, SuccessTitleStyle, SuccessColor, details, p.width))
}

// PrintWarning prints a warning box listing each message
func (p *Printer) PrintWarning(title string, messages ...string) {
	details := make([]Detail, len(messages))
	for i, msg := range messages {
		details[i] = Detail{Value: "• " + msg}
	}
	p.Println(RenderResultBox(WarningMarker+"  "+title, WarningTitleStyle, WarningColor, details, p.width))
}

// PrintError prints an error result box
func (p *Printer) PrintError(title string, err error) {
	var details []Detail
	if err != nil {
		details = append(details, Detail{Key: "Error:", Value: err.Error()})
	}
	p.Println(RenderResultBox(FailureMarker+"  "+title, ErrorTitleStyle, ErrorColor, details, p.width))
}

// RenderResultBox renders a title and detail lines inside a double border.
// Details with an empty key are rendered as plain lines.
func RenderResultBox(title string, titleStyle lipgloss.Style, border lipgloss.Color, details []Detail, width int) string {
	lines := []string{"", titleStyle.Render(title), ""}

	for _, d := range details {
		if d.Key == "" {
			lines = append(lines, DetailValueStyle.Render(d.Value))
			continue
		}
		lines = append(lines, DetailKeyStyle.Render(d.Key)+" "+DetailValueStyle.Render(d.Value))
	}
	if len(details) > 0 {
		lines = append(lines, "")
	}

	return ResultBoxStyle(width, border).Render(strings.Join(lines, "\n"))
}
