// Package renderer formats protocol.Output values into colored terminal
// lines: a transient "RUNNING" progress line per test, replaced in place by
// its permanent OK/ERR line, with a diff block and stack traceback on
// failure. It is stateless aside from the io.Writer it renders to.
package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lunest-run/lunest/internal/protocol"
)

var (
	styleGray  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleGreen = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	styleRed   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleCyan  = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	styleBold  = lipgloss.NewStyle().Bold(true)
)

const clearToEOL = "\x1b[K"

// Renderer writes formatted progress and result lines to an underlying
// writer, usually the terminal.
type Renderer struct {
	w io.Writer
}

func New(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// TestStarted prints a transient progress line, meant to be overwritten by
// the following TestFinished line via a leading carriage return.
func (r *Renderer) TestStarted(e *protocol.TestStarted) {
	fmt.Fprintf(r.w, "\r%s: %s", joinTitle(e.Title), styleCyan.Render("RUNNING"))
}

// TestFinished clears the progress line and prints the permanent OK/ERR
// line, plus a diff block and traceback on failure.
func (r *Renderer) TestFinished(e *protocol.TestFinished) {
	fmt.Fprintf(r.w, "\r%s%s: ", clearToEOL, joinTitle(e.Title))

	if e.Error == nil {
		fmt.Fprintln(r.w, styleGreen.Render("OK"))
		return
	}

	fmt.Fprintln(r.w, styleRed.Render("ERR"))
	fmt.Fprintln(r.w, styleBold.Render(e.Error.Message))

	if e.Error.Info != nil {
		r.renderDiff(e.Error.Info)
	}

	if e.Error.Traceback != "" {
		fmt.Fprintln(r.w, "  stack traceback:")
		for _, line := range strings.Split(e.Error.Traceback, "\n") {
			fmt.Fprintf(r.w, "    %s\n", line)
		}
	}
}

// Log prints an opaque diagnostic line from the child, gray to distinguish
// it from test results.
func (r *Renderer) Log(e *protocol.Log) {
	fmt.Fprintln(r.w, styleGray.Render(e.Text))
}

// TestCount prints the "found N tests" banner after a List pass.
func (r *Renderer) TestCount(n int) {
	fmt.Fprintf(r.w, "found %d tests\n", n)
}

// TestInfo prints one discovered test's title, for the list subcommand.
func (r *Renderer) TestInfo(e *protocol.TestInfo) {
	fmt.Fprintln(r.w, joinTitle(e.Title))
}

// Summary prints the per-profile success/error tally.
func (r *Renderer) Summary(success, errorCount int) {
	fmt.Fprintf(r.w, "success: %d, error: %d\n", success, errorCount)
}

// Separator prints the blank line the Driver emits between profiles.
func (r *Renderer) Separator() {
	fmt.Fprintln(r.w)
}

func (r *Renderer) renderDiff(info *protocol.TestErrorInfo) {
	for _, op := range lineDiff(info.Left, info.Right) {
		switch op.kind {
		case '-':
			fmt.Fprintln(r.w, styleRed.Render("-"+op.text))
		case '+':
			fmt.Fprintln(r.w, styleGreen.Render("+"+op.text))
		default:
			fmt.Fprintln(r.w, " "+op.text)
		}
	}
}

func joinTitle(segments []string) string {
	return strings.Join(segments, styleGray.Render(" :: "))
}
