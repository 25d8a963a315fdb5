package diagnostic

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Reporter accumulates diagnostics and prints them with severity-colored
// labels, the way a compiler front end reports a batch of issues at the
// end of a pass rather than interleaving them with progress output.
type Reporter struct {
	out         io.Writer
	diagnostics []Diagnostic

	errorLabel   *color.Color
	warningLabel *color.Color
	infoLabel    *color.Color
}

func NewReporter(out io.Writer) *Reporter {
	return &Reporter{
		out:          out,
		errorLabel:   color.New(color.FgRed, color.Bold),
		warningLabel: color.New(color.FgYellow, color.Bold),
		infoLabel:    color.New(color.FgCyan, color.Bold),
	}
}

func (r *Reporter) Report(d Diagnostic) {
	r.diagnostics = append(r.diagnostics, d)
}

// HasErrors reports whether any diagnostic reported so far is Error
// severity, the condition the CLI uses to decide its exit code.
func (r *Reporter) HasErrors() bool {
	for _, d := range r.diagnostics {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

func (r *Reporter) Diagnostics() []Diagnostic { return r.diagnostics }

// Flush prints every accumulated diagnostic and clears the buffer.
func (r *Reporter) Flush() {
	for _, d := range r.diagnostics {
		label := r.labelFor(d.Severity)
		label.Fprintf(r.out, "%s", d.Severity.String())
		fmt.Fprintf(r.out, ": %s", d.Message)
		if d.Location.File != "" {
			fmt.Fprintf(r.out, " (%s)", d.Location)
		}
		fmt.Fprintln(r.out)
	}
	r.diagnostics = nil
}

func (r *Reporter) labelFor(sev Severity) *color.Color {
	switch sev {
	case Error:
		return r.errorLabel
	case Warning:
		return r.warningLabel
	default:
		return r.infoLabel
	}
}
