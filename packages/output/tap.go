package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hookspec/packages/core/runner"
)

// TAPFormatter writes one TAP test point per case.
type TAPFormatter struct {
	writer  io.Writer
	results []tapResult
}

type tapResult struct {
	name       string
	status     runner.Status
	skipReason string
	errors     []string
	failures   []string
}

// TAPOption configures a TAPFormatter.
type TAPOption func(*TAPFormatter)

// NewTAPFormatter returns a formatter writing TAP version 13.
func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatResult(result *runner.SuiteResult) {
	for _, c := range result.Cases {
		tr := tapResult{
			name:       result.Name + " / " + c.Name,
			status:     c.Status,
			skipReason: c.SkipReason,
		}
		if c.Error != nil {
			tr.errors = append(tr.errors, c.Error.Error())
		}
		for _, s := range c.Steps {
			switch s.State {
			case runner.StateErrored:
				tr.errors = append(tr.errors, s.Name+": "+errorString(s.Error))
			case runner.StateFailed:
				for _, line := range failureLines(s) {
					tr.failures = append(tr.failures, s.Name+": "+line)
				}
				if len(s.Validations) == 0 {
					tr.failures = append(tr.failures, s.Name+": "+errorString(s.Error))
				}
			}
		}
		f.results = append(f.results, tr)
	}
}

func (f *TAPFormatter) FormatError(err error) {
	// Errors are included in individual test results
}

func (f *TAPFormatter) FormatHeader(version string) {
	// Header is written in Flush
}

// Flush writes the accumulated TAP output
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", len(f.results))

	for i, r := range f.results {
		n := i + 1
		switch r.status {
		case runner.StatusSkipped:
			reason := r.skipReason
			if reason == "" {
				reason = "skipped"
			}
			fmt.Fprintf(f.writer, "ok %d - %s # SKIP %s\n", n, r.name, reason)
		case runner.StatusPassed:
			fmt.Fprintf(f.writer, "ok %d - %s\n", n, r.name)
		default:
			fmt.Fprintf(f.writer, "not ok %d - %s\n", n, r.name)
			fmt.Fprintf(f.writer, "  ---\n")
			fmt.Fprintf(f.writer, "  severity: %s\n", r.status)
			if len(r.errors) > 0 {
				fmt.Fprintf(f.writer, "  errors:\n")
				for _, e := range r.errors {
					fmt.Fprintf(f.writer, "    - %s\n", escapeYAML(e))
				}
			}
			if len(r.failures) > 0 {
				fmt.Fprintf(f.writer, "  failures:\n")
				for _, a := range r.failures {
					fmt.Fprintf(f.writer, "    - %s\n", escapeYAML(a))
				}
			}
			fmt.Fprintf(f.writer, "  ...\n")
		}
	}

	fmt.Fprintf(f.writer, "# time %dms\n", totalDuration.Milliseconds())
	return nil
}

func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		return "\"" + s + "\""
	}
	return s
}
