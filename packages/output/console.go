package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hookspec/packages/core/runner"
	"github.com/fatih/color"
)

// ConsoleFormatter prints human-readable results.
type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool

	suites  int
	cases   runner.Counts
	steps   runner.Counts
	latency *Latency
}

// ConsoleOption configures a ConsoleFormatter.
type ConsoleOption func(*ConsoleFormatter)

// NewConsoleFormatter writes to stdout unless WithWriter says otherwise.
func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer:  os.Stdout,
		latency: NewLatency(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func statusSymbol(s runner.Status) string {
	switch s {
	case runner.StatusPassed:
		return green("✓")
	case runner.StatusFailed:
		return red("✗")
	case runner.StatusSkipped:
		return yellow("-")
	default:
		return red("x")
	}
}

func (f *ConsoleFormatter) FormatResult(result *runner.SuiteResult) {
	f.suites++
	f.cases = f.cases.Add(result.CaseCounts())
	f.steps = f.steps.Add(result.StepCounts())
	f.latency.RecordSuite(result)

	title := "Suite: " + result.Name
	if result.Path != "" {
		title += " (" + result.Path + ")"
	}
	fmt.Fprintf(f.writer, "\n%s\n\n", bold(title))

	if result.Error != nil {
		fmt.Fprintf(f.writer, "  %s %s\n", red("!"), red(result.Error.Error()))
	}

	for _, c := range result.Cases {
		f.formatCase(c)
	}

	fmt.Fprintf(f.writer, "\n")
	f.writeCounts("Cases", result.CaseCounts())
	f.writeCounts("Steps", result.StepCounts())
	fmt.Fprintf(f.writer, "Time:  %dms\n", result.Duration.Milliseconds())
}

func (f *ConsoleFormatter) formatCase(c *runner.CaseResult) {
	fmt.Fprintf(f.writer, "  %s %s", statusSymbol(c.Status), c.Name)
	switch {
	case c.Status == runner.StatusSkipped:
		if c.SkipReason != "" {
			fmt.Fprintf(f.writer, " (%s)", c.SkipReason)
		}
		fmt.Fprintf(f.writer, "\n")
		return
	case c.Error != nil:
		fmt.Fprintf(f.writer, " %s\n", red(fmt.Sprintf("(%v)", c.Error)))
	default:
		fmt.Fprintf(f.writer, " %s\n", cyan(fmt.Sprintf("(%dms)", c.Duration.Milliseconds())))
	}

	for _, s := range c.Steps {
		f.formatStep(s)
	}
}

func (f *ConsoleFormatter) formatStep(s *runner.StepResult) {
	status := s.Status()
	fmt.Fprintf(f.writer, "      %s %s", statusSymbol(status), s.Name)

	if status == runner.StatusSkipped {
		if s.SkipReason != "" {
			fmt.Fprintf(f.writer, " (%s)", s.SkipReason)
		}
		fmt.Fprintf(f.writer, "\n")
		return
	}
	if s.Response != nil {
		fmt.Fprintf(f.writer, " %d", s.Response.StatusCode)
	}
	fmt.Fprintf(f.writer, " %s\n", cyan(fmt.Sprintf("(%dms)", s.Duration.Milliseconds())))

	if f.verbose && s.Request != nil {
		fmt.Fprintf(f.writer, "        %s %s\n", s.Request.Method, s.Request.BuildURL())
	}

	switch status {
	case runner.StatusErrored:
		fmt.Fprintf(f.writer, "        %s %s\n", red("→"), red(errorString(s.Error)))
	case runner.StatusFailed:
		lines := failureLines(s)
		if len(lines) == 0 {
			lines = []string{errorString(s.Error)}
		}
		for _, line := range lines {
			fmt.Fprintf(f.writer, "        %s %s\n", red("→"), line)
		}
	}

	if f.verbose {
		if len(s.Extracted) > 0 {
			fmt.Fprintf(f.writer, "        Extracted:\n")
			for name, value := range s.Extracted {
				fmt.Fprintf(f.writer, "          %s = %s\n", name, formatValue(value, 100))
			}
		}
		states := make([]string, 0, len(s.Trace))
		for _, t := range s.Trace {
			states = append(states, t.State.String())
		}
		fmt.Fprintf(f.writer, "        Trace: %s\n", strings.Join(states, " → "))
	}
}

func (f *ConsoleFormatter) writeCounts(label string, c runner.Counts) {
	fmt.Fprintf(f.writer, "%s: ", label)
	if c.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", c.Passed)))
	}
	if c.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", c.Failed)))
	}
	if c.Errored > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d errored", c.Errored)))
	}
	if c.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", c.Skipped)))
	}
	fmt.Fprintf(f.writer, "%d total\n", c.Total())
}

func (f *ConsoleFormatter) FormatError(err error) {
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	fmt.Fprintf(f.writer, "%s %s\n", bold("hookspec"), version)
}

// Flush prints the totals of every formatted suite and the latency
// percentiles of their responses.
func (f *ConsoleFormatter) Flush(totalDuration time.Duration) error {
	if f.suites > 1 {
		fmt.Fprintf(f.writer, "\n%s\n", bold(fmt.Sprintf("Total (%d suites)", f.suites)))
		f.writeCounts("Cases", f.cases)
		f.writeCounts("Steps", f.steps)
	}
	if lat := f.latency.Summary(); lat.Count > 0 {
		fmt.Fprintf(f.writer, "Latency: p50 %s  p95 %s  p99 %s  max %s\n",
			roundMs(lat.P50), roundMs(lat.P95), roundMs(lat.P99), roundMs(lat.Max))
	}
	fmt.Fprintf(f.writer, "Time:  %dms\n\n", totalDuration.Milliseconds())
	return nil
}

func roundMs(d time.Duration) time.Duration {
	if d < time.Millisecond {
		return d.Round(time.Microsecond)
	}
	return d.Round(100 * time.Microsecond)
}
