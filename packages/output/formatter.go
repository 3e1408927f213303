package output

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/abdul-hamid-achik/hookspec/packages/core/runner"
)

// Formatter renders suite results as they complete.
type Formatter interface {
	FormatResult(result *runner.SuiteResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that write once every suite has run.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Options configure the formatter built by New.
type Options struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
}

var formatters = map[string]func(Options) Formatter{
	"console": func(o Options) Formatter {
		return NewConsoleFormatter(WithWriter(o.Writer), WithVerbose(o.Verbose), WithNoColor(o.NoColor))
	},
	"json": func(o Options) Formatter {
		return NewJSONFormatter(JSONWithWriter(o.Writer))
	},
	"junit": func(o Options) Formatter {
		return NewJUnitFormatter(JUnitWithWriter(o.Writer))
	},
	"tap": func(o Options) Formatter {
		return NewTAPFormatter(TAPWithWriter(o.Writer))
	},
}

// Names lists the formatter names New accepts.
func Names() []string {
	names := make([]string, 0, len(formatters))
	for name := range formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the formatter registered under name.
func New(name string, opts Options) (Formatter, error) {
	build, ok := formatters[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %v)", name, Names())
	}
	if opts.Writer == nil {
		return nil, fmt.Errorf("output format %q: writer is required", name)
	}
	return build(opts), nil
}

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	case map[string]string:
		return fmt.Sprintf("{map with %d entries}", len(val))
	case nil:
		return "null"
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

// failureLines describes the failed validations of a step.
func failureLines(step *runner.StepResult) []string {
	var lines []string
	for _, v := range step.Validations {
		if v.Passed {
			continue
		}
		line := fmt.Sprintf("%s %s: expected %s, got %s",
			v.Comparator, v.Check, formatValue(v.Expected, 100), formatValue(v.Actual, 100))
		if v.Message != "" {
			line += " (" + v.Message + ")"
		}
		lines = append(lines, line)
	}
	return lines
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
