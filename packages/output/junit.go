package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hookspec/packages/core/runner"
)

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite is one suite file.
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	SystemErr string          `xml:"system-err,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase is one step; its class name is the suite and case.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitFormatter formats test results as JUnit XML
type JUnitFormatter struct {
	writer     io.Writer
	testSuites []JUnitTestSuite
}

// JUnitOption configures a JUnitFormatter.
type JUnitOption func(*JUnitFormatter)

// NewJUnitFormatter returns a formatter writing JUnit XML.
func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer:     os.Stdout,
		testSuites: make([]JUnitTestSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

func (f *JUnitFormatter) FormatResult(result *runner.SuiteResult) {
	counts := result.StepCounts()
	suite := JUnitTestSuite{
		Name:      result.Name,
		Tests:     counts.Total(),
		Failures:  counts.Failed,
		Errors:    counts.Errored,
		Skipped:   counts.Skipped,
		Time:      result.Duration.Seconds(),
		Timestamp: time.Now().Format(time.RFC3339),
		SystemErr: errorString(result.Error),
	}

	for _, c := range result.Cases {
		className := result.Name + "." + c.Name
		for _, s := range c.Steps {
			suite.TestCases = append(suite.TestCases, junitCase(className, s))
		}
		if c.Error != nil {
			// case hook failures have no step to hang on
			suite.Tests++
			suite.Errors++
			suite.TestCases = append(suite.TestCases, JUnitTestCase{
				Name:      "hooks",
				ClassName: className,
				Error:     &JUnitError{Message: c.Error.Error(), Type: "HookError"},
			})
		}
	}

	f.testSuites = append(f.testSuites, suite)
}

func junitCase(className string, s *runner.StepResult) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      s.Name,
		ClassName: className,
		Time:      s.Duration.Seconds(),
	}

	switch s.State {
	case runner.StateSkipped:
		tc.Skipped = &JUnitSkipped{Message: s.SkipReason}
	case runner.StateFailed:
		tc.Failure = &JUnitFailure{
			Message: errorString(s.Error),
			Type:    "AssertionError",
			Content: strings.Join(failureLines(s), "\n"),
		}
	case runner.StatePassed:
	default:
		tc.Error = &JUnitError{
			Message: errorString(s.Error),
			Type:    "Error",
		}
	}
	return tc
}

func (f *JUnitFormatter) FormatError(err error) {
	// Errors are included in individual test cases
}

func (f *JUnitFormatter) FormatHeader(version string) {
	// No header needed for JUnit XML
}

// Flush writes the accumulated JUnit XML output
func (f *JUnitFormatter) Flush(totalDuration time.Duration) error {
	var totalTests, totalFailures, totalErrors, totalSkipped int
	for _, suite := range f.testSuites {
		totalTests += suite.Tests
		totalFailures += suite.Failures
		totalErrors += suite.Errors
		totalSkipped += suite.Skipped
	}

	suites := JUnitTestSuites{
		Name:       "hookspec",
		Tests:      totalTests,
		Failures:   totalFailures,
		Errors:     totalErrors,
		Skipped:    totalSkipped,
		Time:       totalDuration.Seconds(),
		Timestamp:  time.Now().Format(time.RFC3339),
		TestSuites: f.testSuites,
	}

	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	if err := encoder.Encode(suites); err != nil {
		return err
	}
	_, err := fmt.Fprintln(f.writer)
	return err
}
