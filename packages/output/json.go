package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hookspec/packages/assertions"
	"github.com/abdul-hamid-achik/hookspec/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary    `json:"summary"`
	Latency  LatencySummary `json:"latency"`
	Suites   []JSONSuite    `json:"suites"`
	Duration float64        `json:"duration"`
	Time     string         `json:"time"`
}

// JSONSummary totals every suite written.
type JSONSummary struct {
	Suites int           `json:"suites"`
	Cases  runner.Counts `json:"cases"`
	Steps  runner.Counts `json:"steps"`
}

type JSONSuite struct {
	Name     string     `json:"name"`
	File     string     `json:"file,omitempty"`
	Status   string     `json:"status"`
	Error    string     `json:"error,omitempty"`
	Duration float64    `json:"duration"`
	Cases    []JSONCase `json:"cases"`
}

type JSONCase struct {
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	SkipReason string     `json:"skipReason,omitempty"`
	Error      string     `json:"error,omitempty"`
	Duration   float64    `json:"duration"`
	Steps      []JSONStep `json:"steps"`
}

type JSONStep struct {
	Name        string               `json:"name"`
	State       string               `json:"state"`
	SkipReason  string               `json:"skipReason,omitempty"`
	Error       string               `json:"error,omitempty"`
	Duration    float64              `json:"duration"`
	Trace       []string             `json:"trace,omitempty"`
	Request     *JSONRequest         `json:"request,omitempty"`
	Response    *JSONResponse        `json:"response,omitempty"`
	Validations []*assertions.Result `json:"validations,omitempty"`
	Extracted   map[string]any       `json:"extracted,omitempty"`
}

// JSONRequest represents request details
type JSONRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// JSONResponse represents response details
type JSONResponse struct {
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Duration   float64           `json:"duration"`
}

// JSONFormatter formats test results as JSON
type JSONFormatter struct {
	writer  io.Writer
	suites  []JSONSuite
	summary JSONSummary
	latency *Latency
}

// JSONOption configures a JSONFormatter.
type JSONOption func(*JSONFormatter)

// NewJSONFormatter returns a formatter that writes one document on Flush.
func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:  os.Stdout,
		suites:  make([]JSONSuite, 0),
		latency: NewLatency(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func (f *JSONFormatter) FormatResult(result *runner.SuiteResult) {
	f.summary.Suites++
	f.summary.Cases = f.summary.Cases.Add(result.CaseCounts())
	f.summary.Steps = f.summary.Steps.Add(result.StepCounts())
	f.latency.RecordSuite(result)

	suite := JSONSuite{
		Name:     result.Name,
		File:     result.Path,
		Status:   string(result.Status()),
		Error:    errorString(result.Error),
		Duration: ms(result.Duration),
		Cases:    make([]JSONCase, 0, len(result.Cases)),
	}

	for _, c := range result.Cases {
		jc := JSONCase{
			Name:       c.Name,
			Status:     string(c.Status),
			SkipReason: c.SkipReason,
			Error:      errorString(c.Error),
			Duration:   ms(c.Duration),
			Steps:      make([]JSONStep, 0, len(c.Steps)),
		}
		for _, s := range c.Steps {
			jc.Steps = append(jc.Steps, jsonStep(s))
		}
		suite.Cases = append(suite.Cases, jc)
	}

	f.suites = append(f.suites, suite)
}

func jsonStep(s *runner.StepResult) JSONStep {
	step := JSONStep{
		Name:        s.Name,
		State:       s.State.String(),
		SkipReason:  s.SkipReason,
		Error:       errorString(s.Error),
		Duration:    ms(s.Duration),
		Validations: s.Validations,
		Extracted:   s.Extracted,
	}
	for _, t := range s.Trace {
		step.Trace = append(step.Trace, t.State.String())
	}

	if s.Request != nil {
		step.Request = &JSONRequest{
			Method:  s.Request.Method,
			URL:     s.Request.BuildURL(),
			Headers: s.Request.Headers,
		}
	}
	if s.Response != nil {
		step.Response = &JSONResponse{
			StatusCode: s.Response.StatusCode,
			Status:     s.Response.Status,
			Headers:    s.Response.Headers,
			Duration:   ms(s.Response.Duration),
		}
	}
	return step
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual results
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	output := JSONOutput{
		Summary:  f.summary,
		Latency:  f.latency.Summary(),
		Suites:   f.suites,
		Duration: ms(totalDuration),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
