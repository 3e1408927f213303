package runner

import (
	"time"

	"github.com/abdul-hamid-achik/hookspec/packages/assertions"
	"github.com/abdul-hamid-achik/hookspec/packages/core/errs"
	"github.com/abdul-hamid-achik/hookspec/packages/http"
)

// Status is the outcome of a step, case or suite.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusErrored Status = "errored"
	StatusSkipped Status = "skipped"
)

// statusOf classifies a non-nil error. A joined error counts as failed only
// when every error in it is an assertion.
func statusOf(err error) Status {
	if onlyAssertions(err) {
		return StatusFailed
	}
	return StatusErrored
}

func onlyAssertions(err error) bool {
	switch e := err.(type) {
	case errs.Kinded:
		return e.Kind() == errs.KindAssertion
	case interface{ Unwrap() []error }:
		inner := e.Unwrap()
		for _, ie := range inner {
			if !onlyAssertions(ie) {
				return false
			}
		}
		return len(inner) > 0
	case interface{ Unwrap() error }:
		if inner := e.Unwrap(); inner != nil {
			return onlyAssertions(inner)
		}
	}
	return false
}

// SuiteResult collects the case results of one suite run.
type SuiteResult struct {
	Name     string        `json:"name"`
	Path     string        `json:"path,omitempty"`
	Cases    []*CaseResult `json:"cases"`
	Duration time.Duration `json:"duration"`

	// Error holds a suite setup or teardown failure.
	Error error `json:"-"`
}

// Status reports errored when suite hooks failed, otherwise the worst case
// status.
func (r *SuiteResult) Status() Status {
	if r.Error != nil {
		return StatusErrored
	}
	return worst(len(r.Cases), func(i int) Status { return r.Cases[i].Status })
}

// Counts tallies cases by status.
type Counts struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Skipped int `json:"skipped"`
}

func (c *Counts) add(s Status) {
	switch s {
	case StatusPassed:
		c.Passed++
	case StatusFailed:
		c.Failed++
	case StatusErrored:
		c.Errored++
	case StatusSkipped:
		c.Skipped++
	}
}

// Total returns the number of entries counted.
func (c Counts) Total() int {
	return c.Passed + c.Failed + c.Errored + c.Skipped
}

// Add returns the sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{
		Passed:  c.Passed + o.Passed,
		Failed:  c.Failed + o.Failed,
		Errored: c.Errored + o.Errored,
		Skipped: c.Skipped + o.Skipped,
	}
}

// CaseCounts tallies case statuses.
func (r *SuiteResult) CaseCounts() Counts {
	var c Counts
	for _, cr := range r.Cases {
		c.add(cr.Status)
	}
	return c
}

// StepCounts tallies step statuses over all cases.
func (r *SuiteResult) StepCounts() Counts {
	var c Counts
	for _, cr := range r.Cases {
		for _, sr := range cr.Steps {
			c.add(sr.Status())
		}
	}
	return c
}

// CaseResult is the outcome of one case.
type CaseResult struct {
	Name       string        `json:"name"`
	Status     Status        `json:"status"`
	SkipReason string        `json:"skip_reason,omitempty"`
	Steps      []*StepResult `json:"steps"`
	Duration   time.Duration `json:"duration"`

	// Error holds a case hook or skip_if failure.
	Error error `json:"-"`
}

func (r *CaseResult) finish() {
	if r.Error != nil {
		r.Status = statusOf(r.Error)
		return
	}
	r.Status = worst(len(r.Steps), func(i int) Status { return r.Steps[i].Status() })
}

// StepResult records a step: its state trace, request, response and validations.
type StepResult struct {
	Name        string               `json:"name"`
	State       State                `json:"state"`
	SkipReason  string               `json:"skip_reason,omitempty"`
	Trace       []Transition         `json:"trace"`
	Request     *http.Request        `json:"request,omitempty"`
	Response    *http.Response       `json:"response,omitempty"`
	Validations []*assertions.Result `json:"validations,omitempty"`
	Extracted   map[string]any       `json:"extracted,omitempty"`
	Duration    time.Duration        `json:"duration"`
	Error       error                `json:"-"`
}

// Status maps the final state to a Status. A step stuck mid-lifecycle counts as errored.
func (r *StepResult) Status() Status {
	if !r.State.Terminal() {
		return StatusErrored
	}
	return r.State.Status()
}

// Passed reports whether every validation of the step passed.
func (r *StepResult) Passed() bool {
	return r.State == StatePassed
}

// worst folds statuses: errored beats failed beats passed. All skipped (or
// nothing at all) yields skipped.
func worst(n int, status func(int) Status) Status {
	out := StatusSkipped
	for i := 0; i < n; i++ {
		switch s := status(i); s {
		case StatusErrored:
			return StatusErrored
		case StatusFailed:
			out = StatusFailed
		case StatusPassed:
			if out == StatusSkipped {
				out = StatusPassed
			}
		}
	}
	return out
}
