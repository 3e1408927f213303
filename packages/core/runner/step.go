package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hookspec/packages/assertions"
	"github.com/abdul-hamid-achik/hookspec/packages/builtin"
	"github.com/abdul-hamid-achik/hookspec/packages/capture"
	"github.com/abdul-hamid-achik/hookspec/packages/core/definition"
	"github.com/abdul-hamid-achik/hookspec/packages/core/env"
	"github.com/abdul-hamid-achik/hookspec/packages/core/errs"
	"github.com/abdul-hamid-achik/hookspec/packages/http"
	"github.com/abdul-hamid-achik/hookspec/packages/logging"
)

// Names the request and response records are bound to in the step layer.
const (
	VarRequest  = "request"
	VarResponse = "response"
)

func (s *suiteRun) runStep(ctx context.Context, c *definition.Case, st *definition.Step, caseScope *env.Scope) *StepResult {
	start := time.Now()
	logger := logging.ForStep(s.logger, s.name(), c.Name(), st.Name)
	ctx = logging.NewContext(ctx, logger)

	res := &StepResult{Name: st.Name}
	res.transition(logger, StatePending)
	defer func() {
		res.Duration = time.Since(start)
	}()

	scope := caseScope.Push(env.LayerStep)
	if err := s.renderVariables(ctx, st.Variables, scope, env.LayerStep); err != nil {
		s.finishStep(ctx, res, fmt.Errorf("step variables: %w", err))
		return res
	}

	if st.SkipIf != "" {
		skip, err := s.conditions.eval(st.SkipIf, scope)
		if err != nil {
			s.finishStep(ctx, res, err)
			return res
		}
		if skip {
			res.SkipReason = "skip_if: " + st.SkipIf
			res.transition(logger, StateSkipped)
			return res
		}
	}

	timeout := st.Timeout.Std()
	if timeout <= 0 {
		timeout = s.config.StepTimeout
	}
	stepCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := s.execStep(stepCtx, st, scope, res, timeout)
	if err != nil && timeout > 0 && errors.Is(stepCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("step timed out after %s: %w", timeout, err)
		res.Error = err
		res.transition(logger, StateErrored)
		logger.Warn("step timed out", "timeout", timeout)
		return res
	}
	s.finishStep(ctx, res, err)
	return res
}

func (s *suiteRun) finishStep(ctx context.Context, res *StepResult, err error) {
	logger := logging.FromContext(ctx, s.logger)
	switch {
	case err == nil:
		res.transition(logger, StatePassed)
	case statusOf(err) == StatusFailed:
		res.Error = err
		res.transition(logger, StateFailed)
		logger.Info("step failed", "error", err)
	default:
		res.Error = err
		res.transition(logger, StateErrored)
		logger.Error("step errored", "kind", errs.KindOf(err).String(), "error", err)
	}
}

// execStep moves a step from SETUP through VALIDATE. Extracted values are
// merged into the case layer so later steps of the case see them.
func (s *suiteRun) execStep(ctx context.Context, st *definition.Step, scope *env.Scope, res *StepResult, timeout time.Duration) error {
	logger := logging.FromContext(ctx, s.logger)

	res.transition(logger, StateSetup)
	req, err := s.buildRequest(ctx, st.Request, scope, timeout)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	res.Request = req
	if err := scope.Set(env.LayerStep, VarRequest, req); err != nil {
		return err
	}
	extra := map[string]any{VarRequest: req}
	if err := s.runHooks(ctx, PhaseStepSetup, st.SetupHooks, scope, extra); err != nil {
		return err
	}

	res.transition(logger, StateSending)
	resp, err := s.sender.Send(ctx, req)
	if err != nil {
		return err
	}
	if resp == nil {
		return errs.External(req.Method+" "+req.URL, errors.New("sender returned no response"))
	}
	res.Response = resp

	res.transition(logger, StateReceived)
	logger.Debug("response received", "status", resp.StatusCode, "duration", resp.Duration)
	if err := scope.Set(env.LayerStep, VarResponse, resp); err != nil {
		return err
	}

	res.transition(logger, StateTeardown)
	extra[VarResponse] = resp
	if err := s.runHooks(ctx, PhaseStepTeardown, st.TeardownHooks, scope, extra); err != nil {
		return err
	}

	if len(st.Extract) > 0 {
		values, err := capture.ExtractAll(resp, st.Extract)
		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}
		if err := scope.Merge(env.LayerCase, values); err != nil {
			return fmt.Errorf("extract: %w", err)
		}
		res.Extracted = values
	}

	res.transition(logger, StateValidate)
	return s.validate(ctx, st, scope, resp, res)
}

// buildRequest renders the request template of a step.
func (s *suiteRun) buildRequest(ctx context.Context, def definition.Request, scope *env.Scope, timeout time.Duration) (*http.Request, error) {
	method, err := s.evaluator.RenderString(ctx, def.Method, scope)
	if err != nil {
		return nil, fmt.Errorf("method: %w", err)
	}
	target, err := s.evaluator.RenderString(ctx, def.Target(), scope)
	if err != nil {
		return nil, fmt.Errorf("url: %w", err)
	}

	req := http.NewRequest(method, http.JoinURL(s.baseURL, target))
	req.SetTimeout(timeout)

	for k, v := range def.Headers {
		out, err := s.evaluator.RenderValue(ctx, v, scope)
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", k, err)
		}
		req.SetHeader(k, builtin.ToString(out))
	}
	for k, v := range def.Params {
		out, err := s.evaluator.RenderValue(ctx, v, scope)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", k, err)
		}
		req.SetQueryParam(k, builtin.ToString(out))
	}
	if def.Body != nil {
		body, err := s.evaluator.RenderValue(ctx, def.Body, scope)
		if err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
		req.SetBody(body)
	}
	return req, nil
}

// validate runs every validation of the step. Any mismatch makes the step
// fail; an error that is not an assertion makes it error.
func (s *suiteRun) validate(ctx context.Context, st *definition.Step, scope *env.Scope, resp *http.Response, res *StepResult) error {
	ev := assertions.NewEvaluator(resp, assertions.WithBaseDir(s.baseDir))

	var (
		failed  int
		errored error
	)
	for _, v := range st.Validate {
		result, err := s.check(ctx, ev, v, scope)
		if err != nil {
			if !errs.IsAssertion(err) {
				errored = errors.Join(errored, fmt.Errorf("%s %s: %w", v.Comparator, v.Check, err))
			}
			result = &assertions.Result{
				Check:      v.Check,
				Comparator: v.Comparator,
				Expected:   v.Expected,
				Message:    err.Error(),
			}
		}
		res.Validations = append(res.Validations, result)
		if !result.Passed {
			failed++
		}
	}

	if errored != nil {
		return errored
	}
	if failed > 0 {
		return errs.Assertf("%d of %d validations failed", failed, len(st.Validate))
	}
	return nil
}

func (s *suiteRun) check(ctx context.Context, ev *assertions.Evaluator, v definition.Validation, scope *env.Scope) (*assertions.Result, error) {
	op, err := assertions.ParseComparator(v.Comparator)
	if err != nil {
		return nil, err
	}
	expected, err := s.evaluator.RenderValue(ctx, v.Expected, scope)
	if err != nil {
		return nil, fmt.Errorf("expected: %w", err)
	}
	validation := assertions.Validation{Comparator: op, Check: v.Check, Expected: expected}

	if src, ok := checkTemplate(v.Check); ok {
		actual, err := s.evaluator.Render(ctx, src, scope)
		if err != nil {
			return nil, fmt.Errorf("check: %w", err)
		}
		return ev.Compare(validation, actual), nil
	}
	return ev.Evaluate(validation), nil
}

// checkTemplate reports whether a check is a template rather than a response
// path. A bare $name refers to a variable; $.path stays a body path.
func checkTemplate(check string) (string, bool) {
	if strings.Contains(check, "${") {
		return check, true
	}
	if len(check) > 1 && check[0] == '$' && check[1] != '.' && check[1] != '[' {
		return "${" + check + "}", true
	}
	return "", false
}
