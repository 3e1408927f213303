package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/hookspec/packages/core/definition"
	"github.com/abdul-hamid-achik/hookspec/packages/core/env"
	"github.com/abdul-hamid-achik/hookspec/packages/logging"
)

// runCase runs one case on its own branch of the suite scope. Case teardown
// hooks run whenever the case got past skip_if.
func (s *suiteRun) runCase(ctx context.Context, c *definition.Case) *CaseResult {
	start := time.Now()
	logger := logging.ForCase(s.logger, s.name(), c.Name())
	ctx = logging.NewContext(ctx, logger)

	res := &CaseResult{Name: c.Name()}
	defer func() {
		res.Duration = time.Since(start)
		logger.Info("case finished", "status", string(res.Status), "duration", res.Duration)
	}()

	scope := s.scope.Push(env.LayerCase)
	if err := s.renderVariables(ctx, c.Config.Variables, scope, env.LayerCase); err != nil {
		res.Error = fmt.Errorf("case variables: %w", err)
		res.finish()
		return res
	}

	if src := c.Config.SkipIf; src != "" {
		skip, err := s.conditions.eval(src, scope)
		if err != nil {
			res.Error = err
			res.finish()
			return res
		}
		if skip {
			*res = *skipCase(c, "skip_if: "+src)
			return res
		}
	}

	if err := s.runHooks(ctx, PhaseCaseSetup, c.Config.SetupHooks, scope, nil); err != nil {
		logger.Error("case setup failed", "error", err)
		res.Error = err
		for _, st := range c.Steps {
			res.Steps = append(res.Steps, skipStep(st, "case setup failed"))
		}
	} else {
		stopped := false
		for _, st := range c.Steps {
			if stopped {
				res.Steps = append(res.Steps, skipStep(st, "fail_fast: an earlier step did not pass"))
				continue
			}
			sr := s.runStep(ctx, c, st, scope)
			res.Steps = append(res.Steps, sr)
			if c.Config.FailFast && (sr.State == StateFailed || sr.State == StateErrored) {
				stopped = true
			}
		}
	}

	if err := s.runHooks(ctx, PhaseCaseTeardown, c.Config.TeardownHooks, scope, nil); err != nil {
		logger.Error("case teardown failed", "error", err)
		res.Error = errors.Join(res.Error, err)
	}

	res.finish()
	return res
}

func skipCase(c *definition.Case, reason string) *CaseResult {
	res := &CaseResult{Name: c.Name(), Status: StatusSkipped, SkipReason: reason}
	for _, st := range c.Steps {
		res.Steps = append(res.Steps, skipStep(st, reason))
	}
	return res
}

func skipStep(st *definition.Step, reason string) *StepResult {
	return &StepResult{
		Name:       st.Name,
		State:      StateSkipped,
		SkipReason: reason,
		Trace:      []Transition{{State: StateSkipped, At: time.Now()}},
	}
}
