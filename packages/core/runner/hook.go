package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/hookspec/packages/core/env"
	"github.com/abdul-hamid-achik/hookspec/packages/core/parser"
	"github.com/abdul-hamid-achik/hookspec/packages/logging"
)

// Phase names the lifecycle point a hook runs at.
type Phase int

const (
	PhaseSuiteSetup Phase = iota
	PhaseSuiteTeardown
	PhaseCaseSetup
	PhaseCaseTeardown
	PhaseStepSetup
	PhaseStepTeardown
)

func (p Phase) String() string {
	switch p {
	case PhaseSuiteSetup:
		return "suite-setup"
	case PhaseSuiteTeardown:
		return "suite-teardown"
	case PhaseCaseSetup:
		return "case-setup"
	case PhaseCaseTeardown:
		return "case-teardown"
	case PhaseStepSetup:
		return "step-setup"
	case PhaseStepTeardown:
		return "step-teardown"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Layer is the scope layer hook results of this phase merge into.
func (p Phase) Layer() env.Layer {
	switch p {
	case PhaseSuiteSetup, PhaseSuiteTeardown:
		return env.LayerSuite
	case PhaseCaseSetup, PhaseCaseTeardown:
		return env.LayerCase
	default:
		return env.LayerStep
	}
}

// Hook is a parsed hook declaration.
type Hook struct {
	Phase  Phase
	Source string
	Call   *parser.Call
}

// ParseHook parses src, which must be a template consisting of exactly one
// function call.
func ParseHook(phase Phase, src string) (*Hook, error) {
	return parseHook(nil, phase, src)
}

func parseHook(cache *parser.Cache, phase Phase, src string) (*Hook, error) {
	var (
		tmpl *parser.Template
		err  error
	)
	if cache != nil {
		tmpl, err = cache.Parse(src)
	} else {
		tmpl, err = parser.ParseTemplate(src)
	}
	if err != nil {
		return nil, err
	}

	call, ok := tmpl.Expression().(*parser.Call)
	if !ok {
		return nil, &parser.SyntaxError{
			Source:  src,
			Message: "hook must be a single ${function(...)} call",
		}
	}
	return &Hook{Phase: phase, Source: src, Call: call}, nil
}

// runHooks invokes the hooks of one phase in order. Each mapping result is
// merged into the phase's layer before the next hook runs.
func (r *Runner) runHooks(ctx context.Context, phase Phase, sources []string, scope *env.Scope, extra map[string]any) error {
	logger := logging.FromContext(ctx, r.logger)

	for i, src := range sources {
		hook, err := parseHook(r.cache, phase, src)
		if err != nil {
			return fmt.Errorf("%s hook #%d: %w", phase, i+1, err)
		}

		start := time.Now()
		out, err := r.evaluator.Invoke(ctx, hook.Call, scope, extra)
		if err != nil {
			logger.Debug("hook failed", "phase", phase.String(), logging.KeyHook, hook.Call.Name, "error", err)
			return fmt.Errorf("%s hook %s: %w", phase, hook.Call.Name, err)
		}

		merged, err := mergeHookResult(scope, phase.Layer(), out)
		if err != nil {
			return fmt.Errorf("%s hook %s: %w", phase, hook.Call.Name, err)
		}
		logger.Debug("hook completed",
			"phase", phase.String(),
			logging.KeyHook, hook.Call.Name,
			"merged", merged,
			"duration", time.Since(start),
		)
	}
	return nil
}

// mergeHookResult merges a mapping result into layer and reports how many
// variables were written. Other results are ignored.
func mergeHookResult(scope *env.Scope, layer env.Layer, out any) (int, error) {
	var vars map[string]any
	switch v := out.(type) {
	case map[string]any:
		vars = v
	case map[string]string:
		vars = make(map[string]any, len(v))
		for k, s := range v {
			vars[k] = s
		}
	default:
		return 0, nil
	}
	if len(vars) == 0 {
		return 0, nil
	}
	return len(vars), scope.Merge(layer, vars)
}
