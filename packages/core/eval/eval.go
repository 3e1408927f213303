package eval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abdul-hamid-achik/hookspec/packages/builtin"
	"github.com/abdul-hamid-achik/hookspec/packages/core/env"
	"github.com/abdul-hamid-achik/hookspec/packages/core/errs"
	"github.com/abdul-hamid-achik/hookspec/packages/core/parser"
	"github.com/abdul-hamid-achik/hookspec/packages/logging"
)

// Evaluator renders templates. It is safe for concurrent use.
type Evaluator struct {
	registry *builtin.Registry
	cache    *parser.Cache
	logger   *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCache shares a template cache between evaluators.
func WithCache(cache *parser.Cache) Option {
	return func(e *Evaluator) {
		e.cache = cache
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// New returns an Evaluator resolving calls against registry.
func New(registry *builtin.Registry, opts ...Option) *Evaluator {
	e := &Evaluator{
		registry: registry,
		cache:    parser.NewCache(),
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the function registry.
func (e *Evaluator) Registry() *builtin.Registry {
	return e.registry
}

// state is the per-evaluation environment.
type state struct {
	scope  *env.Scope
	extra  map[string]any
	logger *slog.Logger
}

func (e *Evaluator) newState(ctx context.Context, scope *env.Scope, extra map[string]any) *state {
	return &state{
		scope:  scope,
		extra:  extra,
		logger: logging.FromContext(ctx, e.logger),
	}
}

// Evaluate computes the value of node in scope.
func (e *Evaluator) Evaluate(ctx context.Context, node parser.Node, scope *env.Scope) (any, error) {
	return e.eval(ctx, node, e.newState(ctx, scope, nil))
}

// Render parses src through the cache and evaluates it.
func (e *Evaluator) Render(ctx context.Context, src string, scope *env.Scope) (any, error) {
	tmpl, err := e.cache.Parse(src)
	if err != nil {
		return nil, err
	}
	return e.eval(ctx, tmpl, e.newState(ctx, scope, nil))
}

// RenderString renders src and stringifies the result.
func (e *Evaluator) RenderString(ctx context.Context, src string, scope *env.Scope) (string, error) {
	v, err := e.Render(ctx, src, scope)
	if err != nil {
		return "", err
	}
	return Stringify(v), nil
}

// RenderValue renders every string leaf of v, walking maps and slices.
// Other values are returned unchanged.
func (e *Evaluator) RenderValue(ctx context.Context, v any, scope *env.Scope) (any, error) {
	switch v := v.(type) {
	case string:
		return e.Render(ctx, v, scope)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			rendered, err := e.RenderValue(ctx, item, scope)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = rendered
		}
		return out, nil
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, item := range v {
			rendered, err := e.RenderString(ctx, item, scope)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = rendered
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			rendered, err := e.RenderValue(ctx, item, scope)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = rendered
		}
		return out, nil
	default:
		return v, nil
	}
}

// Invoke evaluates a hook call. Entries of extra (such as "request" or
// "response") shadow scope variables of the same name for this call.
func (e *Evaluator) Invoke(ctx context.Context, call *parser.Call, scope *env.Scope, extra map[string]any) (any, error) {
	return e.evalCall(ctx, call, e.newState(ctx, scope, extra))
}

// UnknownFunctions lists functions called in node that are not registered.
func (e *Evaluator) UnknownFunctions(node parser.Node) []string {
	var missing []string
	seen := make(map[string]bool)
	for _, name := range parser.Calls(node) {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := e.registry.Lookup(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func (e *Evaluator) eval(ctx context.Context, node parser.Node, st *state) (any, error) {
	switch n := node.(type) {
	case *parser.Literal:
		return n.Value, nil
	case *parser.VarRef:
		return e.evalRef(n, st)
	case *parser.Call:
		return e.evalCall(ctx, n, st)
	case *parser.Template:
		return e.evalTemplate(ctx, n, st)
	default:
		return nil, fmt.Errorf("unsupported node %T", node)
	}
}

func (e *Evaluator) evalRef(n *parser.VarRef, st *state) (any, error) {
	if root, ok := st.extra[n.Path[0]]; ok {
		if len(n.Path) == 1 {
			return root, nil
		}
		v, err := env.Walk(root, n.Path[1:])
		if err != nil {
			perr := err.(*env.PathResolutionError)
			perr.Path = n.Path
			return nil, perr
		}
		return v, nil
	}
	if st.scope == nil {
		return nil, &env.UndefinedVariableError{Name: n.Path[0]}
	}
	return st.scope.LookupPath(n.Path)
}

func (e *Evaluator) evalTemplate(ctx context.Context, n *parser.Template, st *state) (any, error) {
	if n.IsSingle() {
		return e.eval(ctx, n.Segments[0], st)
	}

	var sb strings.Builder
	for _, seg := range n.Segments {
		v, err := e.eval(ctx, seg, st)
		if err != nil {
			return nil, err
		}
		sb.WriteString(Stringify(v))
	}
	return sb.String(), nil
}

func (e *Evaluator) evalCall(ctx context.Context, n *parser.Call, st *state) (any, error) {
	args := make([]any, 0, len(n.Args))
	for _, a := range n.Args {
		v, err := e.eval(ctx, a, st)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	kwargs := make([]builtin.Kwarg, 0, len(n.Kwargs))
	for _, kw := range n.Kwargs {
		v, err := e.eval(ctx, kw.Value, st)
		if err != nil {
			return nil, err
		}
		kwargs = append(kwargs, builtin.Kwarg{Name: kw.Name, Value: v})
	}

	fn, ok := e.registry.Lookup(n.Name)
	if !ok {
		return nil, &UnknownFunctionError{Name: n.Name, Offset: n.Offset}
	}

	bound, err := builtin.Bind(fn, args, kwargs)
	if err != nil {
		return nil, err
	}

	return e.invoke(ctx, fn, bound, st)
}

func (e *Evaluator) invoke(ctx context.Context, fn *builtin.Function, bound map[string]any, st *state) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &CallError{Function: fn.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	var vars, envView builtin.Variables
	if st.scope != nil {
		vars = st.scope.View()
		envView = st.scope.EnvView()
	}

	call := builtin.NewCall(ctx, fn, bound,
		builtin.WithLogger(st.logger),
		builtin.WithVariables(vars),
		builtin.WithEnv(envView),
	)

	result, err = call.Invoke()
	if err != nil {
		if errs.KindOf(err) != errs.KindExternal {
			return nil, err
		}
		return nil, &CallError{Function: fn.Name, Err: err}
	}
	return result, nil
}

// Stringify renders a value for interpolation: nil becomes the empty string
// and maps and slices are encoded as JSON.
func Stringify(v any) string {
	return builtin.ToString(v)
}
