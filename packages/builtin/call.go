package builtin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abdul-hamid-achik/hookspec/packages/logging"
)

// Variables is a read-only view of the variables visible to a call.
type Variables interface {
	Get(name string) (any, bool)
	Lookup(path string) (any, error)
	Map() map[string]any
}

type noVariables struct{}

func (noVariables) Get(string) (any, bool) { return nil, false }
func (noVariables) Lookup(path string) (any, error) {
	return nil, fmt.Errorf("undefined variable %q", path)
}
func (noVariables) Map() map[string]any { return map[string]any{} }

// Call is handed to a Func for one invocation.
type Call struct {
	fn     *Function
	ctx    context.Context
	args   map[string]any
	logger *slog.Logger
	vars   Variables
	env    Variables
}

// CallOption configures a Call.
type CallOption func(*Call)

// WithLogger sets the logger handed to the function. A nil logger is ignored.
func WithLogger(logger *slog.Logger) CallOption {
	return func(c *Call) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithVariables exposes the template scope to the function.
func WithVariables(vars Variables) CallOption {
	return func(c *Call) {
		if vars != nil {
			c.vars = vars
		}
	}
}

// WithEnv exposes the environment variables to the function.
func WithEnv(env Variables) CallOption {
	return func(c *Call) {
		if env != nil {
			c.env = env
		}
	}
}

// NewCall prepares an invocation of fn with already bound arguments.
func NewCall(ctx context.Context, fn *Function, args map[string]any, opts ...CallOption) *Call {
	if ctx == nil {
		ctx = context.Background()
	}
	if args == nil {
		args = map[string]any{}
	}
	c := &Call{
		fn:     fn,
		ctx:    ctx,
		args:   args,
		logger: logging.Nop(),
		vars:   noVariables{},
		env:    noVariables{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke runs fn against the call.
func (c *Call) Invoke() (any, error) {
	return c.fn.Fn(c)
}

// Accessors for the running call.
func (c *Call) Name() string             { return c.fn.Name }
func (c *Call) Context() context.Context { return c.ctx }
func (c *Call) Logger() *slog.Logger     { return c.logger }
func (c *Call) Variables() Variables     { return c.vars }
func (c *Call) Env() Variables           { return c.env }
func (c *Call) Value(name string) any    { return c.args[name] }

// Has reports whether name is bound to a non-nil value.
func (c *Call) Has(name string) bool {
	return c.args[name] != nil
}

// String returns the bound value rendered with ToString.
func (c *Call) String(name string) string {
	return ToString(c.args[name])
}

// Int returns the bound value as an int. Integral floats and numeric strings
// are accepted.
func (c *Call) Int(name string) (int, error) {
	v := c.args[name]
	n, ok := ToInt(v)
	if !ok {
		return 0, bindErrorf(c.fn.Name, "argument %q: expected integer, got %T", name, v)
	}
	return n, nil
}

// Map returns the bound value as a mapping.
func (c *Call) Map(name string) (map[string]any, bool) {
	return ToMap(c.args[name])
}

// Argf builds a BindError for an argument the function cannot accept.
func (c *Call) Argf(format string, args ...any) error {
	return bindErrorf(c.fn.Name, format, args...)
}
