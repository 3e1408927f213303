package builtin

import (
	"fmt"

	"github.com/abdul-hamid-achik/hookspec/packages/core/errs"
)

// Kwarg is an evaluated keyword argument.
type Kwarg struct {
	Name  string
	Value any
}

// BindError reports arguments that do not match a function's parameters.
type BindError struct {
	Function string
	Reason   string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("cannot call %s: %s", e.Function, e.Reason)
}

func (e *BindError) Kind() errs.Kind { return errs.KindResolution }

func bindErrorf(fn, format string, args ...any) *BindError {
	return &BindError{Function: fn, Reason: fmt.Sprintf(format, args...)}
}

// Bind maps positional and keyword arguments onto fn's parameters, filling
// defaults for the rest.
func Bind(fn *Function, args []any, kwargs []Kwarg) (map[string]any, error) {
	if len(args) > len(fn.Params) {
		return nil, bindErrorf(fn.Name, "too many positional arguments: want at most %d, got %d", len(fn.Params), len(args))
	}

	bound := make(map[string]any, len(fn.Params))
	for i, v := range args {
		bound[fn.Params[i].Name] = v
	}

	for _, kw := range kwargs {
		if !fn.hasParam(kw.Name) {
			return nil, bindErrorf(fn.Name, "unknown keyword argument %q", kw.Name)
		}
		if _, dup := bound[kw.Name]; dup {
			return nil, bindErrorf(fn.Name, "multiple values for argument %q", kw.Name)
		}
		bound[kw.Name] = kw.Value
	}

	for _, p := range fn.Params {
		if _, ok := bound[p.Name]; ok {
			continue
		}
		if p.Required {
			return nil, bindErrorf(fn.Name, "missing required argument %q", p.Name)
		}
		bound[p.Name] = p.Default
	}

	return bound, nil
}

func (f *Function) hasParam(name string) bool {
	for _, p := range f.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}
