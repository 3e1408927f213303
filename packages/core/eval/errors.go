package eval

import (
	"fmt"

	"github.com/abdul-hamid-achik/hookspec/packages/core/errs"
)

// UnknownFunctionError reports a call to a name missing from the registry.
type UnknownFunctionError struct {
	Name   string
	Offset int
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %q at offset %d", e.Name, e.Offset)
}

func (e *UnknownFunctionError) Kind() errs.Kind { return errs.KindResolution }

// CallError wraps an error or panic raised inside a function.
type CallError struct {
	Function string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s(): %v", e.Function, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

func (e *CallError) Kind() errs.Kind { return errs.KindExternal }
