package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for reporting.
type Kind int

const (
	KindExternal Kind = iota
	KindSyntax
	KindResolution
	KindAssertion
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax"
	case KindResolution:
		return "resolution"
	case KindAssertion:
		return "assertion"
	case KindExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Kinded is implemented by every engine error type.
type Kinded interface {
	error
	Kind() Kind
}

// KindOf returns the kind of the outermost kinded error in err's chain.
// Errors that carry no kind (context deadlines, driver errors, panics) are
// treated as external failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindExternal
	}
	var k Kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindExternal
}

// IsAssertion reports whether err signals a test failure rather than an engine error.
func IsAssertion(err error) bool {
	return err != nil && KindOf(err) == KindAssertion
}

// AssertionError is raised on purpose by validation and assertion functions.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	return "assertion failed: " + e.Message
}

func (e *AssertionError) Kind() Kind { return KindAssertion }

// Assertf builds an AssertionError with a formatted message.
func Assertf(format string, args ...any) error {
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

// ExternalError wraps a failure reported by a collaborator.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *ExternalError) Unwrap() error { return e.Err }

func (e *ExternalError) Kind() Kind { return KindExternal }

// External wraps err as an ExternalError. A nil err yields nil.
func External(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalError{Op: op, Err: err}
}
