package env

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/hookspec/packages/core/errs"
)

var (
	ErrImmutableLayer = errors.New("layer is immutable")
	ErrLayerNotActive = errors.New("layer is not active in this scope")
	ErrReservedName   = errors.New("name is reserved")
)

// UndefinedVariableError reports a variable missing from every layer.
type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable %q", e.Name)
}

func (e *UndefinedVariableError) Kind() errs.Kind { return errs.KindResolution }

// PathResolutionError reports a path segment that cannot be walked.
type PathResolutionError struct {
	Path    []string
	Segment string
	Reason  string
}

func (e *PathResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve $%s at %q: %s", strings.Join(e.Path, "."), e.Segment, e.Reason)
}

func (e *PathResolutionError) Kind() errs.Kind { return errs.KindResolution }
