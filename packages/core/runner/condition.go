package runner

import (
	"fmt"
	"sync"

	"github.com/abdul-hamid-achik/hookspec/packages/core/env"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// conditions compiles skip_if expressions once and caches the programs.
// Variables that are not set evaluate to nil.
type conditions struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

func newConditions() *conditions {
	return &conditions{programs: make(map[string]*vm.Program)}
}

func (c *conditions) compile(src string) (*vm.Program, error) {
	c.mu.RLock()
	if program, ok := c.programs[src]; ok {
		c.mu.RUnlock()
		return program, nil
	}
	c.mu.RUnlock()

	program, err := expr.Compile(src, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile condition %q: %w", src, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.programs[src]; ok {
		return existing, nil
	}
	c.programs[src] = program
	return program, nil
}

// eval runs src against the variables visible in scope. The env layer is
// also reachable as env.NAME.
func (c *conditions) eval(src string, scope *env.Scope) (bool, error) {
	program, err := c.compile(src)
	if err != nil {
		return false, err
	}

	vars := scope.Snapshot()
	vars[env.NameEnv] = scope.EnvMap()

	out, err := expr.Run(program, vars)
	if err != nil {
		return false, fmt.Errorf("eval condition %q: %w", src, err)
	}
	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not return bool (got %T)", src, out)
	}
	return result, nil
}
