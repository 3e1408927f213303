package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/hookspec/packages/builtin"
)

// Environment is the resolved env layer of a run.
type Environment struct {
	Name      string
	Variables map[string]string
}

// LoadOptions selects the sources merged into an Environment. Later sources
// win: OS environment, then .env files, then the named config block.
type LoadOptions struct {
	// Name selects a block from Environments. Empty means none.
	Name string

	// Prefix filters OS variables; the prefix is stripped from imported keys.
	// An empty prefix imports every OS variable.
	Prefix string

	// SkipOS leaves the OS environment out.
	SkipOS bool

	// DotEnvFiles are read in order. Missing files are ignored.
	DotEnvFiles []string

	Environments map[string]map[string]any
}

// LoadEnvironment builds the env layer from the configured sources.
func LoadEnvironment(opts LoadOptions) (*Environment, error) {
	env := &Environment{
		Name:      opts.Name,
		Variables: make(map[string]string),
	}

	if !opts.SkipOS {
		for k, v := range LoadSystemEnv(opts.Prefix) {
			env.Variables[k] = v
		}
	}

	for _, path := range opts.DotEnvFiles {
		vars, err := LoadDotEnv(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for k, v := range vars {
			env.Variables[k] = v
		}
	}

	if opts.Name != "" && len(opts.Environments) > 0 {
		block, ok := opts.Environments[opts.Name]
		if !ok {
			return nil, fmt.Errorf("environment %q is not defined", opts.Name)
		}
		for k, v := range block {
			env.Variables[k] = builtin.ToString(v)
		}
	}

	return env, nil
}

// Scope returns a new scope whose env layer holds the environment.
func (e *Environment) Scope() *Scope {
	return NewScope(e.Variables)
}

// MergeVariables merges maps left to right; later maps win.
func MergeVariables(sources ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// LoadSystemEnv returns OS environment variables whose names start with
// prefix, with the prefix removed.
func LoadSystemEnv(prefix string) map[string]string {
	result := make(map[string]string)
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok || key == "" {
			continue
		}
		if prefix == "" {
			result[key] = value
			continue
		}
		if len(key) > len(prefix) && strings.HasPrefix(key, prefix) {
			result[key[len(prefix):]] = value
		}
	}
	return result
}
