package builtin

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	ErrDuplicateFunction = errors.New("function already registered")
	ErrRegistryFrozen    = errors.New("registry is frozen")
)

// ReturnKind describes what a function returns.
type ReturnKind int

const (
	// ReturnValue functions produce a value used in expressions.
	ReturnValue ReturnKind = iota
	// ReturnMapping functions return map[string]any (or nil) that hooks merge
	// into the scope.
	ReturnMapping
	// ReturnNone functions are called for their side effects.
	ReturnNone
)

func (k ReturnKind) String() string {
	switch k {
	case ReturnMapping:
		return "mapping"
	case ReturnNone:
		return "none"
	default:
		return "value"
	}
}

// Param declares one function parameter.
type Param struct {
	Name     string
	Default  any
	Required bool
}

// Func is the implementation of a registered function.
type Func func(c *Call) (any, error)

// Function is a registry entry.
type Function struct {
	Name    string
	Params  []Param
	Returns ReturnKind
	Doc     string
	Fn      Func
}

// Signature renders the function as name(param, param=default).
func (f *Function) Signature() string {
	s := f.Name + "("
	for i, p := range f.Params {
		if i > 0 {
			s += ", "
		}
		s += p.Name
		if !p.Required {
			s += "=" + formatDefault(p.Default)
		}
	}
	return s + ")"
}

func formatDefault(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return ToString(v)
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// AllowOverride lets a later registration replace an earlier one.
func AllowOverride() RegistryOption {
	return func(r *Registry) {
		r.allowOverride = true
	}
}

// WithoutDefaults builds an empty registry.
func WithoutDefaults() RegistryOption {
	return func(r *Registry) {
		r.skipDefaults = true
	}
}

// WithClock sets the time source of the time-based default functions.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// Registry maps function names to their definitions. It is safe for
// concurrent use and read-only once frozen.
type Registry struct {
	mu            sync.RWMutex
	funcs         map[string]*Function
	allowOverride bool
	skipDefaults  bool
	frozen        bool
	now           func() time.Time
}

// NewRegistry returns a registry holding the default functions.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		funcs: make(map[string]*Function),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if !r.skipDefaults {
		r.registerDefaults()
	}
	return r
}

// Register adds fn to the registry.
func (r *Registry) Register(fn Function) error {
	if fn.Name == "" {
		return errors.New("function name is required")
	}
	if fn.Fn == nil {
		return fmt.Errorf("function %s: implementation is nil", fn.Name)
	}
	seen := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		if p.Name == "" {
			return fmt.Errorf("function %s: parameter name is required", fn.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("function %s: duplicate parameter %q", fn.Name, p.Name)
		}
		seen[p.Name] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot register %s", ErrRegistryFrozen, fn.Name)
	}
	if _, exists := r.funcs[fn.Name]; exists && !r.allowOverride {
		return fmt.Errorf("%w: %s", ErrDuplicateFunction, fn.Name)
	}

	entry := fn
	entry.Params = append([]Param(nil), fn.Params...)
	r.funcs[fn.Name] = &entry
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(fn Function) {
	if err := r.Register(fn); err != nil {
		panic(err)
	}
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (*Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered function names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Functions returns every registered function sorted by name.
func (r *Registry) Functions() []*Function {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	fns := make([]*Function, 0, len(names))
	for _, name := range names {
		if fn, ok := r.funcs[name]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}
