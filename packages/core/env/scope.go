package env

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
)

// Layer identifies a scope level.
type Layer int

const (
	LayerEnv Layer = iota
	LayerSuite
	LayerCase
	LayerStep
)

func (l Layer) String() string {
	switch l {
	case LayerEnv:
		return "env"
	case LayerSuite:
		return "suite"
	case LayerCase:
		return "case"
	case LayerStep:
		return "step"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// Reserved variable names.
const (
	NameVariables = "variables"
	NameEnv       = "env"
)

func isReserved(name string) bool {
	return name == NameVariables || name == NameEnv
}

type frame struct {
	layer  Layer
	mu     sync.RWMutex
	vars   map[string]any
	sealed bool
}

func (f *frame) get(name string) (any, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.vars[name]
	return v, ok
}

// Scope is one branch of the layered variable stack. Frames are shared with
// the branch it was pushed from; a Scope value itself never changes shape.
type Scope struct {
	frames []*frame
}

// NewScope creates a scope whose env layer holds vars. The env layer is
// immutable.
func NewScope(vars map[string]string) *Scope {
	f := &frame{
		layer:  LayerEnv,
		vars:   make(map[string]any, len(vars)),
		sealed: true,
	}
	for k, v := range vars {
		f.vars[k] = v
	}
	return &Scope{frames: []*frame{f}}
}

// Push returns a child branch with an empty frame for layer on top. The
// receiver is left untouched, so dropping the child is the pop. Layers must
// be pushed in increasing order.
func (s *Scope) Push(layer Layer) *Scope {
	if top := s.Layer(); layer <= top {
		panic(fmt.Sprintf("env: cannot push %s layer on top of %s", layer, top))
	}
	frames := make([]*frame, len(s.frames), len(s.frames)+1)
	copy(frames, s.frames)
	frames = append(frames, &frame{layer: layer, vars: make(map[string]any)})
	return &Scope{frames: frames}
}

// Parent returns the branch without its innermost frame, or nil for a scope
// holding only the env layer.
func (s *Scope) Parent() *Scope {
	if len(s.frames) <= 1 {
		return nil
	}
	return &Scope{frames: s.frames[:len(s.frames)-1:len(s.frames)-1]}
}

// Layer returns the innermost layer of the branch.
func (s *Scope) Layer() Layer {
	return s.frames[len(s.frames)-1].layer
}

// Has reports whether layer is present in the branch.
func (s *Scope) Has(layer Layer) bool {
	return s.frame(layer) != nil
}

func (s *Scope) frame(layer Layer) *frame {
	for _, f := range s.frames {
		if f.layer == layer {
			return f
		}
	}
	return nil
}

func (s *Scope) writable(layer Layer) (*frame, error) {
	f := s.frame(layer)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrLayerNotActive, layer)
	}
	if layer == LayerEnv {
		return nil, fmt.Errorf("%w: %s", ErrImmutableLayer, layer)
	}
	return f, nil
}

// Set writes one variable into layer.
func (s *Scope) Set(layer Layer, key string, value any) error {
	return s.Merge(layer, map[string]any{key: value})
}

// Merge writes every entry of vars into layer. Existing keys are overwritten.
// Nothing is written when any key is rejected.
func (s *Scope) Merge(layer Layer, vars map[string]any) error {
	for k := range vars {
		if isReserved(k) {
			return fmt.Errorf("%w: %q", ErrReservedName, k)
		}
		if k == "" {
			return errors.New("variable name is empty")
		}
	}

	f, err := s.writable(layer)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sealed {
		return fmt.Errorf("%w: %s is sealed", ErrImmutableLayer, layer)
	}
	maps.Copy(f.vars, vars)
	return nil
}

// Seal makes layer read-only for every branch sharing it.
func (s *Scope) Seal(layer Layer) error {
	f := s.frame(layer)
	if f == nil {
		return fmt.Errorf("%w: %s", ErrLayerNotActive, layer)
	}
	f.mu.Lock()
	f.sealed = true
	f.mu.Unlock()
	return nil
}

// Get returns a user variable, searching from the innermost layer outwards.
// Reserved names are not consulted.
func (s *Scope) Get(name string) (any, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i].get(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Lookup resolves a dotted path such as "response.body.id".
func (s *Scope) Lookup(path string) (any, error) {
	path = strings.TrimPrefix(path, "$")
	return s.LookupPath(strings.Split(path, "."))
}

// LookupPath resolves path segments. The first segment names the variable;
// the rest are walked into its value.
func (s *Scope) LookupPath(path []string) (any, error) {
	if len(path) == 0 || path[0] == "" {
		return nil, &UndefinedVariableError{Name: ""}
	}

	var root any
	switch path[0] {
	case NameVariables:
		root = s.View()
	case NameEnv:
		root = s.EnvView()
	default:
		v, ok := s.Get(path[0])
		if !ok {
			return nil, &UndefinedVariableError{Name: path[0]}
		}
		root = v
	}

	if len(path) == 1 {
		return root, nil
	}
	v, err := Walk(root, path[1:])
	if err != nil {
		perr := err.(*PathResolutionError)
		perr.Path = path
		return nil, perr
	}
	return v, nil
}

// Snapshot flattens the branch into one map, inner layers winning.
func (s *Scope) Snapshot() map[string]any {
	out := make(map[string]any)
	for _, f := range s.frames {
		f.mu.RLock()
		maps.Copy(out, f.vars)
		f.mu.RUnlock()
	}
	return out
}

// LayerSnapshot copies the variables held by a single layer.
func (s *Scope) LayerSnapshot(layer Layer) map[string]any {
	f := s.frame(layer)
	if f == nil {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return maps.Clone(f.vars)
}

// View returns a read-only view of the whole branch.
func (s *Scope) View() *View {
	return &View{scope: s}
}

// EnvView returns a read-only view of the env layer.
func (s *Scope) EnvView() *View {
	return &View{scope: &Scope{frames: s.frames[:1]}}
}

// EnvMap returns the env layer as strings.
func (s *Scope) EnvMap() map[string]string {
	f := s.frames[0]
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]string, len(f.vars))
	for k, v := range f.vars {
		if str, ok := v.(string); ok {
			out[k] = str
		}
	}
	return out
}
