package env

import "encoding/json"

// View is a read-only window onto a scope branch. It is what $variables and
// $env resolve to and what hook functions receive.
type View struct {
	scope *Scope
}

// Get returns the innermost binding of name.
func (v *View) Get(name string) (any, bool) {
	return v.scope.Get(name)
}

// Lookup resolves a dotted path inside the viewed branch.
func (v *View) Lookup(path string) (any, error) {
	return v.scope.Lookup(path)
}

// Map flattens the view into a fresh map.
func (v *View) Map() map[string]any {
	return v.scope.Snapshot()
}

// Index makes a view walkable as part of a variable path.
func (v *View) Index(key string) (any, bool) {
	return v.scope.Get(key)
}

// String returns the named variable as a string, or def when it is unset.
func (v *View) String(name, def string) string {
	got, ok := v.scope.Get(name)
	if !ok || got == nil {
		return def
	}
	if s, ok := got.(string); ok {
		return s
	}
	data, err := json.Marshal(got)
	if err != nil {
		return def
	}
	return string(data)
}

func (v *View) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Map())
}
