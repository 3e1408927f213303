// Package env implements the layered variable scope used while a suite runs,
// and loads the process environment that forms its outermost layer.
//
// Layers are ordered env < suite < case < step. Lookups walk from the
// innermost layer outwards and the first match wins. Push creates a child
// branch that shares the outer frames, so concurrently running cases each
// own their case and step frames while reading the same env and suite frames.
//
// Two names are reserved and resolve before user variables: "variables", a
// read-only view of the whole branch, and "env", a read-only view of the
// env layer.
package env
