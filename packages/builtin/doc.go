// Package builtin holds the function registry used by ${...} expressions
// and lifecycle hooks.
//
// A Function declares its parameters (name, default, required) and what it
// returns. The evaluator binds positional and keyword arguments against that
// declaration before invoking Fn with a *Call that exposes the bound values,
// the context, a logger and read-only views of the variable scope.
//
// Default template functions:
//   - ts(): current Unix timestamp in seconds, never decreasing
//   - uid(): random UUID v4 with dashes
//   - short_uid(length=8): first length hex chars of dash-less UUIDs
//   - md5(text), sha256(text): lowercase hex digests
//   - now(), timestamp_ms(), date(format="2006-01-02")
//   - random(min=0, max=100), random_string(length=8)
//   - base64(value), base64_decode(value), url_encode(value), url_decode(value)
//
// A registry is built once per process and frozen before the first run.
package builtin
