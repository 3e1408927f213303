// Package eval evaluates parsed templates against a variable scope and the
// function registry.
//
// Call arguments are evaluated depth-first, left to right, before the call
// itself. A template made of exactly one expression yields the raw value of
// that expression; any other template yields the concatenation of its
// segments rendered as strings.
//
// Errors keep their kind: syntax and resolution errors surface unchanged,
// assertion errors raised by functions pass through so the runner can mark
// the step failed, and every other function error or panic is wrapped in a
// *CallError of kind external.
package eval
