// Package errs defines the error taxonomy shared by the hookspec engine.
//
// Every error produced by the engine carries a Kind:
//   - KindSyntax: a malformed ${...} template
//   - KindResolution: unknown variable or function, bad argument binding
//   - KindAssertion: an intentional test failure raised by a function
//   - KindExternal: failures bubbling up from collaborators (network, database)
//
// Only KindAssertion marks a test as failed; every other kind marks it as errored.
package errs
