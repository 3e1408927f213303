// Package hooks ships the example lifecycle functions: request signing,
// response logging and status checks, SQL-backed assertions and the
// suite and case setup/teardown hooks.
//
// Register adds them to a registry:
//
//	reg := builtin.NewRegistry()
//	if err := hooks.Register(reg, hooks.Deps{DB: proxy}); err != nil {
//	    return err
//	}
//	reg.Freeze()
//
// Setup hooks receive the *http.Request record as their first argument and
// may return a mapping that is merged into the scope of the hook's level.
// Teardown hooks receive the *http.Response record.
package hooks
