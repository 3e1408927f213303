// Package runner drives suites, cases and steps through their hook
// lifecycles.
//
// A suite runs its setup hooks, seals the suite variables and hands its cases
// to a bounded worker pool. Each case owns its own case and step scope frames,
// so sibling cases never observe each other's variables. Steps inside a case
// run in order and move through the states
//
//	PENDING -> SETUP -> SENDING -> RECEIVED -> TEARDOWN -> VALIDATE -> PASSED | FAILED | ERRORED
//
// with SKIPPED reserved for skip_if and filtered steps. Every transition is
// recorded on the step's Trace.
//
// Hooks are template strings holding exactly one function call:
//
//	setup_hooks:
//	  - ${setup_hook_sign_request($request)}
//
// A mapping returned by a hook is merged into the scope layer of the hook's
// level before the next hook runs, so later hooks and templates see it.
//
// Failures are classified by error kind: assertion errors make a step
// FAILED, anything else makes it ERRORED. When a case collects several
// errors, one that is not an assertion makes the case ERRORED.
package runner
