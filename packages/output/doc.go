// Package output renders suite results.
//
// Supported output formats:
//   - console: colored terminal output with latency percentiles
//   - json: one machine-readable document for the whole run
//   - junit: JUnit XML, one testcase per step
//   - tap: Test Anything Protocol, one test point per case
//
// Formatters receive every SuiteResult as it completes. Those that
// implement Flushable write their document once the run is over.
package output
