// Package capture extracts values from HTTP responses for use in subsequent
// steps and in validations.
//
// A path addresses one part of the response:
//   - status_code, status, elapsed_ms, text
//   - headers, headers.<Name> (case-insensitive)
//   - body, body.<path>, $.<path> (gjson paths; a[0] and a.0 are equivalent)
//   - any key a teardown hook stored on the response
//
// Any other path is read from the body.
//
// Extracted values are merged into the case scope, so later steps of the
// same case can reference them as ${name}.
package capture
