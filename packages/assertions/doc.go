// Package assertions implements the comparators used by step validations.
//
// A validation names a comparator, a check and an expected value:
//
//	validate:
//	  - eq: [status_code, 200]
//	  - contains: [headers.Content-Type, json]
//	  - eq: [$.data.status, "${expected_sql_value($user_id)}"]
//	  - schema: [body, ./schemas/user.json]
//
// Checks address the response: status_code, status, headers, headers.<Name>,
// body, body.<path>, $.<path> (body shorthand), text and elapsed_ms. Body paths
// use gjson syntax; a[0] and a.0 are equivalent.
//
// Supported comparators: eq, ne, gt, ge, lt, le, contains, not_contains,
// startswith, endswith, regex, len_eq, in, not_in, type, exists, schema.
package assertions
