// Package parser turns template strings into expression trees.
//
// A template is plain text with embedded ${...} expressions:
//
//	user_${short_uid(8)}@example.com
//	${setup_hook_sign_request($request)}
//	${expected_sql_value($user_id, query="SELECT total FROM orders WHERE id=${order_id}", column="total")}
//
// An expression is either a function call with positional and keyword
// arguments, or a variable reference such as $user_id or
// $response.body.data[0].id. Argument values may be string, number, boolean
// or null literals, variable references, nested calls or nested ${...}
// expressions. Quoted strings that contain ${...} are parsed as nested
// templates.
//
// Parsing is all-or-nothing: a malformed template yields a *SyntaxError with
// the character offset of the problem and never a partial tree.
package parser
