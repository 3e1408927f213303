package assertions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/hookspec/packages/builtin"
	"github.com/abdul-hamid-achik/hookspec/packages/capture"
	"github.com/abdul-hamid-achik/hookspec/packages/http"
	"github.com/xeipuuv/gojsonschema"
)

// Validation is one declared comparison. Check is a response path; Expected
// has already been rendered.
type Validation struct {
	Comparator Comparator
	Check      string
	Expected   any
}

// Result is the outcome of one validation.
type Result struct {
	Passed     bool   `json:"passed"`
	Message    string `json:"message,omitempty"`
	Check      string `json:"check"`
	Comparator string `json:"comparator"`
	Expected   any    `json:"expected"`
	Actual     any    `json:"actual"`
}

// Evaluator checks validations against a single response.
type Evaluator struct {
	extractor *capture.Extractor
	baseDir   string // Base directory for resolving schema file paths
}

// EvaluatorOption is a functional option for configuring an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithBaseDir resolves relative schema paths against dir and keeps them
// inside it.
func WithBaseDir(dir string) EvaluatorOption {
	return func(e *Evaluator) {
		e.baseDir = dir
	}
}

// NewEvaluator returns an Evaluator over resp.
func NewEvaluator(resp *http.Response, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{extractor: capture.NewExtractor(resp)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate resolves v.Check against the response and compares it.
func (e *Evaluator) Evaluate(v Validation) *Result {
	actual, err := e.Actual(v.Check)
	if err != nil {
		return &Result{
			Check:      v.Check,
			Comparator: v.Comparator.String(),
			Expected:   v.Expected,
			Message:    err.Error(),
		}
	}
	return e.Compare(v, actual)
}

// Compare checks an already resolved actual value.
func (e *Evaluator) Compare(v Validation, actual any) *Result {
	result := &Result{
		Check:      v.Check,
		Comparator: v.Comparator.String(),
		Expected:   v.Expected,
		Actual:     actual,
	}
	result.Passed, result.Message = e.compare(actual, v.Comparator, v.Expected)

	// For length comparisons, show the computed length as the actual value
	if v.Comparator == OpLengthEquals {
		result.Actual = computeLength(actual)
	}
	return result
}

// Actual resolves a check path against the response. A path that does not
// exist yields nil.
func (e *Evaluator) Actual(check string) (any, error) {
	v, _, err := e.extractor.Extract(check)
	return v, err
}

func (e *Evaluator) compare(actual any, op Comparator, expected any) (bool, string) {
	switch op {
	case OpEquals:
		return equals(actual, expected)
	case OpNotEquals:
		if passed, _ := equals(actual, expected); passed {
			return false, fmt.Sprintf("expected not to equal %v", expected)
		}
		return true, ""
	case OpGreaterThan:
		return compareNumeric(actual, expected, ">")
	case OpGreaterOrEqual:
		return compareNumeric(actual, expected, ">=")
	case OpLessThan:
		return compareNumeric(actual, expected, "<")
	case OpLessOrEqual:
		return compareNumeric(actual, expected, "<=")
	case OpContains:
		return contains(actual, expected)
	case OpNotContains:
		if passed, _ := contains(actual, expected); passed {
			return false, fmt.Sprintf("expected not to contain %v", expected)
		}
		return true, ""
	case OpStartsWith:
		return startsWith(actual, expected)
	case OpEndsWith:
		return endsWith(actual, expected)
	case OpRegex:
		return matches(actual, expected)
	case OpLengthEquals:
		return length(actual, expected)
	case OpIn:
		return in(actual, expected)
	case OpNotIn:
		if passed, _ := in(actual, expected); passed {
			return false, fmt.Sprintf("expected %v not to be in %v", actual, expected)
		}
		return true, ""
	case OpType:
		return typeCheck(actual, expected)
	case OpExists:
		return exists(actual, expected)
	case OpSchema:
		return e.schema(actual, expected)
	default:
		return false, fmt.Sprintf("unknown comparator: %v", op)
	}
}

func equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}

	actualNum, aOk := numeric(actual)
	expectedNum, eOk := numeric(expected)
	if aOk && eOk && actualNum == expectedNum {
		return true, ""
	}

	if builtin.ToString(actual) == builtin.ToString(expected) {
		return true, ""
	}

	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

// numeric is ToFloat restricted to values that are not bool.
func numeric(v any) (float64, bool) {
	if _, ok := v.(bool); ok {
		return 0, false
	}
	return builtin.ToFloat(v)
}

func compareNumeric(actual, expected any, op string) (bool, string) {
	actualNum, aOk := numeric(actual)
	expectedNum, eOk := numeric(expected)

	if !aOk || !eOk {
		return false, fmt.Sprintf("cannot compare non-numeric values: %v %s %v", actual, op, expected)
	}

	var passed bool
	switch op {
	case ">":
		passed = actualNum > expectedNum
	case ">=":
		passed = actualNum >= expectedNum
	case "<":
		passed = actualNum < expectedNum
	case "<=":
		passed = actualNum <= expectedNum
	}

	if passed {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v %s %v", actual, op, expected)
}

// contains checks membership for arrays, key presence for objects and
// substring otherwise.
func contains(actual, expected any) (bool, string) {
	switch v := actual.(type) {
	case []any:
		for _, item := range v {
			if passed, _ := equals(item, expected); passed {
				return true, ""
			}
		}
		return false, fmt.Sprintf("expected array to contain %v", expected)
	case map[string]any:
		if _, ok := v[builtin.ToString(expected)]; ok {
			return true, ""
		}
		return false, fmt.Sprintf("expected object to have key %v", expected)
	}

	if strings.Contains(builtin.ToString(actual), builtin.ToString(expected)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to contain '%v'", actual, expected)
}

func startsWith(actual, expected any) (bool, string) {
	if strings.HasPrefix(builtin.ToString(actual), builtin.ToString(expected)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to start with '%v'", actual, expected)
}

func endsWith(actual, expected any) (bool, string) {
	if strings.HasSuffix(builtin.ToString(actual), builtin.ToString(expected)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to end with '%v'", actual, expected)
}

func matches(actual, expected any) (bool, string) {
	pattern := builtin.ToString(expected)
	pattern = strings.TrimPrefix(pattern, "/")
	pattern = strings.TrimSuffix(pattern, "/")

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err)
	}

	if re.MatchString(builtin.ToString(actual)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to match /%v/", actual, pattern)
}

// exists passes when actual is non-nil. An expected value of false inverts
// the check.
func exists(actual, expected any) (bool, string) {
	want := true
	if b, ok := expected.(bool); ok {
		want = b
	}
	switch {
	case want && actual == nil:
		return false, "expected to exist"
	case !want && actual != nil:
		return false, "expected not to exist"
	}
	return true, ""
}

// computeLength returns the length of a value, or -1 if length cannot be computed
func computeLength(actual any) int {
	switch v := actual.(type) {
	case string:
		return len([]rune(v))
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	case nil:
		return -1
	}
	rv := reflect.ValueOf(actual)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	default:
		return -1
	}
}

func length(actual, expected any) (bool, string) {
	expectedLen, ok := builtin.ToInt(expected)
	if !ok {
		return false, fmt.Sprintf("expected length must be a number, got %v", expected)
	}

	actualLen := computeLength(actual)
	if actualLen == -1 {
		return false, fmt.Sprintf("cannot get length of %T", actual)
	}

	if actualLen == expectedLen {
		return true, ""
	}
	return false, fmt.Sprintf("expected length %d, got %d", expectedLen, actualLen)
}

func in(actual, expected any) (bool, string) {
	arr, ok := expected.([]any)
	if !ok {
		if s, isStr := expected.(string); isStr {
			if strings.Contains(s, builtin.ToString(actual)) {
				return true, ""
			}
			return false, fmt.Sprintf("expected %v to be in %q", actual, s)
		}
		return false, fmt.Sprintf("expected array for 'in' comparator, got %T", expected)
	}

	for _, item := range arr {
		if passed, _ := equals(actual, item); passed {
			return true, ""
		}
	}
	return false, fmt.Sprintf("expected %v to be in %v", actual, expected)
}

var typeAliases = map[string]string{
	"int":     "number",
	"integer": "number",
	"float":   "number",
	"str":     "string",
	"bool":    "boolean",
	"list":    "array",
	"dict":    "object",
	"none":    "null",
}

// TypeName reports the JSON type name of a value.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return reflect.TypeOf(v).String()
	}
}

func typeCheck(actual, expected any) (bool, string) {
	expectedType := strings.ToLower(builtin.ToString(expected))
	if alias, ok := typeAliases[expectedType]; ok {
		expectedType = alias
	}
	actualType := TypeName(actual)

	if actualType == expectedType {
		return true, ""
	}
	return false, fmt.Sprintf("expected type %s, got %s", expectedType, actualType)
}

// validatePathWithinBase checks that the resolved path stays within the base directory
// to prevent path traversal attacks
func validatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}

	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %v", err)
	}

	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %v", err)
	}

	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) && cleanPath != cleanBase {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}

	return nil
}

// schema validates actual against a JSON schema given inline as an object or
// as a file path.
func (e *Evaluator) schema(actual, expected any) (bool, string) {
	var schemaLoader gojsonschema.JSONLoader

	switch s := expected.(type) {
	case map[string]any:
		schemaLoader = gojsonschema.NewGoLoader(s)
	default:
		schemaPath := builtin.ToString(expected)
		if !filepath.IsAbs(schemaPath) && e.baseDir != "" {
			schemaPath = filepath.Join(e.baseDir, schemaPath)
		}
		if err := validatePathWithinBase(schemaPath, e.baseDir); err != nil {
			return false, err.Error()
		}
		schemaData, err := os.ReadFile(schemaPath)
		if err != nil {
			return false, fmt.Sprintf("failed to read schema file: %v", err)
		}
		schemaLoader = gojsonschema.NewBytesLoader(schemaData)
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		return false, fmt.Sprintf("failed to marshal actual value: %v", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(actualJSON))
	if err != nil {
		return false, fmt.Sprintf("schema validation error: %v", err)
	}

	if result.Valid() {
		return true, ""
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return false, fmt.Sprintf("schema validation failed: %s", strings.Join(problems, "; "))
}

// EvaluateAll runs every validation against resp.
func EvaluateAll(resp *http.Response, validations []Validation, opts ...EvaluatorOption) []*Result {
	evaluator := NewEvaluator(resp, opts...)
	results := make([]*Result, len(validations))
	for i, v := range validations {
		results[i] = evaluator.Evaluate(v)
	}
	return results
}
