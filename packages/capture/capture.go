package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/hookspec/packages/http"
	"github.com/tidwall/gjson"
)

// ErrBodyNotJSON is returned for body paths when the body is not JSON.
var ErrBodyNotJSON = errors.New("response body is not JSON")

// Extractor resolves extraction paths against one response.
type Extractor struct {
	response *http.Response
	bodyJSON gjson.Result
}

// NewExtractor prepares resp for extraction. The JSON view is built from the
// current Body so annotations made by teardown hooks are visible.
func NewExtractor(resp *http.Response) *Extractor {
	e := &Extractor{
		response: resp,
	}
	switch resp.Body.(type) {
	case map[string]any, []any:
		if data, err := json.Marshal(resp.Body); err == nil {
			e.bodyJSON = gjson.ParseBytes(data)
		}
	default:
		if resp.IsJSON() && gjson.ValidBytes(resp.RawBody) {
			e.bodyJSON = gjson.ParseBytes(resp.RawBody)
		}
	}
	return e
}

// Extract resolves path. found is false when the path does not exist.
func (e *Extractor) Extract(path string) (value any, found bool, err error) {
	path = strings.TrimSpace(path)
	switch {
	case path == "status_code":
		return e.response.StatusCode, true, nil
	case path == "status":
		return e.response.Status, true, nil
	case path == "elapsed_ms":
		return e.response.DurationMs(), true, nil
	case path == "text":
		return e.response.BodyString(), true, nil
	case path == "headers":
		return e.response.Headers, true, nil
	case strings.HasPrefix(path, "headers."):
		return e.extractFromHeader(strings.TrimPrefix(path, "headers."))
	case path == "body" || path == "$":
		return e.response.Body, true, nil
	case strings.HasPrefix(path, "body."), strings.HasPrefix(path, "body["):
		return e.extractFromBody(strings.TrimPrefix(path, "body"))
	case strings.HasPrefix(path, "$."), strings.HasPrefix(path, "$["):
		return e.extractFromBody(strings.TrimPrefix(path, "$"))
	}

	if v, ok := e.response.Extra[path]; ok {
		return v, true, nil
	}
	return e.extractFromBody(path)
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// convertBracketNotation converts array bracket notation to gjson dot notation
// e.g., "[0].id" -> "0.id", "items[0].tags[1]" -> "items.0.tags.1"
func convertBracketNotation(path string) string {
	result := bracketIndex.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(result, ".")
}

func (e *Extractor) extractFromBody(path string) (any, bool, error) {
	if !e.bodyJSON.Exists() {
		return nil, false, ErrBodyNotJSON
	}

	path = convertBracketNotation(strings.TrimPrefix(path, "."))
	if path == "" {
		return e.bodyJSON.Value(), true, nil
	}

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false, nil
	}
	return result.Value(), true, nil
}

func (e *Extractor) extractFromHeader(name string) (any, bool, error) {
	for k, v := range e.response.Headers {
		if strings.EqualFold(k, name) {
			return v, true, nil
		}
	}
	return nil, false, nil
}

// ExtractAll resolves every name -> path entry. Paths that do not exist yield
// nil values; a body path on a non-JSON body is an error.
func ExtractAll(resp *http.Response, paths map[string]string) (map[string]any, error) {
	extractor := NewExtractor(resp)
	results := make(map[string]any, len(paths))

	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value, _, err := extractor.Extract(paths[name])
		if err != nil {
			return nil, fmt.Errorf("extract %s from %q: %w", name, paths[name], err)
		}
		results[name] = value
	}

	return results, nil
}
