package env

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Indexable is implemented by values whose fields can be reached by a
// variable path, such as the request and response records.
type Indexable interface {
	Index(key string) (any, bool)
}

// Walk follows path from root through maps, slices and Indexable values.
func Walk(root any, path []string) (any, error) {
	current := root
	for _, seg := range path {
		next, reason := index(current, seg)
		if reason != "" {
			return nil, &PathResolutionError{Path: path, Segment: seg, Reason: reason}
		}
		current = next
	}
	return current, nil
}

func index(v any, key string) (any, string) {
	switch v := v.(type) {
	case nil:
		return nil, "value is null"
	case Indexable:
		if got, ok := v.Index(key); ok {
			return got, ""
		}
		return nil, "no such field"
	case map[string]any:
		if got, ok := v[key]; ok {
			return got, ""
		}
		return nil, "no such key"
	case map[string]string:
		if got, ok := v[key]; ok {
			return got, ""
		}
		// Header names are case-insensitive.
		for k, got := range v {
			if strings.EqualFold(k, key) {
				return got, ""
			}
		}
		return nil, "no such key"
	case []any:
		i, reason := sliceIndex(key, len(v))
		if reason != "" {
			return nil, reason
		}
		return v[i], ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Sprintf("cannot index %T", v)
		}
		got := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !got.IsValid() {
			return nil, "no such key"
		}
		return got.Interface(), ""
	case reflect.Slice, reflect.Array:
		i, reason := sliceIndex(key, rv.Len())
		if reason != "" {
			return nil, reason
		}
		return rv.Index(i).Interface(), ""
	default:
		return nil, fmt.Sprintf("cannot index %T", v)
	}
}

func sliceIndex(key string, length int) (int, string) {
	i, err := strconv.Atoi(key)
	if err != nil {
		return 0, "list index must be an integer"
	}
	if i < 0 || i >= length {
		return 0, fmt.Sprintf("index %d out of range (length %d)", i, length)
	}
	return i, ""
}
