package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/url"
	"strings"
	"time"
)

// Request is the mutable request record of one step.
type Request struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
	Body    any               `json:"body,omitempty"`
	Timeout time.Duration     `json:"-"`
	Extra   map[string]any    `json:"extra,omitempty"`
}

// NewRequest returns a request with an upper-cased method and empty headers.
func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:  strings.ToUpper(method),
		URL:     requestURL,
		Headers: make(map[string]string),
		Params:  make(map[string]string),
	}
}

// EnsureHeaders returns the header map, creating it when absent. Hooks add
// headers through it.
func (r *Request) EnsureHeaders() map[string]string {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	return r.Headers
}

// SetHeader sets a header and returns r.
func (r *Request) SetHeader(key, value string) *Request {
	r.EnsureHeaders()[key] = value
	return r
}

// Header returns the header value, matching the name case-insensitively.
func (r *Request) Header(key string) string {
	return headerValue(r.Headers, key)
}

// SetBody sets the body and returns r.
func (r *Request) SetBody(body any) *Request {
	r.Body = body
	return r
}

// SetTimeout sets the per-request timeout and returns r.
func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

// SetQueryParam sets a query parameter and returns r.
func (r *Request) SetQueryParam(key, value string) *Request {
	if r.Params == nil {
		r.Params = make(map[string]string)
	}
	r.Params[key] = value
	return r
}

// Get returns a named field. Unknown keys are read from Extra.
func (r *Request) Get(key string) (any, bool) {
	switch key {
	case "method":
		return r.Method, true
	case "url":
		return r.URL, true
	case "headers":
		return r.EnsureHeaders(), true
	case "params":
		return r.Params, true
	case "body":
		return r.Body, true
	}
	v, ok := r.Extra[key]
	return v, ok
}

// Set assigns a named field. Unknown keys are stored in Extra.
func (r *Request) Set(key string, value any) error {
	switch key {
	case "method":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("request method must be a string, got %T", value)
		}
		r.Method = strings.ToUpper(s)
	case "url":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("request url must be a string, got %T", value)
		}
		r.URL = s
	case "headers":
		h, err := stringMap(value)
		if err != nil {
			return fmt.Errorf("request headers: %w", err)
		}
		r.Headers = h
	case "params":
		p, err := stringMap(value)
		if err != nil {
			return fmt.Errorf("request params: %w", err)
		}
		r.Params = p
	case "body":
		r.Body = value
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]any)
		}
		r.Extra[key] = value
	}
	return nil
}

// Index implements the scope lookup for a request.
func (r *Request) Index(key string) (any, bool) {
	return r.Get(key)
}

// Map returns the record as a plain mapping.
func (r *Request) Map() map[string]any {
	m := map[string]any{
		"method":  r.Method,
		"url":     r.URL,
		"headers": r.EnsureHeaders(),
		"params":  r.Params,
		"body":    r.Body,
	}
	for k, v := range r.Extra {
		if _, reserved := m[k]; !reserved {
			m[k] = v
		}
	}
	return m
}

// Clone copies the record. Header, param and extra maps are copied; the body
// is shared.
func (r *Request) Clone() *Request {
	c := *r
	c.Headers = maps.Clone(r.Headers)
	c.Params = maps.Clone(r.Params)
	c.Extra = maps.Clone(r.Extra)
	return &c
}

// BuildURL returns URL with Params merged into its query string.
func (r *Request) BuildURL() string {
	if len(r.Params) == 0 {
		return r.URL
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}

	q := u.Query()
	for k, v := range r.Params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// BodyReader encodes Body for the wire. Strings and bytes are sent as is;
// anything else is encoded as JSON. The returned content type is empty unless
// the body was JSON-encoded.
func (r *Request) BodyReader() (io.Reader, string, error) {
	switch b := r.Body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return strings.NewReader(b), "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encoding request body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// JoinURL resolves ref against base. Absolute http(s) URLs are returned
// unchanged.
func JoinURL(base, ref string) string {
	if base == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if ref == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}

// ParseFormBody decodes an application/x-www-form-urlencoded body.
func ParseFormBody(body string) map[string]string {
	result := make(map[string]string)
	for _, pair := range strings.Split(body, "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, _ := url.QueryUnescape(k)
		value, _ := url.QueryUnescape(v)
		result[key] = value
	}
	return result
}

func headerValue(headers map[string]string, key string) string {
	if v, ok := headers[key]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func stringMap(value any) (map[string]string, error) {
	switch v := value.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, val := range v {
			out[k] = fmt.Sprint(val)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a mapping, got %T", value)
	}
}
