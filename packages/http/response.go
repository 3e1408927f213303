package http

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Response is the record of a received response. StatusCode and Body are
// always set once the sender returns.
type Response struct {
	StatusCode int               `json:"status_code"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers"`
	Body       any               `json:"body"`
	RawBody    []byte            `json:"-"`
	Duration   time.Duration     `json:"-"`
	Extra      map[string]any    `json:"extra,omitempty"`
}

// NewResponse builds a record and decodes raw as JSON when it parses,
// falling back to the body text.
func NewResponse(statusCode int, status string, headers map[string]string, raw []byte, duration time.Duration) *Response {
	if headers == nil {
		headers = make(map[string]string)
	}
	return &Response{
		StatusCode: statusCode,
		Status:     status,
		Headers:    headers,
		Body:       decodeBody(raw),
		RawBody:    raw,
		Duration:   duration,
	}
}

func decodeBody(raw []byte) any {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	return string(raw)
}

// BodyString returns the raw body.
func (r *Response) BodyString() string {
	return string(r.RawBody)
}

// BodyJSON decodes the body as JSON.
func (r *Response) BodyJSON() (any, error) {
	var result any
	if err := json.Unmarshal(r.RawBody, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Response) Header(key string) string {
	return headerValue(r.Headers, key)
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	return strings.Contains(r.ContentType(), "application/json")
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}

// Get returns a named field. Unknown keys are read from Extra.
func (r *Response) Get(key string) (any, bool) {
	switch key {
	case "status_code":
		return r.StatusCode, true
	case "status":
		return r.Status, true
	case "headers":
		return r.Headers, true
	case "body":
		return r.Body, true
	case "text":
		return r.BodyString(), true
	case "elapsed_ms":
		return r.DurationMs(), true
	}
	v, ok := r.Extra[key]
	return v, ok
}

// Set assigns a named field. Unknown keys are stored in Extra.
func (r *Response) Set(key string, value any) error {
	switch key {
	case "status_code":
		code, ok := value.(int)
		if !ok {
			return fmt.Errorf("response status_code must be an int, got %T", value)
		}
		r.StatusCode = code
	case "status":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("response status must be a string, got %T", value)
		}
		r.Status = s
	case "headers":
		h, err := stringMap(value)
		if err != nil {
			return fmt.Errorf("response headers: %w", err)
		}
		r.Headers = h
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

// Index implements the scope lookup for a response.
func (r *Response) Index(key string) (any, bool) {
	return r.Get(key)
}

// Map returns the response as a plain mapping.
func (r *Response) Map() map[string]any {
	m := map[string]any{
		"status_code": r.StatusCode,
		"status":      r.Status,
		"headers":     r.Headers,
		"body":        r.Body,
		"elapsed_ms":  r.DurationMs(),
	}
	for k, v := range r.Extra {
		if _, reserved := m[k]; !reserved {
			m[k] = v
		}
	}
	return m
}
