package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_GetSet(t *testing.T) {
	req := &Request{Method: "GET", URL: "http://api"}

	headers := req.EnsureHeaders()
	headers["X-Timestamp"] = "1700000000"
	assert.Equal(t, "1700000000", req.Header("x-timestamp"))

	require.NoError(t, req.Set("method", "post"))
	require.NoError(t, req.Set("params", map[string]any{"page": 2}))
	require.NoError(t, req.Set("trace_id", "abc"))
	assert.Error(t, req.Set("url", 42))
	assert.Error(t, req.Set("headers", "not a map"))

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, map[string]string{"page": "2"}, req.Params)

	v, ok := req.Get("trace_id")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	v, ok = req.Index("url")
	assert.True(t, ok)
	assert.Equal(t, "http://api", v)

	_, ok = req.Get("missing")
	assert.False(t, ok)

	m := req.Map()
	assert.Equal(t, "POST", m["method"])
	assert.Equal(t, "abc", m["trace_id"])
}

func TestRequest_Clone(t *testing.T) {
	req := NewRequest("GET", "http://api").SetHeader("A", "1")
	clone := req.Clone()
	clone.SetHeader("A", "2")

	assert.Equal(t, "1", req.Headers["A"])
	assert.Equal(t, "2", clone.Headers["A"])
}

func TestRequest_BuildURL(t *testing.T) {
	req := NewRequest("GET", "http://api/users?sort=asc")
	assert.Equal(t, "http://api/users?sort=asc", req.BuildURL())

	req.SetQueryParam("page", "3")
	assert.Equal(t, "http://api/users?page=3&sort=asc", req.BuildURL())
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"http://api", "/users", "http://api/users"},
		{"http://api/", "users", "http://api/users"},
		{"http://api", "https://other/x", "https://other/x"},
		{"", "/users", "/users"},
		{"http://api", "", "http://api"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, JoinURL(tt.base, tt.ref))
	}
}

func TestResponse_Fields(t *testing.T) {
	resp := NewResponse(200, "200 OK", map[string]string{"Content-Type": "application/json"}, []byte(`{"ok":true}`), 0)

	v, ok := resp.Index("status_code")
	assert.True(t, ok)
	assert.Equal(t, 200, v)
	assert.Equal(t, map[string]any{"ok": true}, resp.Body)
	assert.True(t, resp.IsJSON())

	require.NoError(t, resp.Set("note", "kept"))
	v, ok = resp.Get("note")
	assert.True(t, ok)
	assert.Equal(t, "kept", v)

	assert.Error(t, resp.Set("status_code", "200"))

	empty := NewResponse(204, "204 No Content", nil, nil, 0)
	assert.Equal(t, "", empty.Body)
	assert.NotNil(t, empty.Headers)
}

func TestResponse_StatusClasses(t *testing.T) {
	tests := []struct {
		statusCode int
		success    bool
		client     bool
		server     bool
	}{
		{200, true, false, false},
		{299, true, false, false},
		{300, false, false, false},
		{404, false, true, false},
		{503, false, false, true},
	}

	for _, tt := range tests {
		resp := &Response{StatusCode: tt.statusCode}
		assert.Equal(t, tt.success, resp.IsSuccess(), "StatusCode: %d", tt.statusCode)
		assert.Equal(t, tt.client, resp.IsClientError(), "StatusCode: %d", tt.statusCode)
		assert.Equal(t, tt.server, resp.IsServerError(), "StatusCode: %d", tt.statusCode)
	}
}

func TestParseFormBody(t *testing.T) {
	assert.Equal(t, map[string]string{"a": "1", "b c": "d"}, ParseFormBody("a=1&b+c=d&skip"))
}
