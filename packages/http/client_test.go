package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hookspec/packages/core/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "sig", r.Header.Get("X-Signature"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "book", payload["item"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data": {"id": 123}}`))
	}))
	defer server.Close()

	req := NewRequest("post", "/api/orders")
	req.SetQueryParam("page", "2")
	req.SetHeader("X-Signature", "sig")
	req.SetBody(map[string]any{"item": "book"})

	client := NewClient(WithBaseURL(server.URL))
	resp, err := client.Send(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header("content-type"))
	assert.Equal(t, map[string]any{"data": map[string]any{"id": float64(123)}}, resp.Body)
	assert.Contains(t, resp.BodyString(), "123")
}

func TestClient_SendText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "a=1&b=2", string(body))
		assert.Empty(t, r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte("plain response"))
	}))
	defer server.Close()

	req := NewRequest("PUT", server.URL)
	req.SetBody("a=1&b=2")

	resp, err := NewClient().Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "plain response", resp.Body)
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithTimeout(50 * time.Millisecond))
	_, err := client.Send(context.Background(), NewRequest("GET", server.URL))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "context deadline exceeded")
	assert.Equal(t, errs.KindExternal, errs.KindOf(err))
}

func TestClient_RequestTimeoutOverridesClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithTimeout(time.Second))
	req := NewRequest("GET", server.URL).SetTimeout(20 * time.Millisecond)
	_, err := client.Send(context.Background(), req)
	assert.Error(t, err)
}

func TestClient_DefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "override", r.Header.Get("Authorization"))
		assert.Equal(t, "hookspec", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(
		WithDefaultHeaders(map[string]string{"Authorization": "default", "User-Agent": "hookspec"}),
	)
	req := NewRequest("GET", server.URL).SetHeader("Authorization", "override")
	resp, err := client.Send(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestClient_Redirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/final" {
			_, _ = w.Write([]byte(`final`))
			return
		}
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	resp, err := NewClient().Send(context.Background(), NewRequest("GET", server.URL+"/start"))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "final", resp.BodyString())

	resp, err = NewClient(WithFollowRedirects(false)).Send(context.Background(), NewRequest("GET", server.URL+"/start"))
	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
}

func TestClient_InvalidURL(t *testing.T) {
	_, err := NewClient().Send(context.Background(), NewRequest("GET", "/relative/without/base"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported URL scheme")
	assert.Equal(t, errs.KindExternal, errs.KindOf(err))
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{name: "valid http URL", url: "http://example.com/path"},
		{name: "valid https URL", url: "https://example.com/path"},
		{name: "invalid scheme", url: "ftp://example.com", wantErr: "unsupported URL scheme"},
		{name: "missing scheme", url: "example.com/path", wantErr: "unsupported URL scheme"},
		{name: "missing host", url: "http:///path", wantErr: "URL must have a host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
