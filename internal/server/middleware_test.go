package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireToken(t *testing.T) {
	srv := newTestServer(t, nil, Config{APITokens: []string{"alpha", "beta"}})

	tests := []struct {
		name   string
		target string
		header map[string]string
		want   int
	}{
		{"root is open", "/", nil, http.StatusOK},
		{"health is open", "/health", nil, http.StatusOK},
		{"missing token", "/streets", nil, http.StatusUnauthorized},
		{"bearer", "/streets", map[string]string{"Authorization": "Bearer alpha"}, http.StatusOK},
		{"second token", "/streets", map[string]string{"Authorization": "Bearer beta"}, http.StatusOK},
		{"wrong bearer", "/streets", map[string]string{"Authorization": "Bearer gamma"}, http.StatusUnauthorized},
		{"basic scheme", "/streets", map[string]string{"Authorization": "Basic alpha"}, http.StatusUnauthorized},
		{"api key header", "/streets", map[string]string{"X-API-Key": "beta"}, http.StatusOK},
		{"query token", "/streets?token=alpha", nil, http.StatusOK},
		{"prefix of token", "/streets?token=alph", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rr := do(t, srv, req)
			assert.Equal(t, tt.want, rr.Code)
			if tt.want == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"unauthorized"}`, rr.Body.String())
			}
		})
	}
}

func TestRequireToken_NoneConfigured(t *testing.T) {
	srv := newTestServer(t, nil, Config{APITokens: []string{""}})
	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/streets", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequestID_Propagated(t *testing.T) {
	srv := newTestServer(t, nil, Config{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")

	rr := do(t, srv, req)
	assert.Equal(t, "req-123", rr.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, nil, Config{CORSOrigins: []string{"https://clubs.example.org"}})

	req := httptest.NewRequest(http.MethodOptions, "/check", nil)
	req.Header.Set("Origin", "https://clubs.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := do(t, srv, req)

	assert.Equal(t, "https://clubs.example.org", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = do(t, srv, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
