package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubVerifier map[string]string

func (s stubVerifier) Verify(_ context.Context, raw string) (string, error) {
	if name, ok := s[raw]; ok {
		return name, nil
	}
	return "", errors.New("unknown token")
}

func serve(t *testing.T, opts Options, verifier TokenVerifier, req *http.Request) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seen string
	h := Middleware(opts, verifier, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = Principal(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddlewareHeaderPrincipal(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"email", "alice@example.com", "alice"},
		{"bare name", "bob", "bob"},
		{"missing", "", "admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(DefaultPrincipalHeader, tt.header)
			}
			rec, seen := serve(t, Options{DefaultPrincipal: "admin"}, nil, req)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, seen)
		})
	}
}

func TestMiddlewareBearer(t *testing.T) {
	opts := Options{Enabled: true}
	verifier := stubVerifier{"good": "ingestion-bot"}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec, seen := serve(t, opts, verifier, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ingestion-bot", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec, seen = serve(t, opts, verifier, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec, _ = serve(t, opts, verifier, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestPrincipalEmptyContext(t *testing.T) {
	assert.Equal(t, "", Principal(context.Background()))
	assert.Equal(t, "carol", Principal(WithPrincipal(context.Background(), "carol")))
}
