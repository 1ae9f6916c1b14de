// Package auth resolves the principal behind each API request.
//
// With authentication disabled the principal is taken from a trusted proxy
// header carrying the caller's email (the part before the @ is used) and
// falls back to a configured default. With authentication enabled every
// request must carry "Authorization: Bearer <token>" and the token's owner
// becomes the principal.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// DefaultPrincipalHeader is the proxy header holding the caller's email
const DefaultPrincipalHeader = "X-Auth-Params-Email"

type principalKey struct{}

// WithPrincipal returns a context carrying the principal name
func WithPrincipal(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, principalKey{}, name)
}

// Principal returns the principal name stored in ctx, or "" when absent
func Principal(ctx context.Context) string {
	name, _ := ctx.Value(principalKey{}).(string)
	return name
}

// TokenVerifier checks a raw bearer token and returns the owning user's name
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (string, error)
}

// Options configures the middleware
type Options struct {
	Enabled          bool
	PrincipalHeader  string
	DefaultPrincipal string
}

// Middleware attaches the request principal to the request context
func Middleware(opts Options, verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	header := opts.PrincipalHeader
	if header == "" {
		header = DefaultPrincipalHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !opts.Enabled {
				name := principalFromEmail(r.Header.Get(header))
				if name == "" {
					name = opts.DefaultPrincipal
				}
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), name)))
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				respondUnauthorized(w, "Missing or invalid authorization header")
				return
			}
			if verifier == nil {
				respondUnauthorized(w, "Token authentication is not available")
				return
			}
			name, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Warn("token rejected",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				respondUnauthorized(w, "Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), name)))
		})
	}
}

func principalFromEmail(email string) string {
	email = strings.TrimSpace(email)
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"code":    http.StatusUnauthorized,
		"type":    "UNAUTHORIZED",
		"message": message,
	})
}
