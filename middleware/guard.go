package middleware

import (
	"context"
	"net/http"
	"strings"

	goVault "github.com/MrEthical07/goVault"
)

type securityContextKey struct{}

// SecurityContextFromContext returns the security context injected by [Guard]
// for a request that passed validation.
func SecurityContextFromContext(ctx context.Context) (*goVault.SecurityContext, bool) {
	sc, ok := ctx.Value(securityContextKey{}).(*goVault.SecurityContext)
	return sc, ok
}

// Allowlist names the request paths that bypass token validation: the
// authentication endpoints themselves plus unauthenticated surfaces.
type Allowlist struct {
	Exact    []string
	Prefixes []string
}

// Allows reports whether a path may skip validation.
func (a Allowlist) Allows(path string) bool {
	for _, p := range a.Exact {
		if path == p {
			return true
		}
	}
	for _, prefix := range a.Prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// DefaultAllowlist covers the login endpoints, the health check, and static
// surfaces. Everything else requires a valid bearer token.
func DefaultAllowlist() Allowlist {
	return Allowlist{
		Exact: []string{
			"/healthcheck",
			"/robots.txt",
			"/v2/auth/user",
			"/v2/auth/mfa_check",
			"/v2/auth/iam-principal",
		},
		Prefixes: []string{
			"/dashboard/",
		},
	}
}

// Guard enforces bearer-token validation on every request whose path is not
// allowlisted, injecting the resulting security context into the request
// context on success.
func Guard(engine *goVault.Engine, allowlist Allowlist) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowlist.Allows(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := goVault.WithClientIP(r.Context(), clientIP(r))
			sc, err := engine.Validate(ctx, token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, securityContextKey{}, sc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if idx := strings.LastIndexByte(host, ':'); idx >= 0 {
		return host[:idx]
	}
	return host
}
