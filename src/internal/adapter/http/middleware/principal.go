package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
)

const (
	RoleCustomer = "customer"
	RoleAgent    = "agent"
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// Principal is the authenticated caller. Subject is the wallet owner id
// issued by the identity service.
type Principal struct {
	Subject string
	Role    string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.Subject != ""
}

// Claims are the bearer token claims the ledger relies on.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for subject. Used by local tooling and
// tests; production tokens come from the identity service.
func IssueToken(secret []byte, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// JWTPrincipal validates the bearer token and stores its principal on the
// request context.
func JWTPrincipal(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if header == "" || raw == header {
				reject(w, http.StatusUnauthorized, CodeUnauthorized, "bearer token required")
				return
			}

			var claims Claims
			_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
			if err != nil {
				logger.Warn("jwt middleware rejected token", logger.Fields{
					"method":  r.Method,
					"path":    r.URL.Path,
					"expired": errors.Is(err, jwt.ErrTokenExpired),
				})
				reject(w, http.StatusUnauthorized, CodeUnauthorized, "invalid token")
				return
			}
			if strings.TrimSpace(claims.Subject) == "" {
				reject(w, http.StatusUnauthorized, CodeUnauthorized, "token has no subject")
				return
			}

			role := strings.ToLower(strings.TrimSpace(claims.Role))
			if role == "" {
				role = RoleCustomer
			}
			ctx := WithPrincipal(r.Context(), Principal{Subject: strings.TrimSpace(claims.Subject), Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole admits only principals holding one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				reject(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
				return
			}
			if _, ok := allowed[p.Role]; !ok {
				logger.Warn("role guard denied request", logger.Fields{
					"path":    r.URL.Path,
					"subject": p.Subject,
					"role":    p.Role,
				})
				reject(w, http.StatusForbidden, CodeForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
