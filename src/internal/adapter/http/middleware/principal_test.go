package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func capture(seen *Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, _ = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func bearer(t *testing.T, subject, role string, ttl time.Duration) string {
	t.Helper()
	token, err := IssueToken(testSecret, subject, role, ttl)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestJWTPrincipalStoresSubjectAndRole(t *testing.T) {
	var seen Principal
	req := httptest.NewRequest(http.MethodGet, "/wallets/me", nil)
	req.Header.Set("Authorization", bearer(t, "U-A", "Agent", time.Minute))

	rr := httptest.NewRecorder()
	JWTPrincipal(testSecret)(capture(&seen)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, Principal{Subject: "U-A", Role: RoleAgent}, seen)
}

func TestJWTPrincipalDefaultsToCustomerRole(t *testing.T) {
	var seen Principal
	req := httptest.NewRequest(http.MethodGet, "/wallets/me", nil)
	req.Header.Set("Authorization", bearer(t, "U-B", "", time.Minute))

	rr := httptest.NewRecorder()
	JWTPrincipal(testSecret)(capture(&seen)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, RoleCustomer, seen.Role)
}

func TestJWTPrincipalRejects(t *testing.T) {
	otherKey, err := IssueToken([]byte("other"), "U-A", RoleCustomer, time.Minute)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "U-A"}).SignedString(testSecret)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "U-A",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"missing header": "",
		"not bearer":     "Token abc",
		"expired":        bearer(t, "U-A", RoleCustomer, -time.Minute),
		"wrong key":      "Bearer " + otherKey,
		"no expiry":      "Bearer " + noExpiry,
		"alg none":       "Bearer " + noneAlg,
		"no subject":     bearer(t, "", RoleCustomer, time.Minute),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/wallets/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rr := httptest.NewRecorder()
			JWTPrincipal(testSecret)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler must not run")
			})).ServeHTTP(rr, req)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	guard := RequireRole(RoleAdmin)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/loans/LN1/approve", nil)
	rr := httptest.NewRecorder()
	guard(ok).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	guard(ok).ServeHTTP(rr, req.WithContext(WithPrincipal(req.Context(), Principal{Subject: "U-A", Role: RoleCustomer})))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	guard(ok).ServeHTTP(rr, req.WithContext(WithPrincipal(req.Context(), Principal{Subject: "U-ADM", Role: RoleAdmin})))
	assert.Equal(t, http.StatusOK, rr.Code)
}
