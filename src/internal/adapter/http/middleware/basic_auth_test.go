package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basic(id, key string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(id+":"+key))
}

func TestBasicAuth_AllowsValidCredentials(t *testing.T) {
	var seen Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/internal/charge-bands/reload", nil)
	req.Header.Set("Authorization", basic("LedgerOps", "LedgerOpsKey001"))

	rr := httptest.NewRecorder()
	BasicAuth("LedgerOps", "LedgerOpsKey001")(next).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, Principal{Subject: "channel:LedgerOps", Role: RoleOperator}, seen)
}

func TestBasicAuth_RejectsInvalidCredentials(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodPost, "/internal/charge-bands/reload", nil)
	req.Header.Set("Authorization", basic("LedgerOps", "WrongKey"))

	rr := httptest.NewRecorder()
	BasicAuth("LedgerOps", "LedgerOpsKey001")(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code":"UNAUTHORIZED"`)
}

func TestBasicAuth_MissingConfiguration(t *testing.T) {
	rr := httptest.NewRecorder()
	BasicAuth("", "")(http.NotFoundHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
