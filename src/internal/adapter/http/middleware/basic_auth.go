package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
)

// BasicAuth guards the operator endpoints under /internal with the channel
// credentials.
func BasicAuth(channelID, channelKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if channelID == "" || channelKey == "" {
				logger.Error("basic auth middleware missing server configuration", nil, logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				reject(w, http.StatusInternalServerError, CodeMisconfigured, "server auth configuration is missing")
				return
			}

			id, key, ok := r.BasicAuth()
			if !ok || !secureEqual(id, channelID) || !secureEqual(key, channelKey) {
				logger.Warn("basic auth middleware unauthorized request", logger.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"credentials": "invalid_or_missing",
				})
				w.Header().Set("WWW-Authenticate", `Basic realm="ledger-internal"`)
				reject(w, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{Subject: "channel:" + id, Role: RoleOperator})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
