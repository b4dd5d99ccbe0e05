package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/steve-ongera/mpesa-ledger/src/internal/commons"
)

const (
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeRateLimited   = "RATE_LIMITED"
	CodeMisconfigured = "SERVER_MISCONFIGURED"
)

func reject(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(commons.CodedErrorResponse[struct{}](code, message))
}
