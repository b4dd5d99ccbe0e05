package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/http/middleware"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/http/models"
	"github.com/steve-ongera/mpesa-ledger/src/internal/commons"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
)

const maxBodyBytes = 64 << 10

var kindStatus = map[domain.ErrorKind]int{
	domain.KindNotFound:             http.StatusNotFound,
	domain.KindInvalidAmount:        http.StatusUnprocessableEntity,
	domain.KindInsufficientFunds:    http.StatusUnprocessableEntity,
	domain.KindLimitExceeded:        http.StatusUnprocessableEntity,
	domain.KindInactiveAccount:      http.StatusForbidden,
	domain.KindForbidden:            http.StatusForbidden,
	domain.KindDuplicateTransaction: http.StatusConflict,
	domain.KindInvalidState:         http.StatusConflict,
	domain.KindInvalidRequest:       http.StatusBadRequest,
	domain.KindPersistenceFailure:   http.StatusInternalServerError,
}

func statusFor(kind domain.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respond[T any](w http.ResponseWriter, r *http.Request, status int, message string, data T, start time.Time) {
	response := commons.SuccessResponse(message, data)
	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}

// respondError writes the envelope for a service failure. Persistence
// failures never expose driver detail.
func respondError(w http.ResponseWriter, r *http.Request, err error, start time.Time) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	message := domain.Describe(err)
	if kind == domain.KindPersistenceFailure {
		message = "unable to process request right now"
	}

	logError(r, err, logger.Fields{"kind": string(kind), "status": status})
	response := commons.CodedErrorResponse[struct{}](string(kind), message)
	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}

func respondInvalid(w http.ResponseWriter, r *http.Request, message string, errs []string, start time.Time) {
	response := commons.CodedErrorResponse[struct{}](string(domain.KindInvalidRequest), message, errs...)
	writeJSON(w, http.StatusBadRequest, response)
	logResponse(r, http.StatusBadRequest, response, start)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, start time.Time) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logError(r, err, nil)
		respondInvalid(w, r, "invalid request body", []string{err.Error()}, start)
		return false
	}
	return true
}

func validate(w http.ResponseWriter, r *http.Request, req interface{ Validate() error }, start time.Time) bool {
	if err := req.Validate(); err != nil {
		respondInvalid(w, r, "validation failed", models.Errors(err), start)
		return false
	}
	return true
}

// caller returns the authenticated principal. Routes are mounted behind the
// principal middleware, so a miss is a wiring error.
func caller(w http.ResponseWriter, r *http.Request, start time.Time) (middleware.Principal, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		response := commons.CodedErrorResponse[struct{}](middleware.CodeUnauthorized, "authentication required")
		writeJSON(w, http.StatusUnauthorized, response)
		logResponse(r, http.StatusUnauthorized, response, start)
	}
	return p, ok
}

func isStaff(p middleware.Principal) bool {
	return p.Role == middleware.RoleAdmin || p.Role == middleware.RoleOperator
}

func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("limit")))
	if err != nil {
		return 0
	}
	return n
}

// requestID prefers the Idempotency-Key header over the body field.
func requestID(r *http.Request, fromBody string) string {
	if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" {
		return key
	}
	return strings.TrimSpace(fromBody)
}
