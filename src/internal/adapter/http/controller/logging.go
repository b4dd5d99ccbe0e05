package controller

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/http/middleware"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
)

func requestFields(r *http.Request) logger.Fields {
	fields := logger.Fields{
		"method":    r.Method,
		"path":      r.URL.Path,
		"requestId": chimiddleware.GetReqID(r.Context()),
	}
	if p, ok := middleware.PrincipalFrom(r.Context()); ok {
		fields["subject"] = p.Subject
	}
	return fields
}

func logRequest(r *http.Request, payload any) {
	fields := requestFields(r)
	fields["query"] = r.URL.RawQuery
	fields["payload"] = logger.SanitizePayload(payload)
	logger.Info("http request", fields)
}

func logResponse(r *http.Request, status int, payload any, start time.Time) {
	fields := requestFields(r)
	fields["status"] = status
	fields["durationMs"] = time.Since(start).Milliseconds()
	fields["response"] = logger.SanitizePayload(payload)
	logger.Info("http response", fields)
}

func logError(r *http.Request, err error, extra logger.Fields) {
	fields := requestFields(r)
	for k, v := range extra {
		fields[k] = v
	}
	logger.Error("http handler error", err, fields)
}
