package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/ratelimit"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
)

type Limiter interface {
	Consume(ctx context.Context, scope, subject string, limit int, window time.Duration) (ratelimit.Decision, error)
}

// RateLimit counts requests per principal, or per client address for
// anonymous calls. A limiter failure lets the request through.
func RateLimit(limiter Limiter, scope string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := clientAddress(r)
			if p, ok := PrincipalFrom(r.Context()); ok {
				subject = p.Subject
			}

			decision, err := limiter.Consume(r.Context(), scope, subject, limit, window)
			if err != nil {
				logger.Error("rate limiter unavailable", err, logger.Fields{"scope": scope, "path": r.URL.Path})
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			remaining := limit - decision.Count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !decision.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter/time.Second)))
				logger.Warn("rate limit exceeded", logger.Fields{"scope": scope, "subject": subject, "count": decision.Count})
				reject(w, http.StatusTooManyRequests, CodeRateLimited, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
