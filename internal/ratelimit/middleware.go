package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Middleware gates requests through the limiter keyed by client IP.
// Backend errors fail open.
func Middleware(limiter Limiter, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), "ip:"+ClientIP(r))
			if err != nil && log != nil {
				log.WithError(err).Warn("rate limiter backend error, failing open")
			}
			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"status":  "error",
					"message": "Too many authentication attempts. Please try again later.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP strips the port from RemoteAddr. chi's RealIP middleware has
// already rewritten RemoteAddr from X-Forwarded-For when present.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
