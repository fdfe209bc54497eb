package mid

import (
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// RateLimit returns middleware that admits requests through a shared
// token bucket. Rejected requests get onLimit, or a plain 429 when
// onLimit is nil. If prefixes are given only matching paths are limited.
func RateLimit(limiter *rate.Limiter, onLimit http.Handler, prefixes ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limited(r.URL.Path, prefixes) || limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", "1")
			if onLimit != nil {
				onLimit.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		})
	}
}

func limited(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
