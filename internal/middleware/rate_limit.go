package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/luckynumbers/api/internal/services"
	pkghttp "github.com/luckynumbers/api/pkg/http"
)

// RateLimitByClass counts the request against the fixed window for the given
// route class, keyed by client IP. Denials answer 429 with a Retry-After
// header and a structured body; nothing escapes as an error.
func RateLimitByClass(limiter *services.RateLimitService, class services.RouteClass) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := pkghttp.ExtractClientIP(r)

			res := limiter.Check(ip, class)
			if !res.Allowed {
				seconds := int(res.RetryAfter / time.Second)
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				pkghttp.WriteTooManyRequests(w, res.Message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GlobalFloodGuard is a coarse one-minute per-IP ceiling above the
// route-class windows, catching raw floods before any other work happens.
func GlobalFloodGuard(requestsPerMinute int) func(next http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many requests, please try again later")
		}),
	)
}
