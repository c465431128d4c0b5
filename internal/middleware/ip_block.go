package middleware

import (
	"fmt"
	"math"
	"net/http"

	"github.com/luckynumbers/api/internal/services"
	pkghttp "github.com/luckynumbers/api/pkg/http"
	pkglogger "github.com/luckynumbers/api/pkg/logger"
)

// CheckBlockedIP rejects requests from currently blocked IPs with a uniform
// forbidden response carrying the remaining minutes. The message never says
// which credential was wrong.
func CheckBlockedIP(tracker *services.AbuseTracker, auditLogger *pkglogger.AuditLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := pkghttp.ExtractClientIP(r)

			if blocked, remaining := tracker.IsBlocked(ip); blocked {
				auditLogger.LogBlockedAccess(ip, r.URL.Path)

				minutes := int(math.Ceil(remaining.Minutes()))
				pkghttp.WriteForbidden(w, fmt.Sprintf(
					"Your IP has been temporarily blocked due to multiple failed login attempts. Please try again in %d minutes.",
					minutes))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
