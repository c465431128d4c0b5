package http

import (
	"net"
	"net/http"
	"strings"
)

// ExtractClientIP derives the client address for abuse tracking. The service
// runs behind a reverse proxy in production, so forwarded headers take
// precedence over the raw connection address:
//
//  1. first entry of X-Forwarded-For
//  2. X-Real-IP
//  3. RemoteAddr
func ExtractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if isValidIP(first) {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if isValidIP(xri) {
			return xri
		}
	}

	return getRemoteAddr(r)
}

// getRemoteAddr strips the port from RemoteAddr when present.
func getRemoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
