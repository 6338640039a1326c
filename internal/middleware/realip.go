package middleware

import (
	"net"
	"net/http"
	"strings"
)

// RealIP extracts the client address, preferring proxy headers since the
// service runs behind a reverse proxy in production. Falls back to the
// socket peer.
func RealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		if ip := strings.TrimSpace(xff); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Fingerprint keys rate limiting to the client: address plus user agent, so
// distinct apps behind one NAT do not share a bucket.
func Fingerprint(r *http.Request) string {
	return RealIP(r) + "|" + r.UserAgent()
}
