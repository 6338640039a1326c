package middleware

import (
	"net/http/httptest"
	"testing"
)

func TestRealIP(t *testing.T) {
	cases := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{name: "forwarded single", xff: "203.0.113.9", remote: "10.0.0.1:1234", want: "203.0.113.9"},
		{name: "forwarded chain takes first", xff: "203.0.113.9, 10.0.0.2", remote: "10.0.0.1:1234", want: "203.0.113.9"},
		{name: "real ip header", xri: "198.51.100.4", remote: "10.0.0.1:1234", want: "198.51.100.4"},
		{name: "socket fallback", remote: "192.0.2.7:5678", want: "192.0.2.7"},
		{name: "unparseable remote", remote: "garbage", want: "garbage"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = c.remote
			if c.xff != "" {
				r.Header.Set("X-Forwarded-For", c.xff)
			}
			if c.xri != "" {
				r.Header.Set("X-Real-Ip", c.xri)
			}
			if got := RealIP(r); got != c.want {
				t.Errorf("RealIP = %q, want %q", got, c.want)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.7:5678"
	r.Header.Set("User-Agent", "test-agent")
	if got := Fingerprint(r); got != "192.0.2.7|test-agent" {
		t.Errorf("Fingerprint = %q", got)
	}
}
