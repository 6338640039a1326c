package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/doyonlabs/lynqrate-flow-site/internal/config"
	"github.com/doyonlabs/lynqrate-flow-site/internal/database"
	"github.com/doyonlabs/lynqrate-flow-site/internal/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	issuer, err := session.NewIssuer("test-secret")
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	cfg := &config.Config{
		SessionSecret: "test-secret",
		WebhookSecret: "hook-secret",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, cfg, issuer, logger)
	t.Cleanup(srv.Close)
	return srv
}

func TestRouter(t *testing.T) {
	router := newTestServer(t).Router()

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/api/webhook", http.StatusMethodNotAllowed},
		{"DELETE", "/api/webhook", http.StatusMethodNotAllowed},
		{"POST", "/api/webhook", http.StatusUnauthorized}, // no token
		{"GET", "/api/status", http.StatusBadRequest},
		{"GET", "/api/revisit", http.StatusOK},
		{"GET", "/api/feedback", http.StatusUnauthorized},
		{"GET", "/api/resolve-user", http.StatusBadRequest},
		{"GET", "/nope", http.StatusNotFound},
	}
	for _, c := range cases {
		r := httptest.NewRequest(c.method, c.path, nil)
		r.RemoteAddr = "203.0.113.9:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		if w.Code != c.want {
			t.Errorf("%s %s: status = %d, want %d", c.method, c.path, w.Code, c.want)
		}
	}
}
