package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/doyonlabs/lynqrate-flow-site/internal/config"
	"github.com/doyonlabs/lynqrate-flow-site/internal/handler"
	"github.com/doyonlabs/lynqrate-flow-site/internal/middleware"
	"github.com/doyonlabs/lynqrate-flow-site/internal/ratelimit"
	"github.com/doyonlabs/lynqrate-flow-site/internal/revisit"
	"github.com/doyonlabs/lynqrate-flow-site/internal/session"
	"github.com/doyonlabs/lynqrate-flow-site/internal/store"
)

// cleanupInterval is how often long-idle rate-limit keys are swept. The
// sweep window matches the widest policy tier so no live key is dropped.
const cleanupInterval = time.Hour

type Server struct {
	db       *sql.DB
	webhookH *handler.WebhookHandler
	statusH  *handler.StatusHandler
	revisitH *handler.RevisitHandler
	feedH    *handler.FeedbackHandler
	resolveH *handler.ResolveHandler
	limiter  *ratelimit.Memory
	policies ratelimit.Policies
	logger   *slog.Logger
	stop     chan struct{}
}

func New(db *sql.DB, cfg *config.Config, issuer *session.Issuer, logger *slog.Logger) *Server {
	passes := store.NewPassStore(db)
	entries := store.NewEntryStore(db)
	codes := store.NewRevisitCodeStore(db)
	emotions := store.NewEmotionStore(db)
	submissions := store.NewSubmissionStore(db)
	digests := store.NewDigestStore(db)

	limiter := ratelimit.NewMemory()
	policies := ratelimit.DefaultPolicies(ratelimit.Overrides{
		RevisitPerMin:  cfg.RevisitPerMin,
		RevisitPerHour: cfg.RevisitPerHour,
		RevisitPerDay:  cfg.RevisitPerDay,
		CodePerMin:     cfg.CodePerMin,
		WebhookPerMin:  cfg.WebhookPerMin,
	})

	manager := revisit.NewManager(passes, codes)

	return &Server{
		db:       db,
		webhookH: handler.NewWebhookHandler(passes, submissions, limiter, policies.WebhookPerIP, cfg.WebhookSecret, logger),
		statusH:  handler.NewStatusHandler(submissions, logger),
		revisitH: handler.NewRevisitHandler(manager, entries, passes, issuer, limiter, policies, cfg.Production, logger),
		feedH:    handler.NewFeedbackHandler(passes, entries, emotions, digests, issuer, logger),
		resolveH: handler.NewResolveHandler(passes, entries, submissions, logger),
		limiter:  limiter,
		policies: policies,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/webhook", s.webhookH.Ingest)
	mux.HandleFunc("/api/webhook", s.webhookH.MethodNotAllowed)

	mux.HandleFunc("GET /api/status", s.statusH.Get)
	mux.HandleFunc("POST /api/revisit/login", s.revisitH.Login)
	mux.HandleFunc("POST /api/revisit", s.revisitH.Issue)
	mux.HandleFunc("GET /api/revisit", s.revisitH.Ping)
	mux.HandleFunc("GET /api/feedback", s.feedH.Get)
	mux.HandleFunc("GET /api/resolve-user", s.resolveH.Get)

	mux.HandleFunc("GET /health", s.healthHandler)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// StartCleanup sweeps idle rate-limit keys until Close is called.
func (s *Server) StartCleanup() {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.limiter.Cleanup(s.policies.UserDaily.Window)
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Server) Close() {
	close(s.stop)
}
