package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/doyonlabs/lynqrate-flow-site/internal/middleware"
	"github.com/doyonlabs/lynqrate-flow-site/internal/model"
	"github.com/doyonlabs/lynqrate-flow-site/internal/ratelimit"
	"github.com/doyonlabs/lynqrate-flow-site/internal/revisit"
	"github.com/doyonlabs/lynqrate-flow-site/internal/session"
	"github.com/doyonlabs/lynqrate-flow-site/internal/store"
)

// Artificial delays before answering a limited login attempt, to blunt
// automated retries.
const (
	limitDelayClient = 300 * time.Millisecond
	limitDelayCode   = 500 * time.Millisecond
)

// RevisitHandler owns revisit-code login and issuance.
type RevisitHandler struct {
	manager  *revisit.Manager
	entries  *store.EntryStore
	passes   *store.PassStore
	issuer   *session.Issuer
	limiter  ratelimit.Store
	policies ratelimit.Policies
	secure   bool
	logger   *slog.Logger
	sleep    func(time.Duration)
}

func NewRevisitHandler(
	manager *revisit.Manager,
	entries *store.EntryStore,
	passes *store.PassStore,
	issuer *session.Issuer,
	limiter ratelimit.Store,
	policies ratelimit.Policies,
	secure bool,
	logger *slog.Logger,
) *RevisitHandler {
	return &RevisitHandler{
		manager:  manager,
		entries:  entries,
		passes:   passes,
		issuer:   issuer,
		limiter:  limiter,
		policies: policies,
		secure:   secure,
		logger:   logger.With("component", "revisit"),
		sleep:    time.Sleep,
	}
}

func (h *RevisitHandler) limited(w http.ResponseWriter, key string, p ratelimit.Policy, delay time.Duration) bool {
	res := ratelimit.Limited(h.limiter, key, p.Window, p.Max)
	if !res.Limited {
		return false
	}
	h.sleep(delay)
	w.Header().Set("Retry-After", strconv.Itoa(p.RetryAfterSeconds()))
	writeError(w, http.StatusTooManyRequests, "rate_limited")
	return true
}

// Login redeems a revisit code for a 12 hour session.
func (h *RevisitHandler) Login(w http.ResponseWriter, r *http.Request) {
	// First two gates run before identity is known: one on the client
	// fingerprint, one on the submitted code itself so a single leaked
	// code cannot be brute-forced from many clients.
	if h.limited(w, "login:client:"+middleware.Fingerprint(r), h.policies.ClientShort, limitDelayClient) {
		return
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "CODE_REQUIRED")
		return
	}
	if body.Code != "" {
		if h.limited(w, "login:code:"+body.Code, h.policies.PerCode, limitDelayCode) {
			return
		}
	}

	pass, err := h.manager.Redeem(body.Code)
	if err != nil {
		switch {
		case errors.Is(err, revisit.ErrCodeRequired):
			writeError(w, http.StatusBadRequest, "CODE_REQUIRED")
		case errors.Is(err, revisit.ErrInvalidCode):
			writeError(w, http.StatusUnauthorized, "INVALID_CODE")
		case errors.Is(err, revisit.ErrExpiredOrRevoked):
			writeError(w, http.StatusGone, "EXPIRED_OR_REVOKED")
		case errors.Is(err, revisit.ErrPassNotFound):
			writeError(w, http.StatusNotFound, "PASS_NOT_FOUND")
		default:
			h.logger.Error("redeem failed", "error", err)
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}

	// Defense in depth once the owning user is resolved.
	if h.limited(w, "login:user:hour:"+pass.UserID, h.policies.UserHourly, limitDelayCode) {
		return
	}
	if h.limited(w, "login:user:day:"+pass.UserID, h.policies.UserDaily, 0) {
		return
	}

	token, err := h.issuer.Issue(pass.ID, session.LoginMaxAge)
	if err != nil {
		h.logger.Error("token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	session.SetCookie(w, token, session.LoginMaxAge, h.secure)

	h.logger.Info("revisit login", "pass_id", pass.ID)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "pass_id": pass.ID})
}

// Ping lets the thank-you page probe the route before posting.
func (h *RevisitHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Issue resolves a journal entry to its pass, issues or reuses that user's
// revisit code, and opens a session-scoped cookie so the dashboard loads
// straight from the form's thank-you page.
func (h *RevisitHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EntryID string `json:"entry_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.EntryID == "" {
		writeError(w, http.StatusBadRequest, "entry_id_required")
		return
	}

	entry, err := h.entries.GetByID(body.EntryID)
	if err != nil {
		h.logger.Error("entry lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "entry_not_found")
		return
	}

	pass, err := h.resolvePass(entry.PassID, entry.UserID)
	if err != nil {
		h.logger.Error("pass lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if pass == nil {
		writeError(w, http.StatusNotFound, "pass_not_found")
		return
	}

	code, err := h.manager.IssueOrReuse(r.Context(), pass.ID)
	if err != nil {
		h.logger.Error("code issue failed", "error", err, "pass_id", pass.ID)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	token, err := h.issuer.Issue(pass.ID, session.LoginMaxAge)
	if err != nil {
		h.logger.Error("token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	// Session-scoped on this path; the explicit lifetime is for logins.
	session.SetCookie(w, token, 0, h.secure)

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"revisit_code": code.Code,
		"expires_at":   code.ExpiresAt,
	})
}

// resolvePass prefers the pass the entry was submitted under, falling back
// to the user's newest pass for entries written before pass linkage existed.
func (h *RevisitHandler) resolvePass(passID *string, userID string) (*model.Pass, error) {
	if passID != nil {
		pass, err := h.passes.GetByID(*passID)
		if err != nil || pass != nil {
			return pass, err
		}
	}
	return h.passes.GetLatestByUser(userID)
}
