package handler

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/doyonlabs/lynqrate-flow-site/internal/middleware"
	"github.com/doyonlabs/lynqrate-flow-site/internal/model"
	"github.com/doyonlabs/lynqrate-flow-site/internal/ratelimit"
	"github.com/doyonlabs/lynqrate-flow-site/internal/store"
)

// Answer field matching. The form tool's field keys are not stable across
// form edits, so after the exact key match we fall back to a label match on
// the marker the pass-code question always carries.
const (
	codeFieldKey    = "uuid_code"
	codeLabelMarker = "이용권"
)

// Terminal webhook verdicts.
const (
	ReasonNotFound = "not_found"
	ReasonInactive = "inactive"
	ReasonNoUses   = "no_uses"
	ReasonExpired  = "expired"
)

// WebhookHandler authenticates inbound form submissions and gates them on
// pass eligibility. It only gates and records; entry creation and analytics
// stay out of this path.
type WebhookHandler struct {
	passes      *store.PassStore
	submissions *store.SubmissionStore
	limiter     ratelimit.Store
	policy      ratelimit.Policy
	secret      string
	logger      *slog.Logger
	now         func() time.Time
}

func NewWebhookHandler(
	passes *store.PassStore,
	submissions *store.SubmissionStore,
	limiter ratelimit.Store,
	policy ratelimit.Policy,
	secret string,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		passes:      passes,
		submissions: submissions,
		limiter:     limiter,
		policy:      policy,
		secret:      secret,
		logger:      logger.With("component", "webhook"),
		now:         time.Now,
	}
}

type webhookAnswer struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Question string `json:"question"`
	Value    string `json:"value"`
}

type webhookPayload struct {
	Data struct {
		ResponseID string          `json:"responseId"`
		Answers    []webhookAnswer `json:"answers"`
	} `json:"data"`
}

// Ingest handles POST deliveries from the form provider.
func (h *WebhookHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	start := h.now()

	token := r.URL.Query().Get("token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
		writeError(w, http.StatusUnauthorized, "bad_token")
		return
	}

	ip := middleware.RealIP(r)
	if res := ratelimit.Limited(h.limiter, "webhook:"+ip, h.policy.Window, h.policy.Max); res.Limited {
		w.Header().Set("Retry-After", strconv.Itoa(h.policy.RetryAfterSeconds()))
		writeError(w, http.StatusTooManyRequests, "rate_limited")
		return
	}

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Data.ResponseID == "" || payload.Data.Answers == nil {
		writeError(w, http.StatusBadRequest, "malformed_payload")
		return
	}

	sid := payload.Data.ResponseID
	code := pickCode(payload.Data.Answers)

	pass, err := h.lookupPass(code)
	if err != nil {
		h.logger.Error("pass lookup failed", "error", err, "sid", sid)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	status, reason := classify(pass, h.now())

	var reasonPtr, passIDPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	if pass != nil {
		passIDPtr = &pass.ID
	}

	rec := model.SubmissionRecord{
		Code:      code,
		Status:    status,
		Reason:    reasonPtr,
		IP:        ip,
		UserAgent: r.UserAgent(),
		LatencyMS: h.now().Sub(start).Milliseconds(),
		PassID:    passIDPtr,
	}
	if err := h.submissions.RecordHistory(rec); err != nil {
		h.logger.Error("audit write failed", "error", err, "sid", sid)
	}

	// A passing submission goes to pending until the form pipeline creates
	// the journal entry and flips it to ready.
	stateStatus := model.SubmissionFail
	if status == "pass" {
		stateStatus = model.SubmissionPending
	}
	if _, err := h.submissions.UpsertState(sid, code, stateStatus, reasonPtr, passIDPtr); err != nil {
		h.logger.Error("state upsert failed", "error", err, "sid", sid)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	h.logger.Info("submission gated", "sid", sid, "status", status, "reason", reason)

	resp := map[string]any{"status": status, "sid": sid}
	if reason != "" {
		resp["reason"] = reason
	}
	writeJSON(w, http.StatusOK, resp)
}

// MethodNotAllowed answers probes that GET the webhook route.
func (h *WebhookHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
}

func (h *WebhookHandler) lookupPass(code string) (*model.Pass, error) {
	if code == "" {
		return nil, nil
	}
	return h.passes.GetByCode(code)
}

// pickCode extracts the redemption code from the submitted answers.
func pickCode(answers []webhookAnswer) string {
	for _, a := range answers {
		if strings.EqualFold(a.Key, codeFieldKey) {
			return strings.TrimSpace(a.Value)
		}
	}
	for _, a := range answers {
		if strings.Contains(a.Label, codeLabelMarker) || strings.Contains(a.Question, codeLabelMarker) {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

// classify maps a pass to exactly one terminal verdict. The checks are
// ordered; the first failure wins. A pass on its final use is honored even
// past its expiry date.
func classify(pass *model.Pass, now time.Time) (status, reason string) {
	switch {
	case pass == nil:
		return model.SubmissionFail, ReasonNotFound
	case !pass.IsActive:
		return model.SubmissionFail, ReasonInactive
	case pass.RemainingUses <= 0:
		return model.SubmissionFail, ReasonNoUses
	case pass.RemainingUses != 1 && pass.ExpiresAt != nil && !pass.ExpiresAt.After(now):
		return model.SubmissionFail, ReasonExpired
	default:
		return "pass", ""
	}
}
