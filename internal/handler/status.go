package handler

import (
	"log/slog"
	"net/http"

	"github.com/doyonlabs/lynqrate-flow-site/internal/model"
	"github.com/doyonlabs/lynqrate-flow-site/internal/store"
)

// StatusHandler serves the polling endpoint clients hit after a form submit
// until the submission leaves pending.
type StatusHandler struct {
	submissions *store.SubmissionStore
	logger      *slog.Logger
}

func NewStatusHandler(submissions *store.SubmissionStore, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{submissions: submissions, logger: logger.With("component", "status")}
}

func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	// Polled responses must never be cached.
	w.Header().Set("Cache-Control", "no-store")

	sid := r.URL.Query().Get("sid")
	if sid == "" {
		writeError(w, http.StatusBadRequest, "sid_required")
		return
	}

	st, err := h.submissions.GetState(sid)
	if err != nil {
		h.logger.Error("state lookup failed", "error", err, "sid", sid)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	// No row yet means the webhook has not landed; keep the client polling.
	if st == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": model.SubmissionPending})
		return
	}

	switch st.Status {
	case model.SubmissionReady:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":           st.Status,
			"emotion_entry_id": st.EmotionEntryID,
			"updated_at":       st.UpdatedAt,
		})
	case model.SubmissionFail:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     st.Status,
			"reason":     st.Reason,
			"updated_at": st.UpdatedAt,
		})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"status": model.SubmissionPending})
	}
}
