package handler

import (
	"log/slog"
	"net/http"

	"github.com/doyonlabs/lynqrate-flow-site/internal/store"
)

// ResolveHandler maps the identifiers clients may hold after a form submit
// (entry id, redemption code, submission id) to the owning user.
type ResolveHandler struct {
	passes      *store.PassStore
	entries     *store.EntryStore
	submissions *store.SubmissionStore
	logger      *slog.Logger
}

func NewResolveHandler(
	passes *store.PassStore,
	entries *store.EntryStore,
	submissions *store.SubmissionStore,
	logger *slog.Logger,
) *ResolveHandler {
	return &ResolveHandler{
		passes:      passes,
		entries:     entries,
		submissions: submissions,
		logger:      logger.With("component", "resolve"),
	}
}

func (h *ResolveHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entryID, code, sid := q.Get("emotion_entry_id"), q.Get("code"), q.Get("sid")
	if entryID == "" && code == "" && sid == "" {
		writeError(w, http.StatusBadRequest, "identifier_required")
		return
	}

	userID, err := h.resolve(entryID, code, sid)
	if err != nil {
		h.logger.Error("resolution failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if userID == "" {
		writeError(w, http.StatusNotFound, "user_not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user_id": userID})
}

func (h *ResolveHandler) resolve(entryID, code, sid string) (string, error) {
	if entryID != "" {
		entry, err := h.entries.GetByID(entryID)
		if err != nil {
			return "", err
		}
		if entry != nil {
			return entry.UserID, nil
		}
	}
	if code != "" {
		pass, err := h.passes.GetByCode(code)
		if err != nil {
			return "", err
		}
		if pass != nil {
			return pass.UserID, nil
		}
	}
	if sid != "" {
		st, err := h.submissions.GetState(sid)
		if err != nil {
			return "", err
		}
		if st != nil && st.PassID != nil {
			pass, err := h.passes.GetByID(*st.PassID)
			if err != nil {
				return "", err
			}
			if pass != nil {
				return pass.UserID, nil
			}
		}
	}
	return "", nil
}
