package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/doyonlabs/lynqrate-flow-site/internal/analytics"
	"github.com/doyonlabs/lynqrate-flow-site/internal/model"
	"github.com/doyonlabs/lynqrate-flow-site/internal/session"
	"github.com/doyonlabs/lynqrate-flow-site/internal/store"
)

const (
	defaultRangeDays = 30
	maxRangeDays     = 365
	// Today's card plus four prior entries.
	recentCardLimit = 5
	statsFetchLimit = 200
)

// FeedbackHandler assembles the full dashboard payload: pass status, recent
// entries, the category distribution, the trend series, and the carryover
// digest.
type FeedbackHandler struct {
	passes   *store.PassStore
	entries  *store.EntryStore
	emotions *store.EmotionStore
	digests  *store.DigestStore
	issuer   *session.Issuer
	logger   *slog.Logger
	now      func() time.Time
}

func NewFeedbackHandler(
	passes *store.PassStore,
	entries *store.EntryStore,
	emotions *store.EmotionStore,
	digests *store.DigestStore,
	issuer *session.Issuer,
	logger *slog.Logger,
) *FeedbackHandler {
	return &FeedbackHandler{
		passes:   passes,
		entries:  entries,
		emotions: emotions,
		digests:  digests,
		issuer:   issuer,
		logger:   logger.With("component", "feedback"),
		now:      time.Now,
	}
}

// Get serves the dashboard. Identity comes from the session cookie; an
// explicit user_id query parameter is honored as a fallback for embedded
// clients that cannot carry cookies.
func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	var pass *model.Pass
	userID := r.URL.Query().Get("user_id")

	if passID, ok := h.issuer.FromRequest(r); ok {
		p, err := h.passes.GetByID(passID)
		if err != nil {
			h.logger.Error("pass lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		if p != nil {
			pass = p
			userID = p.UserID
		}
	}
	// Older clients land here straight from the form with only an entry id.
	if userID == "" {
		if entryID := r.URL.Query().Get("emotion_entry_id"); entryID != "" {
			entry, err := h.entries.GetByID(entryID)
			if err != nil {
				h.logger.Error("entry lookup failed", "error", err)
				writeError(w, http.StatusInternalServerError, "server_error")
				return
			}
			if entry == nil {
				writeError(w, http.StatusNotFound, "entry_not_found")
				return
			}
			userID = entry.UserID
		}
	}
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	if pass == nil {
		p, err := h.passes.GetLatestByUser(userID)
		if err != nil {
			h.logger.Error("pass lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		pass = p
	}

	rangeDays := defaultRangeDays
	if raw := r.URL.Query().Get("range_days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= maxRangeDays {
			rangeDays = n
		}
	}
	bucket := analytics.BucketAuto
	switch analytics.BucketMode(r.URL.Query().Get("bucket")) {
	case analytics.BucketDay:
		bucket = analytics.BucketDay
	case analytics.BucketWeek:
		bucket = analytics.BucketWeek
	case analytics.BucketMonth:
		bucket = analytics.BucketMonth
	}

	standard, err := h.emotions.ListStandard()
	if err != nil {
		h.logger.Error("emotion list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	categories := make([]analytics.Category, 0, len(standard))
	for _, e := range standard {
		c := analytics.Category{Name: e.Name}
		if e.ColorCode != nil {
			c.Color = *e.ColorCode
		}
		categories = append(categories, c)
	}

	stats, err := h.entries.ListStats(userID, statsFetchLimit)
	if err != nil {
		h.logger.Error("stats query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	history := make([]analytics.Entry, 0, len(stats))
	for _, st := range stats {
		e := analytics.Entry{At: st.At, Category: st.Emotion}
		if st.ColorCode != nil {
			e.Color = *st.ColorCode
		}
		history = append(history, e)
	}

	now := h.now()
	opts := analytics.Options{Now: now, Categories: categories}
	trend := analytics.Aggregate(history, rangeDays, bucket, opts)
	distribution := analytics.Distribution(history, rangeDays, opts)

	var topCategory any
	if cat, n, ok := analytics.MostFrequent(distribution, history, opts); ok {
		topCategory = map[string]any{"category": cat, "count": n}
	}

	cards, err := h.entries.ListRecentCards(userID, recentCardLimit)
	if err != nil {
		h.logger.Error("recent entries query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	var today *model.EntryCard
	if len(cards) > 0 && analytics.DayKey(cards[0].At) == analytics.DayKey(now) {
		today = &cards[0]
	}

	payload := map[string]any{
		"ok":            true,
		"user_id":       userID,
		"range_days":    rangeDays,
		"trend":         trend,
		"distribution":  distribution,
		"most_frequent": topCategory,
		"today_entry":   today,
		"recent":        cards,
	}

	if pass != nil {
		payload["pass"] = map[string]any{
			"id":             pass.ID,
			"name":           pass.Name,
			"total_uses":     pass.TotalUses,
			"remaining_uses": pass.RemainingUses,
			"usable":         pass.Usable(now),
			"progress":       analytics.ProgressPercent(pass.RemainingUses, pass.TotalUses),
			"expires_at":     pass.ExpiresAt,
			"prev_linked":    pass.PrevPassID != nil,
		}
		// Carryover from the pass chain: a digest generated for the
		// predecessor pass, shown once on the renewed pass's dashboard.
		digestSource := pass.ID
		if pass.PrevPassID != nil {
			digestSource = *pass.PrevPassID
		}
		digest, err := h.digests.LatestByPass(digestSource)
		if err != nil {
			h.logger.Error("digest lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		if digest != nil {
			payload["carryover_digest"] = digest
		}
	}

	writeJSON(w, http.StatusOK, payload)
}
