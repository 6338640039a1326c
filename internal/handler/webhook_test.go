package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/doyonlabs/lynqrate-flow-site/internal/store"
)

func newWebhookHandler(env *testEnv) *WebhookHandler {
	return NewWebhookHandler(env.passes, env.submissions, env.limiter, env.policies.WebhookPerIP, testWebhookSecret, env.logger)
}

func postWebhook(h *WebhookHandler, token, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest("POST", "/api/webhook?token="+token, strings.NewReader(body))
	r.RemoteAddr = "203.0.113.9:1234"
	w := httptest.NewRecorder()
	h.Ingest(w, r)
	return w
}

func webhookBody(sid, code string) string {
	return fmt.Sprintf(`{"data":{"responseId":%q,"answers":[{"key":"uuid_code","value":%q}]}}`, sid, code)
}

func decodeVerdict(t *testing.T, w *httptest.ResponseRecorder) (status, reason string) {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Status, resp.Reason
}

func TestWebhookRejectsBadToken(t *testing.T) {
	h := newWebhookHandler(newTestEnv(t))
	w := postWebhook(h, "wrong", webhookBody("sid-1", "X"))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	h := newWebhookHandler(newTestEnv(t))
	for _, body := range []string{"not json", `{"data":{}}`, `{"data":{"responseId":"sid-1"}}`} {
		w := postWebhook(h, testWebhookSecret, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestWebhookClassification(t *testing.T) {
	env := newTestEnv(t)
	h := newWebhookHandler(env)
	past := timePtr(time.Now().UTC().Add(-time.Hour))

	env.createPass(t, store.CreatePassParams{UserID: "u1", Code: "INACTIVE", RemainingUses: 5})
	env.createPass(t, store.CreatePassParams{UserID: "u2", Code: "DRAINED", RemainingUses: 0, IsActive: true})
	env.createPass(t, store.CreatePassParams{UserID: "u3", Code: "EXPIRED", RemainingUses: 5, IsActive: true, ExpiresAt: past})
	env.createPass(t, store.CreatePassParams{UserID: "u4", Code: "LASTUSE", RemainingUses: 1, IsActive: true, ExpiresAt: past})
	env.createPass(t, store.CreatePassParams{UserID: "u5", Code: "HEALTHY", RemainingUses: 5, IsActive: true})

	cases := []struct {
		code       string
		wantStatus string
		wantReason string
	}{
		{"MISSING", "fail", ReasonNotFound},
		{"", "fail", ReasonNotFound},
		{"INACTIVE", "fail", ReasonInactive},
		{"DRAINED", "fail", ReasonNoUses},
		{"EXPIRED", "fail", ReasonExpired},
		// Final use is honored even past expiry.
		{"LASTUSE", "pass", ""},
		{"HEALTHY", "pass", ""},
	}
	for i, c := range cases {
		sid := fmt.Sprintf("sid-%d", i)
		w := postWebhook(h, testWebhookSecret, webhookBody(sid, c.code))
		if w.Code != http.StatusOK {
			t.Fatalf("code %q: http status = %d", c.code, w.Code)
		}
		status, reason := decodeVerdict(t, w)
		if status != c.wantStatus || reason != c.wantReason {
			t.Errorf("code %q: got %s/%s, want %s/%s", c.code, status, reason, c.wantStatus, c.wantReason)
		}

		st, err := env.submissions.GetState(sid)
		if err != nil || st == nil {
			t.Fatalf("code %q: state missing: %v", c.code, err)
		}
		if c.wantStatus == "pass" && st.Status != "pending" {
			t.Errorf("code %q: state = %s, want pending", c.code, st.Status)
		}
		if c.wantStatus == "fail" && st.Status != "fail" {
			t.Errorf("code %q: state = %s, want fail", c.code, st.Status)
		}
	}

	n, err := env.submissions.CountHistory()
	if err != nil {
		t.Fatalf("count history: %v", err)
	}
	if n != len(cases) {
		t.Errorf("audit rows = %d, want %d", n, len(cases))
	}
}

func TestWebhookLabelFallback(t *testing.T) {
	env := newTestEnv(t)
	h := newWebhookHandler(env)
	env.createPass(t, store.CreatePassParams{UserID: "u1", Code: "BYLABEL", RemainingUses: 5, IsActive: true})

	body := `{"data":{"responseId":"sid-1","answers":[
		{"key":"other_field","value":"noise"},
		{"label":"이용권 코드를 입력해주세요","value":" BYLABEL "}
	]}}`
	w := postWebhook(h, testWebhookSecret, body)
	status, _ := decodeVerdict(t, w)
	if status != "pass" {
		t.Errorf("status = %s, want pass (label fallback with trimming)", status)
	}
}

func TestWebhookKeyMatchBeatsLabel(t *testing.T) {
	env := newTestEnv(t)
	h := newWebhookHandler(env)
	env.createPass(t, store.CreatePassParams{UserID: "u1", Code: "KEYED", RemainingUses: 5, IsActive: true})

	body := `{"data":{"responseId":"sid-1","answers":[
		{"label":"이용권","value":"WRONG"},
		{"key":"uuid_code","value":"KEYED"}
	]}}`
	w := postWebhook(h, testWebhookSecret, body)
	status, _ := decodeVerdict(t, w)
	if status != "pass" {
		t.Errorf("status = %s, want pass (key match wins)", status)
	}
}

func TestWebhookRateLimit(t *testing.T) {
	env := newTestEnv(t)
	h := newWebhookHandler(env)

	max := env.policies.WebhookPerIP.Max
	for i := 0; i < max; i++ {
		w := postWebhook(h, testWebhookSecret, webhookBody(fmt.Sprintf("sid-%d", i), "X"))
		if w.Code == http.StatusTooManyRequests {
			t.Fatalf("limited at request %d of %d", i+1, max)
		}
	}
	w := postWebhook(h, testWebhookSecret, webhookBody("sid-final", "X"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	h := newWebhookHandler(newTestEnv(t))
	r := httptest.NewRequest("GET", "/api/webhook", nil)
	w := httptest.NewRecorder()
	h.MethodNotAllowed(w, r)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}
