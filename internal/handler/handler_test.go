package handler

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/doyonlabs/lynqrate-flow-site/internal/database"
	"github.com/doyonlabs/lynqrate-flow-site/internal/ratelimit"
	"github.com/doyonlabs/lynqrate-flow-site/internal/session"
	"github.com/doyonlabs/lynqrate-flow-site/internal/store"
)

const testWebhookSecret = "hook-secret"

type testEnv struct {
	db          *sql.DB
	passes      *store.PassStore
	entries     *store.EntryStore
	codes       *store.RevisitCodeStore
	emotions    *store.EmotionStore
	submissions *store.SubmissionStore
	digests     *store.DigestStore
	issuer      *session.Issuer
	limiter     *ratelimit.Memory
	policies    ratelimit.Policies
	logger      *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	issuer, err := session.NewIssuer("test-session-secret")
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	return &testEnv{
		db:          db,
		passes:      store.NewPassStore(db),
		entries:     store.NewEntryStore(db),
		codes:       store.NewRevisitCodeStore(db),
		emotions:    store.NewEmotionStore(db),
		submissions: store.NewSubmissionStore(db),
		digests:     store.NewDigestStore(db),
		issuer:      issuer,
		limiter:     ratelimit.NewMemory(),
		policies:    ratelimit.DefaultPolicies(ratelimit.Overrides{}),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (env *testEnv) createPass(t *testing.T, params store.CreatePassParams) string {
	t.Helper()
	if params.TotalUses == 0 {
		params.TotalUses = 10
	}
	p, err := env.passes.Create(params)
	if err != nil {
		t.Fatalf("create pass: %v", err)
	}
	return p.ID
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
