package revisit

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/doyonlabs/lynqrate-flow-site/internal/model"
	"github.com/doyonlabs/lynqrate-flow-site/internal/store"
)

// Codes are meant to be read over the phone or copied by hand, so the
// alphabet drops the characters people confuse: I, O, 0, 1.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 12

	// CodeTTL is the default lifetime of a freshly minted code.
	CodeTTL = 30 * 24 * time.Hour

	// maxMintAttempts bounds redraws when a drawn code collides with one
	// already held by another pass.
	maxMintAttempts = 3
)

// Redemption failure taxonomy. Each maps to a distinct HTTP status at the
// handler layer.
var (
	ErrCodeRequired     = errors.New("code required")
	ErrInvalidCode      = errors.New("invalid code")
	ErrExpiredOrRevoked = errors.New("expired or revoked")
	ErrPassNotFound     = errors.New("pass not found")
)

// Manager issues, reuses and redeems revisit codes.
type Manager struct {
	passes *store.PassStore
	codes  *store.RevisitCodeStore
	now    func() time.Time
}

func NewManager(passes *store.PassStore, codes *store.RevisitCodeStore) *Manager {
	return &Manager{passes: passes, codes: codes, now: time.Now}
}

// IssueOrReuse returns the live code for the pass's owner, minting one only
// when no live code exists anywhere across that user's passes. Reuse never
// extends expiry. The guarantee: at most one live recovery code per user.
func (m *Manager) IssueOrReuse(ctx context.Context, passID string) (*model.RevisitCode, error) {
	pass, err := m.passes.GetByID(passID)
	if err != nil {
		return nil, err
	}
	if pass == nil {
		return nil, ErrPassNotFound
	}

	now := m.now()
	live, err := m.codes.GetLiveByUser(pass.UserID, now)
	if err != nil {
		return nil, err
	}
	if live != nil {
		return live, nil
	}

	// No live code anywhere for this user; check the current pass's slot
	// before minting.
	existing, err := m.codes.GetByPass(passID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Live(now) {
		return existing, nil
	}

	return m.mint(ctx, passID, now.Add(CodeTTL))
}

// mint draws codes until the upsert sticks, bounded to maxMintAttempts.
// Exhausting the attempts is a hard error for the request, not a silent
// fallback.
func (m *Manager) mint(ctx context.Context, passID string, expiresAt time.Time) (*model.RevisitCode, error) {
	var minted *model.RevisitCode
	backoff := retry.WithMaxRetries(maxMintAttempts-1, retry.NewConstant(time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		code, err := generateCode()
		if err != nil {
			return err
		}
		c, err := m.codes.Upsert(passID, code, expiresAt)
		if errors.Is(err, store.ErrCodeConflict) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		minted = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mint revisit code: %w", err)
	}
	return minted, nil
}

// Redeem resolves a code to the pass the bearer should be logged into: the
// owning user's newest pass, whatever pass the code was minted against.
// That keeps an old recovery code working across pass renewals. The code is
// not consumed; only last_used_at moves.
func (m *Manager) Redeem(code string) (*model.Pass, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, ErrCodeRequired
	}

	rc, err := m.codes.GetByCode(trimmed)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, ErrInvalidCode
	}

	now := m.now()
	if !rc.Live(now) {
		return nil, ErrExpiredOrRevoked
	}

	origin, err := m.passes.GetByID(rc.PassID)
	if err != nil {
		return nil, err
	}
	if origin == nil {
		// Dangling code row; should not happen with foreign keys on.
		return nil, ErrPassNotFound
	}

	target, err := m.passes.GetLatestByUser(origin.UserID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		target = origin
	}

	if err := m.codes.TouchLastUsed(trimmed, now); err != nil {
		return nil, err
	}
	return target, nil
}

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
