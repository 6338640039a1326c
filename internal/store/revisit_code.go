package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/doyonlabs/lynqrate-flow-site/internal/model"
)

type RevisitCodeStore struct {
	db *sql.DB
}

func NewRevisitCodeStore(db *sql.DB) *RevisitCodeStore {
	return &RevisitCodeStore{db: db}
}

func scanRevisitCode(scanner interface{ Scan(...any) error }) (*model.RevisitCode, error) {
	var c model.RevisitCode
	var revokedAt, lastUsedAt sql.NullTime

	err := scanner.Scan(
		&c.ID, &c.PassID, &c.Code, &c.ExpiresAt, &revokedAt, &lastUsedAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if revokedAt.Valid {
		c.RevokedAt = &revokedAt.Time
	}
	if lastUsedAt.Valid {
		c.LastUsedAt = &lastUsedAt.Time
	}
	return &c, nil
}

const revisitCodeCols = `id, pass_id, code, expires_at, revoked_at, last_used_at, created_at`

func (s *RevisitCodeStore) GetByCode(code string) (*model.RevisitCode, error) {
	row := s.db.QueryRow(`SELECT `+revisitCodeCols+` FROM revisit_codes WHERE code = ?`, code)
	c, err := scanRevisitCode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get revisit code: %w", err)
	}
	return c, nil
}

// GetByPass returns the pass's code slot, live or not, or nil.
func (s *RevisitCodeStore) GetByPass(passID string) (*model.RevisitCode, error) {
	row := s.db.QueryRow(`SELECT `+revisitCodeCols+` FROM revisit_codes WHERE pass_id = ?`, passID)
	c, err := scanRevisitCode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get revisit code by pass: %w", err)
	}
	return c, nil
}

// GetLiveByUser searches every pass owned by the user for an unrevoked,
// unexpired code and returns the longest-lived one, or nil. This is what
// keeps a user at a single active recovery code however many passes they
// have accumulated.
func (s *RevisitCodeStore) GetLiveByUser(userID string, now time.Time) (*model.RevisitCode, error) {
	row := s.db.QueryRow(
		`SELECT `+prefixedRevisitCodeCols+`
		 FROM revisit_codes rc
		 JOIN passes p ON p.id = rc.pass_id
		 WHERE p.user_id = ? AND rc.revoked_at IS NULL AND rc.expires_at > ?
		 ORDER BY rc.expires_at DESC LIMIT 1`,
		userID, now,
	)
	c, err := scanRevisitCode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get live revisit code by user: %w", err)
	}
	return c, nil
}

const prefixedRevisitCodeCols = `rc.id, rc.pass_id, rc.code, rc.expires_at, rc.revoked_at, rc.last_used_at, rc.created_at`

// Upsert writes a fresh code into the pass's single code slot, replacing
// whatever was there and clearing revocation/use marks. A UNIQUE failure on
// the code column (collision with another pass's code) comes back as
// ErrCodeConflict so the caller can redraw.
func (s *RevisitCodeStore) Upsert(passID, code string, expiresAt time.Time) (*model.RevisitCode, error) {
	_, err := s.db.Exec(
		`INSERT INTO revisit_codes (pass_id, code, expires_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(pass_id) DO UPDATE SET
		   code = excluded.code,
		   expires_at = excluded.expires_at,
		   revoked_at = NULL,
		   last_used_at = NULL`,
		passID, code, expiresAt,
	)
	if err != nil {
		if isUniqueViolation(err, "revisit_codes.code") {
			return nil, ErrCodeConflict
		}
		return nil, fmt.Errorf("upsert revisit code: %w", err)
	}
	return s.GetByPass(passID)
}

// TouchLastUsed stamps a successful redemption. The code itself stays live.
func (s *RevisitCodeStore) TouchLastUsed(code string, now time.Time) error {
	_, err := s.db.Exec(`UPDATE revisit_codes SET last_used_at = ? WHERE code = ?`, now, code)
	if err != nil {
		return fmt.Errorf("touch revisit code: %w", err)
	}
	return nil
}

// Revoke invalidates the pass's current code without deleting the slot.
func (s *RevisitCodeStore) Revoke(passID string, now time.Time) error {
	_, err := s.db.Exec(
		`UPDATE revisit_codes SET revoked_at = ? WHERE pass_id = ? AND revoked_at IS NULL`,
		now, passID,
	)
	if err != nil {
		return fmt.Errorf("revoke revisit code: %w", err)
	}
	return nil
}
