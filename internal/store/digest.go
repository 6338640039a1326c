package store

import (
	"database/sql"
	"fmt"

	"github.com/doyonlabs/lynqrate-flow-site/internal/model"
)

type DigestStore struct {
	db *sql.DB
}

func NewDigestStore(db *sql.DB) *DigestStore {
	return &DigestStore{db: db}
}

// LatestByPass returns the newest carryover digest attached to a pass, or
// nil. Digests are produced by the analysis pipeline; this service only
// reads them.
func (s *DigestStore) LatestByPass(passID string) (*model.PassDigest, error) {
	row := s.db.QueryRow(
		`SELECT id, pass_id, digest_text, pass_name, generated_at
		 FROM pass_digests WHERE pass_id = ?
		 ORDER BY generated_at DESC LIMIT 1`,
		passID,
	)

	var d model.PassDigest
	var passName sql.NullString
	err := row.Scan(&d.ID, &d.PassID, &d.DigestText, &passName, &d.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest digest: %w", err)
	}
	if passName.Valid {
		d.PassName = &passName.String
	}
	return &d, nil
}

// Create mirrors the analysis pipeline's write, for fixtures and tests.
func (s *DigestStore) Create(passID, text string, passName *string) (*model.PassDigest, error) {
	result, err := s.db.Exec(
		`INSERT INTO pass_digests (pass_id, digest_text, pass_name) VALUES (?, ?, ?)`,
		passID, text, passName,
	)
	if err != nil {
		return nil, fmt.Errorf("insert digest: %w", err)
	}
	if _, err := result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.LatestByPass(passID)
}
