package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/doyonlabs/lynqrate-flow-site/internal/model"
)

type PassStore struct {
	db *sql.DB
}

func NewPassStore(db *sql.DB) *PassStore {
	return &PassStore{db: db}
}

func scanPass(scanner interface{ Scan(...any) error }) (*model.Pass, error) {
	var p model.Pass
	var name, prevPassID sql.NullString
	var expiresAt sql.NullTime

	err := scanner.Scan(
		&p.ID, &p.UserID, &p.Code, &name, &p.TotalUses, &p.RemainingUses,
		&p.IsActive, &expiresAt, &prevPassID, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if name.Valid {
		p.Name = &name.String
	}
	if expiresAt.Valid {
		p.ExpiresAt = &expiresAt.Time
	}
	if prevPassID.Valid {
		p.PrevPassID = &prevPassID.String
	}
	return &p, nil
}

const passCols = `id, user_id, code, name, total_uses, remaining_uses, is_active, expires_at, prev_pass_id, created_at`

// CreatePassParams describes a pass row. Passes are normally provisioned by
// the sales pipeline; this path exists for that pipeline and for tests.
type CreatePassParams struct {
	UserID        string
	Code          string
	Name          *string
	TotalUses     int
	RemainingUses int
	IsActive      bool
	ExpiresAt     *time.Time
	PrevPassID    *string
	CreatedAt     time.Time // zero means now
}

func (s *PassStore) Create(params CreatePassParams) (*model.Pass, error) {
	id := uuid.NewString()
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO passes (id, user_id, code, name, total_uses, remaining_uses, is_active, expires_at, prev_pass_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, params.UserID, params.Code, params.Name, params.TotalUses,
		params.RemainingUses, params.IsActive, params.ExpiresAt, params.PrevPassID, createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pass: %w", err)
	}
	return s.GetByID(id)
}

func (s *PassStore) GetByID(id string) (*model.Pass, error) {
	row := s.db.QueryRow(`SELECT `+passCols+` FROM passes WHERE id = ?`, id)
	p, err := scanPass(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pass: %w", err)
	}
	return p, nil
}

// GetByCode looks a pass up by its human-entered redemption code.
func (s *PassStore) GetByCode(code string) (*model.Pass, error) {
	row := s.db.QueryRow(`SELECT `+passCols+` FROM passes WHERE code = ?`, code)
	p, err := scanPass(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pass by code: %w", err)
	}
	return p, nil
}

// GetLatestByUser returns the user's most recently created pass, or nil.
// Revisit-code redemption always lands on this pass, whatever pass the code
// was minted against.
func (s *PassStore) GetLatestByUser(userID string) (*model.Pass, error) {
	row := s.db.QueryRow(
		`SELECT `+passCols+` FROM passes WHERE user_id = ? ORDER BY created_at DESC LIMIT 1`,
		userID,
	)
	p, err := scanPass(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest pass by user: %w", err)
	}
	return p, nil
}
