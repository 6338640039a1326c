package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/doyonlabs/lynqrate-flow-site/internal/model"
)

type SubmissionStore struct {
	db *sql.DB
}

func NewSubmissionStore(db *sql.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

func scanSubmissionState(scanner interface{ Scan(...any) error }) (*model.SubmissionState, error) {
	var st model.SubmissionState
	var reason, passID, entryID sql.NullString

	err := scanner.Scan(&st.SID, &st.Code, &st.Status, &reason, &passID, &entryID, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if reason.Valid {
		st.Reason = &reason.String
	}
	if passID.Valid {
		st.PassID = &passID.String
	}
	if entryID.Valid {
		st.EmotionEntryID = &entryID.String
	}
	return &st, nil
}

const submissionStateCols = `sid, code, status, reason, pass_id, emotion_entry_id, updated_at`

// UpsertState records the webhook gate's verdict for a submission id. The
// single-row upsert is the only write the gate and the form pipeline race
// on, and last-writer-wins is fine here.
func (s *SubmissionStore) UpsertState(sid, code, status string, reason, passID *string) (*model.SubmissionState, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO submission_state (sid, code, status, reason, pass_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(sid) DO UPDATE SET
		   code = excluded.code,
		   status = excluded.status,
		   reason = excluded.reason,
		   pass_id = excluded.pass_id,
		   updated_at = excluded.updated_at`,
		sid, code, status, reason, passID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert submission state: %w", err)
	}
	return s.GetState(sid)
}

// MarkReady is the form pipeline's side of the contract: it flips a gated
// submission to ready once the journal entry exists.
func (s *SubmissionStore) MarkReady(sid, entryID string) error {
	_, err := s.db.Exec(
		`UPDATE submission_state SET status = ?, reason = NULL, emotion_entry_id = ?, updated_at = ?
		 WHERE sid = ?`,
		model.SubmissionReady, entryID, time.Now().UTC(), sid,
	)
	if err != nil {
		return fmt.Errorf("mark submission ready: %w", err)
	}
	return nil
}

func (s *SubmissionStore) GetState(sid string) (*model.SubmissionState, error) {
	row := s.db.QueryRow(`SELECT `+submissionStateCols+` FROM submission_state WHERE sid = ?`, sid)
	st, err := scanSubmissionState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission state: %w", err)
	}
	return st, nil
}

// RecordHistory appends an immutable audit row for one webhook delivery.
func (s *SubmissionStore) RecordHistory(rec model.SubmissionRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO submission_history (code, status, reason, ip, user_agent, latency_ms, pass_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Code, rec.Status, rec.Reason, rec.IP, rec.UserAgent, rec.LatencyMS, rec.PassID,
	)
	if err != nil {
		return fmt.Errorf("insert submission history: %w", err)
	}
	return nil
}

// CountHistory is used by tests and ops checks.
func (s *SubmissionStore) CountHistory() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM submission_history`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count submission history: %w", err)
	}
	return n, nil
}
