package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/doyonlabs/lynqrate-flow-site/internal/model"
)

type EntryStore struct {
	db *sql.DB
}

func NewEntryStore(db *sql.DB) *EntryStore {
	return &EntryStore{db: db}
}

func scanEntry(scanner interface{ Scan(...any) error }) (*model.EmotionEntry, error) {
	var e model.EmotionEntry
	var passID, emotionID, situation, journal sql.NullString

	err := scanner.Scan(
		&e.ID, &e.UserID, &passID, &emotionID, &situation, &journal, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if passID.Valid {
		e.PassID = &passID.String
	}
	if emotionID.Valid {
		e.EmotionID = &emotionID.String
	}
	if situation.Valid {
		e.SituationText = &situation.String
	}
	if journal.Valid {
		e.JournalText = &journal.String
	}
	return &e, nil
}

const entryCols = `id, user_id, pass_id, emotion_id, situation_text, journal_text, created_at`

// CreateEntryParams mirrors what the form pipeline writes. Exposed for that
// pipeline and for tests; the dashboard itself never creates entries.
type CreateEntryParams struct {
	UserID        string
	PassID        *string
	EmotionID     *string
	SituationText *string
	JournalText   *string
	CreatedAt     time.Time // zero means now
}

func (s *EntryStore) Create(params CreateEntryParams) (*model.EmotionEntry, error) {
	id := uuid.NewString()
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO emotion_entries (id, user_id, pass_id, emotion_id, situation_text, journal_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, params.UserID, params.PassID, params.EmotionID,
		params.SituationText, params.JournalText, createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return s.GetByID(id)
}

func (s *EntryStore) GetByID(id string) (*model.EmotionEntry, error) {
	row := s.db.QueryRow(`SELECT `+entryCols+` FROM emotion_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// AddFeedback attaches a generated feedback text to an entry.
func (s *EntryStore) AddFeedback(entryID, text string) error {
	_, err := s.db.Exec(
		`INSERT INTO emotion_feedbacks (entry_id, feedback_text) VALUES (?, ?)`,
		entryID, text,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// ListRecentCards returns the user's newest entries joined with emotion
// metadata and the latest feedback text, newest first.
func (s *EntryStore) ListRecentCards(userID string, limit int) ([]model.EntryCard, error) {
	rows, err := s.db.Query(
		`SELECT e.id, e.created_at,
		        COALESCE(se.name, ''), se.color_code, se.description,
		        COALESCE(e.situation_text, ''), COALESCE(e.journal_text, ''),
		        COALESCE((SELECT f.feedback_text FROM emotion_feedbacks f
		                  WHERE f.entry_id = e.id ORDER BY f.created_at DESC LIMIT 1), '')
		 FROM emotion_entries e
		 LEFT JOIN standard_emotions se ON se.id = e.emotion_id
		 WHERE e.user_id = ?
		 ORDER BY e.created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent entries: %w", err)
	}
	defer rows.Close()

	var cards []model.EntryCard
	for rows.Next() {
		var c model.EntryCard
		var color, desc sql.NullString
		err := rows.Scan(
			&c.EntryID, &c.At, &c.Emotion, &color, &desc,
			&c.SituationText, &c.JournalText, &c.FeedbackText,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry card: %w", err)
		}
		if color.Valid {
			c.EmotionColor = &color.String
		}
		if desc.Valid {
			c.EmotionDesc = &desc.String
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// ListStats returns the slim aggregation rows for the user's history,
// newest first, capped at limit.
func (s *EntryStore) ListStats(userID string, limit int) ([]model.EntryStat, error) {
	rows, err := s.db.Query(
		`SELECT e.created_at, COALESCE(se.name, ''), se.color_code
		 FROM emotion_entries e
		 LEFT JOIN standard_emotions se ON se.id = e.emotion_id
		 WHERE e.user_id = ?
		 ORDER BY e.created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list entry stats: %w", err)
	}
	defer rows.Close()

	var stats []model.EntryStat
	for rows.Next() {
		var st model.EntryStat
		var color sql.NullString
		if err := rows.Scan(&st.At, &st.Emotion, &color); err != nil {
			return nil, fmt.Errorf("scan entry stat: %w", err)
		}
		if color.Valid {
			st.ColorCode = &color.String
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
