package store

import (
	"database/sql"
	"fmt"

	"github.com/doyonlabs/lynqrate-flow-site/internal/model"
)

type EmotionStore struct {
	db *sql.DB
}

func NewEmotionStore(db *sql.DB) *EmotionStore {
	return &EmotionStore{db: db}
}

// ListStandard returns the fixed emotion taxonomy in display order. This is
// the authoritative category list the aggregator zero-fills against.
func (s *EmotionStore) ListStandard() ([]model.StandardEmotion, error) {
	rows, err := s.db.Query(
		`SELECT id, name, color_code, description, sort_order
		 FROM standard_emotions ORDER BY sort_order`,
	)
	if err != nil {
		return nil, fmt.Errorf("list standard emotions: %w", err)
	}
	defer rows.Close()

	var emotions []model.StandardEmotion
	for rows.Next() {
		var e model.StandardEmotion
		var color, desc sql.NullString
		if err := rows.Scan(&e.ID, &e.Name, &color, &desc, &e.SortOrder); err != nil {
			return nil, fmt.Errorf("scan standard emotion: %w", err)
		}
		if color.Valid {
			e.ColorCode = &color.String
		}
		if desc.Valid {
			e.Description = &desc.String
		}
		emotions = append(emotions, e)
	}
	return emotions, rows.Err()
}
