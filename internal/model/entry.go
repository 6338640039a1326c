package model

import "time"

// StandardEmotion is one entry of the fixed emotion taxonomy. The list is
// seeded by migration and treated as authoritative for chart parity.
type StandardEmotion struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ColorCode   *string `json:"color_code"`
	Description *string `json:"description"`
	SortOrder   int     `json:"sort_order"`
}

// EmotionEntry is one journal submission. Entries are written by the form
// pipeline; this service only reads them.
type EmotionEntry struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	PassID        *string   `json:"pass_id"`
	EmotionID     *string   `json:"emotion_id"`
	SituationText *string   `json:"situation_text"`
	JournalText   *string   `json:"journal_text"`
	CreatedAt     time.Time `json:"created_at"`
}

// EntryStat is the slim per-entry shape fed to the trend aggregation:
// timestamp plus the resolved emotion label and its taxonomy color.
type EntryStat struct {
	At        time.Time `json:"entry_datetime"`
	Emotion   string    `json:"standard_emotion"`
	ColorCode *string   `json:"color_code"`
}

// EntryCard is an entry joined with its emotion metadata and latest
// feedback text, as rendered on the dashboard.
type EntryCard struct {
	EntryID       string    `json:"entry_id"`
	At            time.Time `json:"entry_datetime"`
	Emotion       string    `json:"standard_emotion"`
	EmotionColor  *string   `json:"standard_emotion_color"`
	EmotionDesc   *string   `json:"standard_emotion_desc"`
	SituationText string    `json:"situation_text"`
	JournalText   string    `json:"journal_text"`
	FeedbackText  string    `json:"feedback_text"`
}
