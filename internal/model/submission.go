package model

import "time"

// Submission states as polled by the client after a form submit.
const (
	SubmissionPending = "pending"
	SubmissionReady   = "ready"
	SubmissionFail    = "fail"
)

// SubmissionState is the mutable per-submission row keyed by the form
// provider's submission id. The webhook gate upserts it; the status endpoint
// polls it; the form pipeline flips it to ready once the entry exists.
type SubmissionState struct {
	SID            string    `json:"sid"`
	Code           string    `json:"code"`
	Status         string    `json:"status"`
	Reason         *string   `json:"reason"`
	PassID         *string   `json:"pass_id"`
	EmotionEntryID *string   `json:"emotion_entry_id"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SubmissionRecord is the immutable audit row written for every webhook
// delivery, pass or fail.
type SubmissionRecord struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Status    string    `json:"status"`
	Reason    *string   `json:"reason"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	LatencyMS int64     `json:"latency_ms"`
	PassID    *string   `json:"pass_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PassDigest is the externally generated carryover summary attached to a
// completed pass. This service reads it, never writes it.
type PassDigest struct {
	ID          int64     `json:"id"`
	PassID      string    `json:"pass_id"`
	DigestText  string    `json:"digest_text"`
	PassName    *string   `json:"pass_name"`
	GeneratedAt time.Time `json:"generated_at"`
}
