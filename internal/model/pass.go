package model

import "time"

// Pass is a redeemable access grant. Passes are created and consumed by the
// form pipeline; this service reads them and only writes revisit-code
// bookkeeping.
type Pass struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Code          string     `json:"code"`
	Name          *string    `json:"name"`
	TotalUses     int        `json:"total_uses"`
	RemainingUses int        `json:"remaining_uses"`
	IsActive      bool       `json:"is_active"`
	ExpiresAt     *time.Time `json:"expires_at"`
	PrevPassID    *string    `json:"prev_pass_id"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Usable reports whether the pass can still be redeemed at the given time.
// A pass on its final use is honored even past its expiry date.
func (p *Pass) Usable(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.RemainingUses == 1 {
		return true
	}
	if p.RemainingUses <= 0 {
		return false
	}
	return p.ExpiresAt == nil || p.ExpiresAt.After(now)
}
