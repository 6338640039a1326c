package model

import "time"

// RevisitCode is a short human-typeable credential that re-establishes a
// session without the original redemption code. One code slot per pass.
type RevisitCode struct {
	ID         int64      `json:"id"`
	PassID     string     `json:"pass_id"`
	Code       string     `json:"code"`
	ExpiresAt  time.Time  `json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Live reports whether the code is still redeemable: not revoked and not
// expired. Redemption does not consume a live code.
func (c *RevisitCode) Live(now time.Time) bool {
	return c.RevokedAt == nil && c.ExpiresAt.After(now)
}
