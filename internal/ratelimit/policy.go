package ratelimit

import "time"

// Policy is one rate-limit tier: a window plus the max hits allowed in it.
type Policy struct {
	Window time.Duration
	Max    int
}

// RetryAfterSeconds is the hint sent with a 429 for this tier.
func (p Policy) RetryAfterSeconds() int {
	return int(p.Window / time.Second)
}

// Policies are the tiers the handlers apply. ClientShort and PerCode gate
// raw login attempts before identity is known; UserHourly and UserDaily are
// defense in depth once the owning user is resolved; WebhookPerIP guards
// form ingestion.
type Policies struct {
	ClientShort  Policy
	PerCode      Policy
	UserHourly   Policy
	UserDaily    Policy
	WebhookPerIP Policy
}

// Overrides carries optional per-tier max counts; zero keeps the default.
type Overrides struct {
	RevisitPerMin  int
	RevisitPerHour int
	RevisitPerDay  int
	CodePerMin     int
	WebhookPerMin  int
}

// Conservative production defaults.
const (
	defaultClientPerMin  = 5
	defaultCodePerMin    = 10
	defaultUserPerHour   = 10
	defaultUserPerDay    = 20
	defaultWebhookPerMin = 30
)

func DefaultPolicies(o Overrides) Policies {
	pick := func(override, def int) int {
		if override > 0 {
			return override
		}
		return def
	}
	return Policies{
		ClientShort:  Policy{Window: time.Minute, Max: pick(o.RevisitPerMin, defaultClientPerMin)},
		PerCode:      Policy{Window: time.Minute, Max: pick(o.CodePerMin, defaultCodePerMin)},
		UserHourly:   Policy{Window: time.Hour, Max: pick(o.RevisitPerHour, defaultUserPerHour)},
		UserDaily:    Policy{Window: 24 * time.Hour, Max: pick(o.RevisitPerDay, defaultUserPerDay)},
		WebhookPerIP: Policy{Window: time.Minute, Max: pick(o.WebhookPerMin, defaultWebhookPerMin)},
	}
}
