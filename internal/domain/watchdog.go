package domain

import "time"

// BlockRule is one entry of the outbound email rule set. Rules with a higher
// Priority are evaluated first.
type BlockRule struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Enabled    bool           `json:"enabled"`
	Priority   int            `json:"priority"`
	Conditions RuleConditions `json:"conditions"`
	Actions    RuleActions    `json:"actions"`
}

// RuleConditions are checked independently; any true condition triggers the
// rule.
type RuleConditions struct {
	BlockedDomains []string      `json:"blocked_domains,omitempty"`
	BlockedEmails  []string      `json:"blocked_emails,omitempty"`
	ForbiddenWords []string      `json:"forbidden_words,omitempty"`
	VolumeLimits   *VolumeLimits `json:"volume_limits,omitempty"`
	AllowedHours   *HourWindow   `json:"allowed_hours,omitempty"`
}

// VolumeLimits caps the rolling number of outbound emails. Zero disables a
// limit.
type VolumeLimits struct {
	MaxPerHour int `json:"max_per_hour"`
	MaxPerDay  int `json:"max_per_day"`
}

// HourWindow is a half-open [Start, End) range of hours in Timezone. A
// window with Start > End wraps midnight.
type HourWindow struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Timezone string `json:"timezone,omitempty"`
}

// Contains reports whether hour falls inside the window.
func (w HourWindow) Contains(hour int) bool {
	if w.Start == w.End {
		return true
	}
	if w.Start < w.End {
		return hour >= w.Start && hour < w.End
	}
	return hour >= w.Start || hour < w.End
}

// RuleActions are applied when a rule triggers.
type RuleActions struct {
	Block           bool `json:"block"`
	Quarantine      bool `json:"quarantine"`
	RequireApproval bool `json:"require_approval"`
	NotifyAdmin     bool `json:"notify_admin"`
}

// EmailValidationResult is the watchdog verdict for one outbound email.
type EmailValidationResult struct {
	Allowed          bool     `json:"allowed"`
	Blocked          bool     `json:"blocked"`
	Quarantined      bool     `json:"quarantined"`
	RequiresApproval bool     `json:"requires_approval"`
	Reasons          []string `json:"reasons"`
	TriggeredRules   []string `json:"triggered_rules"`
	RiskScore        int      `json:"risk_score"`
	HeldID           string   `json:"held_id,omitempty"`
}

// HeldEmail is an outbound email waiting for manual disposition.
type HeldEmail struct {
	ID      string                `json:"id"`
	Message OutboundMessage       `json:"message"`
	Result  EmailValidationResult `json:"result"`
	HeldAt  time.Time             `json:"held_at"`
}
