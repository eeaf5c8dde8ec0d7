package domain

import "time"

// ConversationStatus enumerates the lifecycle states of a conversation.
// Transitions only move forward; see CanTransitionTo.
type ConversationStatus string

const (
	ConversationActive          ConversationStatus = "active"
	ConversationHandoverPending ConversationStatus = "handover_pending"
	ConversationCompleted       ConversationStatus = "completed"
	ConversationAbandoned       ConversationStatus = "abandoned"
)

// IsTerminal returns true if the conversation can no longer change status.
func (s ConversationStatus) IsTerminal() bool {
	return s == ConversationCompleted || s == ConversationAbandoned
}

// CanTransitionTo reports whether moving from s to next is allowed.
// active may move to any other state, handover_pending may only finish,
// and terminal states never change.
func (s ConversationStatus) CanTransitionTo(next ConversationStatus) bool {
	switch s {
	case ConversationActive:
		return next == ConversationHandoverPending || next == ConversationCompleted || next == ConversationAbandoned
	case ConversationHandoverPending:
		return next == ConversationCompleted || next == ConversationAbandoned
	default:
		return false
	}
}

// MessageRole identifies who authored a conversation message.
type MessageRole string

const (
	RoleAgent  MessageRole = "agent"
	RoleLead   MessageRole = "lead"
	RoleSystem MessageRole = "system"
)

// Message is one entry in a conversation.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// Conversation is an automated exchange with a lead on one channel.
type Conversation struct {
	ID                 string             `json:"id" db:"id"`
	LeadID             string             `json:"lead_id" db:"lead_id"`
	CampaignID         string             `json:"campaign_id,omitempty" db:"campaign_id"`
	Channel            Channel            `json:"channel" db:"channel"`
	Status             ConversationStatus `json:"status" db:"status"`
	Messages           []Message          `json:"messages"`
	QualificationScore float64            `json:"qualification_score" db:"qualification_score"`
	GoalProgress       map[string]bool    `json:"goal_progress" db:"goal_progress"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

// LeadMessages returns the lead-authored messages in order.
func (c *Conversation) LeadMessages() []Message {
	var out []Message
	for _, m := range c.Messages {
		if m.Role == RoleLead {
			out = append(out, m)
		}
	}
	return out
}

// ClampScore bounds a qualification score to [0, 10].
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
