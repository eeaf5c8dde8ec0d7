package domain

import "time"

// CommunicationDirection tells whether a communication left or entered the
// platform, or stayed internal to the sales team.
type CommunicationDirection string

const (
	DirectionOutbound CommunicationDirection = "outbound"
	DirectionInbound  CommunicationDirection = "inbound"
	DirectionInternal CommunicationDirection = "internal"
)

// CommunicationHandover is the type of the record written when a
// conversation is escalated.
const CommunicationHandover = "handover"

// Communication is a persisted record of one message or event exchanged
// with, or about, a lead.
type Communication struct {
	ID             string                 `json:"id" db:"id"`
	LeadID         string                 `json:"lead_id" db:"lead_id"`
	ConversationID string                 `json:"conversation_id,omitempty" db:"conversation_id"`
	CampaignID     string                 `json:"campaign_id,omitempty" db:"campaign_id"`
	Channel        Channel                `json:"channel" db:"channel"`
	Direction      CommunicationDirection `json:"direction" db:"direction"`
	Type           string                 `json:"type" db:"type"`
	Content        string                 `json:"content" db:"content"`
	Metadata       map[string]any         `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time              `json:"created_at" db:"created_at"`
}

// ChannelActivity aggregates a lead's history on one channel.
type ChannelActivity struct {
	Channel        Channel    `json:"channel"`
	Conversations  int        `json:"conversations"`
	Communications int        `json:"communications"`
	LastContactAt  *time.Time `json:"last_contact_at,omitempty"`
}
