package domain

import "time"

// OutboundMessage is a fully rendered message ready for the watchdog and a
// delivery vendor. Subject is ignored outside the email channel.
type OutboundMessage struct {
	ID         string  `json:"id,omitempty"`
	To         string  `json:"to"`
	From       string  `json:"from"`
	FromName   string  `json:"from_name,omitempty"`
	Subject    string  `json:"subject"`
	Body       string  `json:"body"`
	Text       string  `json:"text,omitempty"`
	CampaignID string  `json:"campaign_id,omitempty"`
	LeadID     string  `json:"lead_id,omitempty"`
	Channel    Channel `json:"channel"`
}

// SendResult is returned by a vendor sender after attempting delivery.
type SendResult struct {
	Success   bool      `json:"success"`
	MessageID string    `json:"message_id,omitempty"`
	Vendor    string    `json:"vendor"`
	SentAt    time.Time `json:"sent_at"`
	Error     string    `json:"error,omitempty"`
}

// NotificationKind identifies why a notification was sent.
type NotificationKind string

const (
	NotificationHandover      NotificationKind = "handover"
	NotificationHandoverAlert NotificationKind = "handover_alert"
	NotificationWatchdogAlert NotificationKind = "watchdog_alert"
)

// Notification is a message for humans: sales reps or administrators.
type Notification struct {
	Kind           NotificationKind    `json:"kind"`
	Recipients     []HandoverRecipient `json:"recipients"`
	Subject        string              `json:"subject"`
	Body           string              `json:"body"`
	Urgency        Urgency             `json:"urgency"`
	LeadID         string              `json:"lead_id,omitempty"`
	ConversationID string              `json:"conversation_id,omitempty"`
}
