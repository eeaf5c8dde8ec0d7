package domain

import "time"

// Channel identifies an outreach channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelChat  Channel = "chat"
)

// Campaign is a multi-step outreach sequence.
type Campaign struct {
	ID               string           `json:"id" db:"id"`
	Name             string           `json:"name" db:"name"`
	FromName         string           `json:"from_name" db:"from_name"`
	FromEmail        string           `json:"from_email" db:"from_email"`
	Steps            []CampaignStep   `json:"steps" db:"steps"`
	HandoverCriteria HandoverCriteria `json:"handover_criteria" db:"handover_criteria"`
	Active           bool             `json:"active" db:"active"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// CampaignStep is one message in a campaign sequence. Subject is only used
// for the email channel.
type CampaignStep struct {
	Channel      Channel `json:"channel"`
	Subject      string  `json:"subject,omitempty"`
	Template     string  `json:"template"`
	DelaySeconds int     `json:"delay_seconds"`
}

// HandoverCriteria controls when a conversation is escalated to a human.
type HandoverCriteria struct {
	QualificationScore     float64             `json:"qualification_score"`
	ConversationLength     int                 `json:"conversation_length"`
	KeywordTriggers        []string            `json:"keyword_triggers"`
	TimeThresholdSeconds   int                 `json:"time_threshold"`
	GoalCompletionRequired []string            `json:"goal_completion_required"`
	HandoverRecipients     []HandoverRecipient `json:"handover_recipients"`
}

// IsZero reports whether no criteria were configured.
func (c HandoverCriteria) IsZero() bool {
	return c.QualificationScore == 0 && c.ConversationLength == 0 &&
		len(c.KeywordTriggers) == 0 && c.TimeThresholdSeconds == 0 &&
		len(c.GoalCompletionRequired) == 0 && len(c.HandoverRecipients) == 0
}

// RecipientPriority ranks handover recipients.
type RecipientPriority string

const (
	PriorityHigh   RecipientPriority = "high"
	PriorityMedium RecipientPriority = "medium"
	PriorityLow    RecipientPriority = "low"
)

// HandoverRecipient is a human who receives handover notifications.
type HandoverRecipient struct {
	Name     string            `json:"name" yaml:"name"`
	Email    string            `json:"email" yaml:"email"`
	Role     string            `json:"role" yaml:"role"`
	Priority RecipientPriority `json:"priority" yaml:"priority"`
}

// EnrollmentStatus enumerates the states of a lead inside a campaign.
type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentFailed    EnrollmentStatus = "failed"
)

// Enrollment links a lead to a campaign and tracks its progress.
type Enrollment struct {
	ID              string           `json:"id" db:"id"`
	LeadID          string           `json:"lead_id" db:"lead_id"`
	CampaignID      string           `json:"campaign_id" db:"campaign_id"`
	Status          EnrollmentStatus `json:"status" db:"status"`
	CurrentStep     int              `json:"current_step" db:"current_step"`
	LastProcessedAt *time.Time       `json:"last_processed_at" db:"last_processed_at"`
}

// EnrolledLead is an enrollment joined with its lead.
type EnrolledLead struct {
	Enrollment Enrollment `json:"enrollment"`
	Lead       Lead       `json:"lead"`
}
