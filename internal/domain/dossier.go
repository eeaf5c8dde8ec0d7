package domain

import "time"

// LeadDossier is the handover package a human receives when a conversation
// is escalated. It is a pure function of the data snapshot it was built from.
type LeadDossier struct {
	LeadID               string                `json:"lead_id"`
	ConversationID       string                `json:"conversation_id,omitempty"`
	Context              string                `json:"context"`
	LeadSnapshot         LeadSnapshot          `json:"lead_snapshot"`
	CommunicationSummary CommunicationSummary  `json:"communication_summary"`
	ProfileAnalysis      ProfileAnalysis       `json:"profile_analysis"`
	HandoverTrigger      HandoverTrigger       `json:"handover_trigger"`
	ConversationHistory  []ConversationRecap   `json:"conversation_history"`
	Recommendations      DossierRecommendation `json:"recommendations"`
}

// LeadSnapshot is the who-and-what of the lead.
type LeadSnapshot struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	Company        string   `json:"company"`
	Source         string   `json:"source"`
	PurchaseTiming string   `json:"purchase_timing"`
	Interests      []string `json:"interests"`
}

// CommunicationSummary condenses how the lead has communicated.
type CommunicationSummary struct {
	TotalConversations int       `json:"total_conversations"`
	TotalMessages      int       `json:"total_messages"`
	Channels           []Channel `json:"channels"`
	Highlights         []string  `json:"highlights"`
	ToneObservations   []string  `json:"tone_observations"`
	EngagementPatterns []string  `json:"engagement_patterns"`
}

// ProfileAnalysis describes the kind of buyer the lead appears to be.
type ProfileAnalysis struct {
	BuyerType     string   `json:"buyer_type"`
	AverageScore  float64  `json:"average_score"`
	GoalsAchieved []string `json:"goals_achieved"`
	KeyHooks      []string `json:"key_hooks"`
}

// HandoverTrigger records why the handover happened.
type HandoverTrigger struct {
	Reason            string   `json:"reason"`
	Score             float64  `json:"score"`
	TriggeredCriteria []string `json:"triggered_criteria"`
	Urgency           Urgency  `json:"urgency"`
}

// ExchangeSignificance grades a notable message.
type ExchangeSignificance string

const (
	SignificanceHigh   ExchangeSignificance = "high"
	SignificanceMedium ExchangeSignificance = "medium"
)

// KeyExchange is a notable message from a conversation.
type KeyExchange struct {
	Role         MessageRole          `json:"role"`
	Content      string               `json:"content"`
	Timestamp    time.Time            `json:"timestamp"`
	Significance ExchangeSignificance `json:"significance"`
}

// ConversationRecap summarizes one conversation for the dossier.
type ConversationRecap struct {
	ConversationID     string             `json:"conversation_id"`
	Channel            Channel            `json:"channel"`
	Status             ConversationStatus `json:"status"`
	MessageCount       int                `json:"message_count"`
	QualificationScore float64            `json:"qualification_score"`
	StartedAt          time.Time          `json:"started_at"`
	KeyExchanges       []KeyExchange      `json:"key_exchanges"`
}

// DossierRecommendation tells the human what to do next.
type DossierRecommendation struct {
	Timeline         string   `json:"timeline"`
	NextSteps        []string `json:"next_steps"`
	ApproachStrategy string   `json:"approach_strategy"`
}
