package domain

// Handover criteria identifiers reported in HandoverEvaluation.TriggeredCriteria.
const (
	CriterionQualificationScore = "qualification_score"
	CriterionConversationLength = "conversation_length"
	CriterionKeywordTriggers    = "keyword_triggers"
	CriterionGoalCompletion     = "goal_completion"
	CriterionTimeThreshold      = "time_threshold"
)

// Urgency grades how quickly a human should pick up a lead.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Rank orders urgencies so they can be compared.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyHigh:
		return 2
	case UrgencyMedium:
		return 1
	default:
		return 0
	}
}

// HandoverEvaluation is the derived decision on whether to escalate a
// conversation. It is never persisted on its own.
type HandoverEvaluation struct {
	ShouldHandover    bool     `json:"should_handover"`
	Reason            string   `json:"reason"`
	Score             float64  `json:"score"`
	TriggeredCriteria []string `json:"triggered_criteria"`
	NextActions       []string `json:"next_actions"`
	Urgency           Urgency  `json:"urgency"`
}

// HasCriterion reports whether the named criterion triggered.
func (e HandoverEvaluation) HasCriterion(name string) bool {
	for _, c := range e.TriggeredCriteria {
		if c == name {
			return true
		}
	}
	return false
}
