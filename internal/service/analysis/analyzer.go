package analysis

import (
	"strings"

	"github.com/ignite/leadflow/internal/domain"
)

// Analysis is the result of scoring one conversation.
type Analysis struct {
	QualificationScore float64         `json:"qualification_score"`
	GoalProgress       map[string]bool `json:"goal_progress"`
	MatchedCategories  []string        `json:"matched_categories"`
	Sentiment          int             `json:"sentiment"`
	Urgency            domain.Urgency  `json:"urgency"`
	UrgencyKeywords    []string        `json:"urgency_keywords"`
	LeadMessages       int             `json:"lead_messages"`
	AgentMessages      int             `json:"agent_messages"`
	Questions          int             `json:"questions"`
}

// ConversationAnalyzer scores a conversation. newMessage, when set, is
// analysed as if it had been appended. Implementations must not mutate the
// conversation.
type ConversationAnalyzer interface {
	Analyze(conv *domain.Conversation, newMessage *domain.Message) Analysis
}

// KeywordAnalyzer is the keyword-substring ConversationAnalyzer.
type KeywordAnalyzer struct{}

// NewKeywordAnalyzer returns the default analyzer.
func NewKeywordAnalyzer() KeywordAnalyzer { return KeywordAnalyzer{} }

// Analyze implements ConversationAnalyzer.
//
// Every matched category marks its goal. A category whose goal was not yet
// reached adds its weight to the conversation's current score, clamped to
// [0, 10], so analysing an unchanged conversation again yields the same
// score. Goals are never cleared.
func (KeywordAnalyzer) Analyze(conv *domain.Conversation, newMessage *domain.Message) Analysis {
	messages := conv.Messages
	if newMessage != nil {
		messages = append(append([]domain.Message(nil), conv.Messages...), *newMessage)
	}

	a := Analysis{
		GoalProgress:      make(map[string]bool, len(conv.GoalProgress)+len(categories)),
		MatchedCategories: []string{},
		UrgencyKeywords:   []string{},
		Urgency:           domain.UrgencyLow,
	}
	for goal, done := range conv.GoalProgress {
		if done {
			a.GoalProgress[goal] = true
		}
	}

	var leadText strings.Builder
	for _, m := range messages {
		switch m.Role {
		case domain.RoleLead:
			a.LeadMessages++
			if strings.Contains(m.Content, "?") {
				a.Questions++
			}
			leadText.WriteString(m.Content)
			leadText.WriteString("\n")
		case domain.RoleAgent:
			a.AgentMessages++
		}
	}
	original := leadText.String()
	lower := strings.ToLower(original)

	score := conv.QualificationScore
	for _, c := range categories {
		if c.matches(lower, original) {
			a.GoalProgress[c.goal] = true
			a.MatchedCategories = append(a.MatchedCategories, c.goal)
			if !conv.GoalProgress[c.goal] {
				score += c.weight
			}
		}
	}
	a.QualificationScore = domain.ClampScore(score)

	a.Sentiment = countOccurrences(lower, positiveKeywords) - countOccurrences(lower, negativeKeywords)

	for _, k := range urgencyKeywords {
		if strings.Contains(lower, k) {
			a.UrgencyKeywords = append(a.UrgencyKeywords, k)
		}
	}
	a.Urgency = urgencyFor(a.Sentiment, a.QualificationScore, len(a.UrgencyKeywords) > 0)
	return a
}

func urgencyFor(sentiment int, score float64, urgentWords bool) domain.Urgency {
	level := domain.UrgencyLow
	if sentiment > 0 || score > 3 {
		level = domain.UrgencyMedium
	}
	if sentiment > 2 && score > 5 {
		level = domain.UrgencyHigh
	}
	if urgentWords {
		level = domain.UrgencyHigh
	}
	return level
}
