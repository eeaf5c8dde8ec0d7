package analysis

import (
	"regexp"
	"strings"
)

// Goal categories tracked in a conversation's goal progress.
const (
	GoalBudgetConfirmed     = "budget_confirmed"
	GoalTimelineEstablished = "timeline_established"
	GoalDecisionMaker       = "decision_maker"
	GoalInterestLevel       = "interest_level"
	GoalContactInfo         = "contact_info"
)

type category struct {
	goal     string
	weight   float64
	keywords []string
	patterns []*regexp.Regexp
}

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`(\+?\d{1,2}[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)
)

// categories is ordered; Analysis.MatchedCategories follows this order.
var categories = []category{
	{
		goal:     GoalBudgetConfirmed,
		weight:   2.0,
		keywords: []string{"budget", "price", "pricing", "cost", "afford", "financing", "payment", "quote"},
	},
	{
		goal:     GoalTimelineEstablished,
		weight:   1.5,
		keywords: []string{"timeline", "this week", "next week", "this month", "next month", "asap", "deadline", "soon"},
	},
	{
		goal:     GoalDecisionMaker,
		weight:   2.0,
		keywords: []string{"decision maker", "i decide", "my decision", "i'm the owner", "i am the owner", "ceo", "founder", "sign off", "i approve"},
	},
	{
		goal:     GoalInterestLevel,
		weight:   1.5,
		keywords: []string{"interested", "tell me more", "learn more", "demo", "sign up", "sounds good", "how does"},
	},
	{
		goal:     GoalContactInfo,
		weight:   1.0,
		keywords: []string{"call me", "reach me", "my number", "my email", "text me"},
		patterns: []*regexp.Regexp{emailPattern, phonePattern},
	},
}

var (
	positiveKeywords = []string{"great", "love", "perfect", "excellent", "amazing", "awesome", "looking forward", "thank", "helpful", "impressed"}
	negativeKeywords = []string{"not interested", "too expensive", "disappointed", "frustrated", "unhappy", "cancel", "unsubscribe", "waste of time", "terrible", "annoyed"}
	urgencyKeywords  = []string{"urgent", "asap", "immediately", "right away", "today", "emergency"}
)

// ContainsAny reports whether text contains any keyword. Matching is a
// case-insensitive substring test.
func ContainsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// MatchedKeywords returns the keywords found in text, in keyword order.
func MatchedKeywords(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			out = append(out, k)
		}
	}
	return out
}

// countOccurrences sums non-overlapping occurrences of every keyword.
func countOccurrences(lower string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		n += strings.Count(lower, k)
	}
	return n
}

func (c category) matches(lower, original string) bool {
	for _, k := range c.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	for _, p := range c.patterns {
		if p.MatchString(original) {
			return true
		}
	}
	return false
}
