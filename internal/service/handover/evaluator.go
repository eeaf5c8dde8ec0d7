package handover

import (
	"fmt"
	"strings"
	"time"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/service/analysis"
)

const (
	reasonNoCriteria  = "No handover criteria met"
	reasonUnavailable = "Evaluation unavailable"
)

var (
	handoverActions = []string{
		"Notify assigned sales representative",
		"Prepare lead dossier",
		"Schedule follow-up call within 24 hours",
	}
	continueActions = []string{
		"Continue automated nurturing",
		"Monitor for buying signals",
	}
)

// defaultEvaluation is the non-handover result used when a conversation
// cannot be evaluated.
func defaultEvaluation(reason string) domain.HandoverEvaluation {
	return domain.HandoverEvaluation{
		ShouldHandover:    false,
		Reason:            reason,
		TriggeredCriteria: []string{},
		NextActions:       append([]string(nil), continueActions...),
		Urgency:           domain.UrgencyLow,
	}
}

// evaluate checks every criterion against the analysed conversation. All
// criteria are checked; none short-circuits another.
func evaluate(conv *domain.Conversation, newMessage *domain.Message, a analysis.Analysis, criteria domain.HandoverCriteria, now time.Time) domain.HandoverEvaluation {
	var (
		triggered    = []string{}
		explanations []string
	)

	if criteria.QualificationScore > 0 && a.QualificationScore >= criteria.QualificationScore {
		triggered = append(triggered, domain.CriterionQualificationScore)
		explanations = append(explanations, fmt.Sprintf("Qualification score %.1f meets threshold %.1f",
			a.QualificationScore, criteria.QualificationScore))
	}

	count := len(conv.Messages)
	if newMessage != nil {
		count++
	}
	if criteria.ConversationLength > 0 && count >= criteria.ConversationLength {
		triggered = append(triggered, domain.CriterionConversationLength)
		explanations = append(explanations, fmt.Sprintf("Conversation length %d meets threshold %d",
			count, criteria.ConversationLength))
	}

	if words := matchedTriggers(conv, newMessage, criteria.KeywordTriggers); len(words) > 0 {
		triggered = append(triggered, domain.CriterionKeywordTriggers)
		explanations = append(explanations, "Lead mentioned: "+strings.Join(words, ", "))
	}

	if goalsComplete(a.GoalProgress, criteria.GoalCompletionRequired) {
		triggered = append(triggered, domain.CriterionGoalCompletion)
		explanations = append(explanations, "Required goals completed: "+strings.Join(criteria.GoalCompletionRequired, ", "))
	}

	if criteria.TimeThresholdSeconds > 0 && !conv.CreatedAt.IsZero() {
		threshold := time.Duration(criteria.TimeThresholdSeconds) * time.Second
		if open := now.Sub(conv.CreatedAt); open >= threshold {
			triggered = append(triggered, domain.CriterionTimeThreshold)
			explanations = append(explanations, fmt.Sprintf("Conversation open for %s (threshold %s)",
				open.Truncate(time.Second), threshold))
		}
	}

	eval := domain.HandoverEvaluation{
		ShouldHandover:    len(triggered) > 0,
		Score:             a.QualificationScore,
		TriggeredCriteria: triggered,
		Urgency:           a.Urgency,
	}
	if eval.Urgency == "" {
		eval.Urgency = domain.UrgencyLow
	}
	if eval.ShouldHandover {
		eval.Reason = strings.Join(explanations, "; ")
		eval.NextActions = append([]string(nil), handoverActions...)
	} else {
		eval.Reason = reasonNoCriteria
		eval.NextActions = append([]string(nil), continueActions...)
	}
	return eval
}

// matchedTriggers returns the trigger keywords found in lead messages, each
// reported once in criteria order.
func matchedTriggers(conv *domain.Conversation, newMessage *domain.Message, triggers []string) []string {
	if len(triggers) == 0 {
		return nil
	}
	var b strings.Builder
	for _, m := range conv.LeadMessages() {
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	if newMessage != nil && newMessage.Role == domain.RoleLead {
		b.WriteString(newMessage.Content)
	}
	return analysis.MatchedKeywords(b.String(), triggers)
}

// goalsComplete is false for an empty requirement list.
func goalsComplete(progress map[string]bool, required []string) bool {
	if len(required) == 0 {
		return false
	}
	for _, g := range required {
		if !progress[g] {
			return false
		}
	}
	return true
}
