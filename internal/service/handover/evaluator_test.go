package handover

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/service/analysis"
)

func TestGoalsComplete(t *testing.T) {
	progress := map[string]bool{"budget_confirmed": true, "decision_maker": true}

	assert.False(t, goalsComplete(progress, nil), "empty requirement never triggers")
	assert.True(t, goalsComplete(progress, []string{"budget_confirmed"}))
	assert.True(t, goalsComplete(progress, []string{"budget_confirmed", "decision_maker"}))
	assert.False(t, goalsComplete(progress, []string{"budget_confirmed", "timeline_established"}))
}

func TestEvaluate_TimeThreshold(t *testing.T) {
	criteria := domain.HandoverCriteria{TimeThresholdSeconds: 1800}
	conv := &domain.Conversation{ID: "c", CreatedAt: testNow.Add(-29 * time.Minute)}

	eval := evaluate(conv, nil, analysis.Analysis{}, criteria, testNow)
	assert.False(t, eval.ShouldHandover)

	eval = evaluate(conv, nil, analysis.Analysis{}, criteria, testNow.Add(time.Minute))
	assert.Equal(t, []string{domain.CriterionTimeThreshold}, eval.TriggeredCriteria)
	assert.Equal(t, "Conversation open for 30m0s (threshold 30m0s)", eval.Reason)
	assert.Equal(t, domain.UrgencyLow, eval.Urgency)
}

func TestEvaluate_KeywordsOnlyFromLeadMessages(t *testing.T) {
	criteria := domain.HandoverCriteria{KeywordTriggers: []string{"Pricing", "demo"}}
	conv := &domain.Conversation{Messages: []domain.Message{
		{Role: domain.RoleAgent, Content: "Want a demo?"},
		{Role: domain.RoleLead, Content: "What is your PRICING?"},
	}}

	eval := evaluate(conv, nil, analysis.Analysis{}, criteria, testNow)
	assert.Equal(t, "Lead mentioned: Pricing", eval.Reason)
}

func TestHighPriority(t *testing.T) {
	assert.Equal(t, recipients[:1], highPriority(recipients))
	assert.Equal(t, recipients[1:], highPriority(recipients[1:]))
}
