package dossier

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/leadflow/internal/domain"
)

type memLeads map[string]domain.Lead

func (m memLeads) Get(_ context.Context, id string) (*domain.Lead, error) {
	l, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("lead %s: %w", id, domain.ErrNotFound)
	}
	return &l, nil
}

type memConversations struct {
	convs []domain.Conversation
	err   error
}

func (m memConversations) ListByLead(_ context.Context, leadID string) ([]domain.Conversation, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Conversation
	for _, c := range m.convs {
		if c.LeadID == leadID {
			cp := c
			cp.Messages = append([]domain.Message(nil), c.Messages...)
			out = append(out, cp)
		}
	}
	return out, nil
}

type memCommunications []domain.Communication

func (m memCommunications) ListByLead(_ context.Context, leadID string) ([]domain.Communication, error) {
	var out []domain.Communication
	for _, c := range m {
		if c.LeadID == leadID {
			out = append(out, c)
		}
	}
	return out, nil
}

var t0 = time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time { return t0.Add(time.Duration(minutes) * time.Minute) }

func msg(role domain.MessageRole, minute int, content string) domain.Message {
	return domain.Message{Role: role, Content: content, Timestamp: at(minute)}
}

func fixture() Sources {
	leads := memLeads{"lead-1": {ID: "lead-1", FirstName: "Dana", LastName: "Reyes", Email: "dana@acme.io", Company: "Acme", Source: "webinar"}}
	convs := memConversations{convs: []domain.Conversation{
		{
			ID: "conv-b", LeadID: "lead-1", Channel: domain.ChannelSMS, Status: domain.ConversationActive, CreatedAt: at(60),
			Messages: []domain.Message{
				msg(domain.RoleAgent, 60, "Following up by text"),
				msg(domain.RoleLead, 61, "We need this asap, what does pricing look like?"),
			},
		},
		{
			ID: "conv-a", LeadID: "lead-1", Channel: domain.ChannelEmail, Status: domain.ConversationActive, CreatedAt: at(0),
			Messages: []domain.Message{
				msg(domain.RoleAgent, 0, "Hi Dana, thanks for joining the webinar."),
				msg(domain.RoleLead, 5, "We're researching options for our team. Does it integrate with Salesforce?"),
				msg(domain.RoleAgent, 6, "It does, via our API."),
				msg(domain.RoleLead, 10, "I love that. I'm the owner so I decide on budget."),
			},
		},
	}}
	comms := memCommunications{
		{ID: "comm-1", LeadID: "lead-1", Channel: domain.ChannelEmail, Direction: domain.DirectionOutbound, CreatedAt: at(0)},
	}
	return Sources{Leads: leads, Conversations: convs, Communications: comms}
}

func evaluation(score float64) domain.HandoverEvaluation {
	return domain.HandoverEvaluation{
		ShouldHandover:    true,
		Reason:            "Qualification score 8.0 meets threshold 7.0",
		Score:             score,
		TriggeredCriteria: []string{domain.CriterionQualificationScore},
	}
}

func TestGenerateDossier(t *testing.T) {
	g := NewGenerator(fixture(), nil)

	d, err := g.GenerateDossier(context.Background(), "lead-1", evaluation(5), "conv-b")
	require.NoError(t, err)

	assert.Equal(t, "Dana Reyes", d.LeadSnapshot.Name)
	assert.Equal(t, "conv-b", d.ConversationID)
	// The researching message precedes the asap one chronologically.
	assert.Equal(t, "Planning (1-3 months)", d.LeadSnapshot.PurchaseTiming)
	assert.Equal(t, []string{"pricing", "features", "integration"}, d.LeadSnapshot.Interests)

	require.Len(t, d.ConversationHistory, 2)
	assert.Equal(t, "conv-a", d.ConversationHistory[0].ConversationID)
	assert.Equal(t, "conv-b", d.ConversationHistory[1].ConversationID)

	assert.Equal(t, []domain.Channel{domain.ChannelEmail, domain.ChannelSMS}, d.CommunicationSummary.Channels)
	assert.Equal(t, 2, d.CommunicationSummary.TotalConversations)
	assert.Equal(t, 6, d.CommunicationSummary.TotalMessages)
	assert.LessOrEqual(t, len(d.CommunicationSummary.Highlights), 5)
	assert.Contains(t, d.CommunicationSummary.Highlights[0], "Asked:")
	assert.LessOrEqual(t, len(d.CommunicationSummary.ToneObservations), 3)
	assert.LessOrEqual(t, len(d.CommunicationSummary.EngagementPatterns), 3)
	assert.Contains(t, d.CommunicationSummary.EngagementPatterns, "Engaged on 2 channels: email, sms")

	// The asap message makes conv-b urgent.
	assert.Equal(t, domain.UrgencyHigh, d.HandoverTrigger.Urgency)
	assert.Equal(t, "Contact within 24 hours", d.Recommendations.Timeline)
	assert.LessOrEqual(t, len(d.ProfileAnalysis.KeyHooks), 4)
	assert.Contains(t, d.ProfileAnalysis.GoalsAchieved, "budget_confirmed")
	assert.Contains(t, d.Context, "Dana Reyes from Acme has had 2 conversation(s) across email, sms")
}

func TestGenerateDossier_Idempotent(t *testing.T) {
	g := NewGenerator(fixture(), nil)
	ctx := context.Background()

	first, err := g.GenerateDossier(ctx, "lead-1", evaluation(7), "conv-a")
	require.NoError(t, err)
	second, err := g.GenerateDossier(ctx, "lead-1", evaluation(7), "conv-a")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerateDossier_UsesPersistedScore(t *testing.T) {
	src := fixture()
	src.Conversations = memConversations{convs: []domain.Conversation{{
		ID: "conv-1", LeadID: "lead-1", Channel: domain.ChannelEmail, Status: domain.ConversationActive, CreatedAt: at(0),
		QualificationScore: 2,
		GoalProgress:       map[string]bool{"budget_confirmed": true},
		Messages:           []domain.Message{msg(domain.RoleLead, 1, "send pricing please")},
	}}}
	g := NewGenerator(src, nil)

	d, err := g.GenerateDossier(context.Background(), "lead-1", evaluation(2), "conv-1")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, d.ProfileAnalysis.AverageScore, 0.001)
	assert.Equal(t, buyerType(2), d.ProfileAnalysis.BuyerType)
}

func TestGenerateDossier_LeadNotFound(t *testing.T) {
	g := NewGenerator(fixture(), nil)

	_, err := g.GenerateDossier(context.Background(), "missing", evaluation(5), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGenerateDossier_FetchErrorPropagates(t *testing.T) {
	src := fixture()
	src.Conversations = memConversations{err: errors.New("db offline")}

	_, err := NewGenerator(src, nil).GenerateDossier(context.Background(), "lead-1", evaluation(5), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db offline")
}

func TestPurchaseTiming(t *testing.T) {
	tests := []struct {
		name string
		msgs []string
		want string
	}{
		{"none", []string{"hello"}, "not specified"},
		{"immediate wins inside one message", []string{"planning to buy this week"}, "Immediate (within 1 week)"},
		{"first message wins", []string{"next month works", "actually asap"}, "Near-term (within 1 month)"},
		{"planning", []string{"just exploring"}, "Planning (1-3 months)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msgs []timedMessage
			for i, c := range tt.msgs {
				msgs = append(msgs, timedMessage{Message: msg(domain.RoleLead, i, c)})
			}
			assert.Equal(t, tt.want, purchaseTiming(msgs))
		})
	}
}

func TestKeyExchanges_SortedAndCapped(t *testing.T) {
	var msgs []domain.Message
	for i := 0; i < 8; i++ {
		msgs = append(msgs, msg(domain.RoleLead, i, "how does this work?"))
	}
	for i := 8; i < 14; i++ {
		msgs = append(msgs, msg(domain.RoleLead, i, "we are ready to sign"))
	}
	msgs = append(msgs, msg(domain.RoleLead, 20, "ok"), msg(domain.RoleSystem, 21, "ready"))

	ex := keyExchanges(msgs)
	require.Len(t, ex, 10)
	for i := 0; i < 6; i++ {
		assert.Equal(t, domain.SignificanceHigh, ex[i].Significance)
	}
	assert.Equal(t, at(13), ex[0].Timestamp)
	assert.Equal(t, domain.SignificanceMedium, ex[6].Significance)
	assert.Equal(t, at(7), ex[6].Timestamp)
}

func TestDossierUrgency(t *testing.T) {
	assert.Equal(t, domain.UrgencyHigh, dossierUrgency(nil, 8))
	assert.Equal(t, domain.UrgencyMedium, dossierUrgency(nil, 6))
	assert.Equal(t, domain.UrgencyLow, dossierUrgency(nil, 2))
}

func TestBuyerTypeAndRecommendations(t *testing.T) {
	assert.Equal(t, "Ready buyer", buyerType(8))
	assert.Equal(t, "Engaged evaluator", buyerType(6.5))
	assert.Equal(t, "Research-stage prospect", buyerType(4))
	assert.Equal(t, "Early-stage browser", buyerType(1))

	assert.Equal(t, tierHot.approach, recommendations(domain.UrgencyLow, 7).ApproachStrategy)
	assert.Equal(t, tierWarm.approach, recommendations(domain.UrgencyLow, 5).ApproachStrategy)
	assert.Equal(t, "Contact within 1 week", recommendations(domain.UrgencyLow, 1).Timeline)
	assert.Equal(t, "Contact within 2-3 days", recommendations(domain.UrgencyMedium, 1).Timeline)
}
