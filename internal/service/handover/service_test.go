package handover

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/leadflow/internal/domain"
)

var recipients = []domain.HandoverRecipient{
	{Name: "Sam", Email: "sam@example.com", Role: "ae", Priority: domain.PriorityHigh},
	{Name: "Kit", Email: "kit@example.com", Role: "sdr", Priority: domain.PriorityLow},
}

func lead(minutesAgo int, content string) domain.Message {
	return domain.Message{Role: domain.RoleLead, Content: content, Timestamp: testNow.Add(-time.Duration(minutesAgo) * time.Minute)}
}

func agent(minutesAgo int, content string) domain.Message {
	return domain.Message{Role: domain.RoleAgent, Content: content, Timestamp: testNow.Add(-time.Duration(minutesAgo) * time.Minute)}
}

type harness struct {
	svc      *Service
	convs    *memConversations
	comms    *memCommunications
	dossiers *stubDossiers
	notifier *recordingNotifier
}

func newHarness(t *testing.T, defaults domain.HandoverCriteria, campaigns memCampaigns, convs ...domain.Conversation) *harness {
	t.Helper()
	h := &harness{
		convs:    newMemConversations(convs...),
		comms:    &memCommunications{},
		dossiers: &stubDossiers{urgency: domain.UrgencyMedium},
		notifier: &recordingNotifier{},
	}
	h.svc = NewService(Deps{
		Conversations:  h.convs,
		Campaigns:      campaigns,
		Communications: h.comms,
		Dossiers:       h.dossiers,
		Notifier:       h.notifier,
	}, defaults, WithClock(fixedClock))
	return h
}

func TestEvaluateHandover_ScoreAndKeyword(t *testing.T) {
	campaigns := memCampaigns{"camp-1": {ID: "camp-1", HandoverCriteria: domain.HandoverCriteria{
		QualificationScore: 8,
		KeywordTriggers:    []string{"pricing"},
	}}}
	conv := domain.Conversation{
		ID: "conv-1", LeadID: "lead-1", CampaignID: "camp-1", Status: domain.ConversationActive,
		QualificationScore: 9, CreatedAt: testNow.Add(-time.Minute),
		Messages: []domain.Message{lead(1, "This is urgent, please send pricing")},
	}
	h := newHarness(t, domain.HandoverCriteria{}, campaigns, conv)

	eval, err := h.svc.EvaluateHandover(context.Background(), "conv-1", nil)
	require.NoError(t, err)

	assert.True(t, eval.ShouldHandover)
	assert.True(t, eval.HasCriterion(domain.CriterionQualificationScore))
	assert.True(t, eval.HasCriterion(domain.CriterionKeywordTriggers))
	assert.Equal(t, domain.UrgencyHigh, eval.Urgency)
	assert.Equal(t, handoverActions, eval.NextActions)
	assert.Contains(t, eval.Reason, "Lead mentioned: pricing")

	// The analysed score is persisted.
	assert.Equal(t, eval.Score, h.convs.get("conv-1").QualificationScore)
	assert.True(t, h.convs.get("conv-1").GoalProgress["budget_confirmed"])
}

func TestEvaluateHandover_AllCriteriaAccumulate(t *testing.T) {
	criteria := domain.HandoverCriteria{
		QualificationScore:     1,
		ConversationLength:     2,
		KeywordTriggers:        []string{"demo"},
		GoalCompletionRequired: []string{"budget_confirmed"},
		TimeThresholdSeconds:   60,
	}
	conv := domain.Conversation{
		ID: "conv-1", LeadID: "lead-1", Status: domain.ConversationActive, CreatedAt: testNow.Add(-2 * time.Hour),
		Messages: []domain.Message{
			agent(30, "Hi there"),
			lead(20, "Can we book a demo? Our budget is approved."),
		},
	}
	h := newHarness(t, criteria, nil, conv)

	eval, err := h.svc.EvaluateHandover(context.Background(), "conv-1", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		domain.CriterionQualificationScore,
		domain.CriterionConversationLength,
		domain.CriterionKeywordTriggers,
		domain.CriterionGoalCompletion,
		domain.CriterionTimeThreshold,
	}, eval.TriggeredCriteria)
	assert.Equal(t, 4, strings.Count(eval.Reason, "; "))
}

func TestEvaluateHandover_NoCriteriaMet(t *testing.T) {
	criteria := domain.HandoverCriteria{QualificationScore: 9, ConversationLength: 10, KeywordTriggers: []string{"pricing"}}
	conv := domain.Conversation{
		ID: "conv-1", LeadID: "lead-1", Status: domain.ConversationActive, CreatedAt: testNow,
		Messages: []domain.Message{lead(0, "hello")},
	}
	h := newHarness(t, criteria, nil, conv)

	eval, err := h.svc.EvaluateHandover(context.Background(), "conv-1", nil)
	require.NoError(t, err)
	assert.False(t, eval.ShouldHandover)
	assert.Empty(t, eval.TriggeredCriteria)
	assert.Equal(t, reasonNoCriteria, eval.Reason)
	assert.Equal(t, continueActions, eval.NextActions)
}

func TestEvaluateHandover_NewMessageCounts(t *testing.T) {
	criteria := domain.HandoverCriteria{ConversationLength: 3, KeywordTriggers: []string{"talk to a human"}}
	conv := domain.Conversation{
		ID: "conv-1", LeadID: "lead-1", Status: domain.ConversationActive, CreatedAt: testNow,
		Messages: []domain.Message{agent(2, "Hi"), lead(1, "Hello")},
	}
	h := newHarness(t, criteria, nil, conv)

	msg := lead(0, "Can I talk to a human?")
	eval, err := h.svc.EvaluateHandover(context.Background(), "conv-1", &msg)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.CriterionConversationLength, domain.CriterionKeywordTriggers}, eval.TriggeredCriteria)
	// The hypothetical message is not persisted.
	assert.Len(t, h.convs.get("conv-1").Messages, 2)
}

func TestEvaluateHandover_CampaignWithoutCriteriaUsesDefaults(t *testing.T) {
	campaigns := memCampaigns{"camp-1": {ID: "camp-1"}}
	conv := domain.Conversation{
		ID: "conv-1", LeadID: "lead-1", CampaignID: "camp-1", Status: domain.ConversationActive, CreatedAt: testNow,
		Messages: []domain.Message{lead(0, "ready to buy")},
	}
	h := newHarness(t, domain.HandoverCriteria{KeywordTriggers: []string{"ready to buy"}}, campaigns, conv)

	eval, err := h.svc.EvaluateHandover(context.Background(), "conv-1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.CriterionKeywordTriggers}, eval.TriggeredCriteria)
}

func TestEvaluateHandover_NotFound(t *testing.T) {
	h := newHarness(t, domain.HandoverCriteria{}, nil)

	eval, err := h.svc.EvaluateHandover(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.False(t, eval.ShouldHandover)
	assert.Equal(t, continueActions, eval.NextActions)
}

func TestEvaluateHandover_FailsOpen(t *testing.T) {
	t.Run("repository error", func(t *testing.T) {
		h := newHarness(t, domain.HandoverCriteria{}, nil)
		h.convs.getErr = errors.New("connection refused")

		eval, err := h.svc.EvaluateHandover(context.Background(), "conv-1", nil)
		require.NoError(t, err)
		assert.False(t, eval.ShouldHandover)
		assert.Equal(t, reasonUnavailable, eval.Reason)
	})

	t.Run("analyzer panic", func(t *testing.T) {
		conv := domain.Conversation{ID: "conv-1", LeadID: "lead-1", Status: domain.ConversationActive}
		convs := newMemConversations(conv)
		svc := NewService(Deps{Conversations: convs, Analyzer: panickingAnalyzer{}}, domain.HandoverCriteria{}, WithClock(fixedClock))

		eval, err := svc.EvaluateHandover(context.Background(), "conv-1", nil)
		require.NoError(t, err)
		assert.False(t, eval.ShouldHandover)
		assert.Equal(t, reasonUnavailable, eval.Reason)
	})

	t.Run("persist error is not fatal", func(t *testing.T) {
		conv := domain.Conversation{
			ID: "conv-1", LeadID: "lead-1", Status: domain.ConversationActive, CreatedAt: testNow,
			Messages: []domain.Message{lead(0, "pricing please")},
		}
		h := newHarness(t, domain.HandoverCriteria{KeywordTriggers: []string{"pricing"}}, nil, conv)
		h.convs.scoreErr = errors.New("write failed")

		eval, err := h.svc.EvaluateHandover(context.Background(), "conv-1", nil)
		require.NoError(t, err)
		assert.True(t, eval.ShouldHandover)
	})
}

func TestExecuteHandover(t *testing.T) {
	campaigns := memCampaigns{"camp-1": {ID: "camp-1", HandoverCriteria: domain.HandoverCriteria{
		KeywordTriggers:    []string{"pricing"},
		HandoverRecipients: recipients,
	}}}
	conv := domain.Conversation{
		ID: "conv-1", LeadID: "lead-1", CampaignID: "camp-1", Channel: domain.ChannelEmail,
		Status: domain.ConversationActive, CreatedAt: testNow,
		Messages: []domain.Message{lead(0, "Send pricing asap")},
	}
	h := newHarness(t, domain.HandoverCriteria{}, campaigns, conv)
	h.dossiers.urgency = domain.UrgencyHigh

	ok := h.svc.ExecuteHandover(context.Background(), "conv-1", "Lead asked for pricing")
	require.True(t, ok)

	stored := h.convs.get("conv-1")
	assert.Equal(t, domain.ConversationHandoverPending, stored.Status)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, domain.RoleSystem, stored.Messages[1].Role)

	comms := h.comms.all()
	require.Len(t, comms, 1)
	assert.Equal(t, domain.CommunicationHandover, comms[0].Type)
	assert.Equal(t, domain.DirectionInternal, comms[0].Direction)
	assert.Contains(t, comms[0].Content, "LEAD HANDOVER DOSSIER")
	assert.Contains(t, comms[0].Metadata, "evaluation")
	assert.Contains(t, comms[0].Metadata, "dossier")
	assert.Equal(t, "Lead asked for pricing", comms[0].Metadata["reason"])

	require.Len(t, h.dossiers.evals, 1)
	assert.Equal(t, "Lead asked for pricing", h.dossiers.evals[0].Reason)

	sent := h.notifier.all()
	require.Len(t, sent, 2)
	assert.Equal(t, domain.NotificationHandover, sent[0].Kind)
	assert.Equal(t, recipients, sent[0].Recipients)
	assert.Equal(t, comms[0].Content, sent[0].Body)
	assert.Equal(t, domain.NotificationHandoverAlert, sent[1].Kind)
	assert.Equal(t, recipients[:1], sent[1].Recipients)
}

func TestExecuteHandover_DefaultRecipientsAndNoAlert(t *testing.T) {
	conv := domain.Conversation{ID: "conv-1", LeadID: "lead-1", Status: domain.ConversationActive, CreatedAt: testNow}
	defaults := domain.HandoverCriteria{HandoverRecipients: recipients[1:]}
	h := newHarness(t, defaults, nil, conv)

	require.True(t, h.svc.ExecuteHandover(context.Background(), "conv-1", ""))

	sent := h.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, recipients[1:], sent[0].Recipients)
}

func TestExecuteHandover_HighUrgencyWithoutHighPriorityAlertsEveryone(t *testing.T) {
	conv := domain.Conversation{ID: "conv-1", LeadID: "lead-1", Status: domain.ConversationActive, CreatedAt: testNow}
	h := newHarness(t, domain.HandoverCriteria{HandoverRecipients: recipients[1:]}, nil, conv)
	h.dossiers.urgency = domain.UrgencyHigh

	require.True(t, h.svc.ExecuteHandover(context.Background(), "conv-1", ""))

	sent := h.notifier.all()
	require.Len(t, sent, 2)
	assert.Equal(t, recipients[1:], sent[1].Recipients)
}

func TestExecuteHandover_RequiresActiveConversation(t *testing.T) {
	conv := domain.Conversation{ID: "conv-1", LeadID: "lead-1", Status: domain.ConversationHandoverPending}
	h := newHarness(t, domain.HandoverCriteria{HandoverRecipients: recipients}, nil, conv)

	assert.False(t, h.svc.ExecuteHandover(context.Background(), "conv-1", ""))
	assert.False(t, h.svc.ExecuteHandover(context.Background(), "missing", ""))
	assert.Empty(t, h.comms.all())
	assert.Empty(t, h.notifier.all())
}

func TestExecuteHandover_NotificationFailureStillSucceeds(t *testing.T) {
	conv := domain.Conversation{ID: "conv-1", LeadID: "lead-1", Status: domain.ConversationActive}
	h := newHarness(t, domain.HandoverCriteria{HandoverRecipients: recipients}, nil, conv)
	h.notifier.err = errors.New("smtp down")

	assert.True(t, h.svc.ExecuteHandover(context.Background(), "conv-1", ""))
	assert.Len(t, h.comms.all(), 1)
}

func TestExecuteHandover_DossierFailure(t *testing.T) {
	conv := domain.Conversation{ID: "conv-1", LeadID: "lead-1", Status: domain.ConversationActive}
	h := newHarness(t, domain.HandoverCriteria{}, nil, conv)
	h.dossiers.err = errors.New("lead store down")

	assert.False(t, h.svc.ExecuteHandover(context.Background(), "conv-1", ""))
	assert.Equal(t, domain.ConversationActive, h.convs.get("conv-1").Status)
}

func TestHandleInboundReply(t *testing.T) {
	conv := domain.Conversation{
		ID: "conv-1", LeadID: "lead-1", Status: domain.ConversationActive, CreatedAt: testNow,
		Messages: []domain.Message{agent(5, "Any questions?")},
	}
	criteria := domain.HandoverCriteria{KeywordTriggers: []string{"speak to someone"}, HandoverRecipients: recipients}
	h := newHarness(t, criteria, nil, conv)

	out, err := h.svc.HandleInboundReply(context.Background(), "conv-1", "Thanks, nothing yet")
	require.NoError(t, err)
	assert.False(t, out.HandedOver)
	assert.Len(t, h.convs.get("conv-1").Messages, 2)

	out, err = h.svc.HandleInboundReply(context.Background(), "conv-1", "Can I speak to someone?")
	require.NoError(t, err)
	assert.True(t, out.Evaluation.ShouldHandover)
	assert.True(t, out.HandedOver)
	assert.Equal(t, domain.ConversationHandoverPending, h.convs.get("conv-1").Status)
}

func TestHandleInboundReply_RecordsDecidingEvaluation(t *testing.T) {
	conv := domain.Conversation{
		ID: "conv-1", LeadID: "lead-1", Status: domain.ConversationActive, CreatedAt: testNow,
		GoalProgress: map[string]bool{},
	}
	criteria := domain.HandoverCriteria{
		QualificationScore: 3,
		KeywordTriggers:    []string{"pricing"},
		HandoverRecipients: recipients,
	}
	h := newHarness(t, criteria, nil, conv)

	out, err := h.svc.HandleInboundReply(context.Background(), "conv-1", "send pricing please")
	require.NoError(t, err)
	require.True(t, out.HandedOver)
	assert.InDelta(t, 2.0, out.Evaluation.Score, 0.001)
	assert.Equal(t, []string{domain.CriterionKeywordTriggers}, out.Evaluation.TriggeredCriteria)

	require.Len(t, h.dossiers.evals, 1)
	assert.Equal(t, out.Evaluation, h.dossiers.evals[0])

	comms := h.comms.all()
	require.Len(t, comms, 1)
	assert.Equal(t, out.Evaluation, comms[0].Metadata["evaluation"])
	assert.InDelta(t, 2.0, h.convs.get("conv-1").QualificationScore, 0.001)
}

func TestEvaluateHandover_RepeatedCallsKeepScore(t *testing.T) {
	conv := domain.Conversation{
		ID: "conv-1", LeadID: "lead-1", Status: domain.ConversationActive, CreatedAt: testNow,
		Messages:     []domain.Message{lead(1, "send pricing please")},
		GoalProgress: map[string]bool{},
	}
	h := newHarness(t, domain.HandoverCriteria{QualificationScore: 3}, nil, conv)

	for i := 0; i < 4; i++ {
		eval, err := h.svc.EvaluateHandover(context.Background(), "conv-1", nil)
		require.NoError(t, err)
		assert.InDelta(t, 2.0, eval.Score, 0.001)
		assert.False(t, eval.ShouldHandover)
	}
}

func TestHandleInboundReply_Errors(t *testing.T) {
	closed := domain.Conversation{ID: "conv-closed", LeadID: "lead-1", Status: domain.ConversationCompleted}
	h := newHarness(t, domain.HandoverCriteria{}, nil, closed)

	_, err := h.svc.HandleInboundReply(context.Background(), "conv-closed", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.svc.HandleInboundReply(context.Background(), "conv-closed", "hello")
	assert.ErrorIs(t, err, ErrConversationNotActive)

	_, err = h.svc.HandleInboundReply(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
