package handover

import (
	"context"
	"sync"
	"time"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/service/analysis"
)

type memConversations struct {
	mu       sync.Mutex
	convs    map[string]*domain.Conversation
	getErr   error
	scoreErr error
	scores   map[string]float64
}

func newMemConversations(convs ...domain.Conversation) *memConversations {
	m := &memConversations{convs: map[string]*domain.Conversation{}, scores: map[string]float64{}}
	for i := range convs {
		c := convs[i]
		m.convs[c.ID] = &c
	}
	return m
}

func (m *memConversations) Get(_ context.Context, id string) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.convs[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	cp := *c
	cp.Messages = append([]domain.Message(nil), c.Messages...)
	cp.GoalProgress = map[string]bool{}
	for k, v := range c.GoalProgress {
		cp.GoalProgress[k] = v
	}
	return &cp, nil
}

func (m *memConversations) UpdateStatus(_ context.Context, id string, status domain.ConversationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return ErrConversationNotFound
	}
	c.Status = status
	return nil
}

func (m *memConversations) AddMessage(_ context.Context, id string, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return ErrConversationNotFound
	}
	c.Messages = append(c.Messages, msg)
	return nil
}

func (m *memConversations) UpdateQualification(_ context.Context, id string, score float64, goals map[string]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scoreErr != nil {
		return m.scoreErr
	}
	c, ok := m.convs[id]
	if !ok {
		return ErrConversationNotFound
	}
	c.QualificationScore = score
	c.GoalProgress = goals
	m.scores[id] = score
	return nil
}

func (m *memConversations) get(id string) domain.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.convs[id]
}

type memCampaigns map[string]*domain.Campaign

func (m memCampaigns) Get(_ context.Context, id string) (*domain.Campaign, error) {
	c, ok := m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

type memCommunications struct {
	mu    sync.Mutex
	comms []domain.Communication
	err   error
}

func (m *memCommunications) Create(_ context.Context, c *domain.Communication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.comms = append(m.comms, *c)
	return nil
}

func (m *memCommunications) all() []domain.Communication {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Communication(nil), m.comms...)
}

type stubDossiers struct {
	urgency domain.Urgency
	err     error

	mu    sync.Mutex
	evals []domain.HandoverEvaluation
}

func (s *stubDossiers) GenerateDossier(_ context.Context, leadID string, eval domain.HandoverEvaluation, conversationID string) (*domain.LeadDossier, error) {
	s.mu.Lock()
	s.evals = append(s.evals, eval)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &domain.LeadDossier{
		LeadID:         leadID,
		ConversationID: conversationID,
		Context:        "Dana Reyes from Acme",
		LeadSnapshot:   domain.LeadSnapshot{Name: "Dana Reyes", Email: "dana@acme.io"},
		HandoverTrigger: domain.HandoverTrigger{
			Reason:            eval.Reason,
			Score:             eval.Score,
			TriggeredCriteria: eval.TriggeredCriteria,
			Urgency:           s.urgency,
		},
	}, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingNotifier) all() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.sent...)
}

type panickingAnalyzer struct{}

func (panickingAnalyzer) Analyze(*domain.Conversation, *domain.Message) analysis.Analysis {
	panic("analyzer exploded")
}

var testNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }
