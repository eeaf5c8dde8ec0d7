package handover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/pkg/logger"
	"github.com/ignite/leadflow/internal/service/analysis"
	"github.com/ignite/leadflow/internal/service/dossier"
	"github.com/ignite/leadflow/internal/service/sending"
)

var tracer = otel.Tracer("github.com/ignite/leadflow/internal/service/handover")

const acknowledgement = "Thanks for your patience. A member of our team will follow up with you shortly."

// Deps are the collaborators of a Service. Analyzer defaults to the keyword
// analyzer and Notifier to a no-op.
type Deps struct {
	Conversations  ConversationRepository
	Campaigns      CampaignRepository
	Communications CommunicationRepository
	Dossiers       DossierGenerator
	Analyzer       analysis.ConversationAnalyzer
	Notifier       sending.Notifier
}

// Service evaluates and executes handovers. It is safe for concurrent use
// when its collaborators are.
type Service struct {
	deps     Deps
	defaults domain.HandoverCriteria
	now      func() time.Time
	log      *logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a handover service. defaults apply to conversations
// whose campaign carries no criteria of its own.
func NewService(deps Deps, defaults domain.HandoverCriteria, opts ...Option) *Service {
	if deps.Analyzer == nil {
		deps.Analyzer = analysis.NewKeywordAnalyzer()
	}
	if deps.Notifier == nil {
		deps.Notifier = sending.NotifierFunc(func(context.Context, domain.Notification) error { return nil })
	}
	s := &Service{
		deps:     deps,
		defaults: defaults,
		now:      time.Now,
		log:      logger.Component("handover"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EvaluateHandover scores the conversation, persists the updated score and
// goal progress, and checks every handover criterion. newMessage, when set,
// is counted as if it had been appended.
//
// A missing conversation returns the default result and an error wrapping
// domain.ErrNotFound. Every other failure, panics included, returns the
// default result with a nil error.
func (s *Service) EvaluateHandover(ctx context.Context, conversationID string, newMessage *domain.Message) (eval domain.HandoverEvaluation, err error) {
	ctx, span := tracer.Start(ctx, "handover.EvaluateHandover")
	span.SetAttributes(attribute.String("conversation.id", conversationID))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("evaluation panicked", "conversation_id", conversationID, "panic", fmt.Sprint(r))
			eval, err = defaultEvaluation(reasonUnavailable), nil
		}
	}()

	conv, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return defaultEvaluation(reasonNoCriteria), err
		}
		s.log.Error("evaluation failed", "conversation_id", conversationID, "error", err)
		return defaultEvaluation(reasonUnavailable), nil
	}

	a := s.deps.Analyzer.Analyze(conv, newMessage)
	if err := s.deps.Conversations.UpdateQualification(ctx, conv.ID, a.QualificationScore, a.GoalProgress); err != nil {
		s.log.Warn("persist qualification failed", "conversation_id", conv.ID, "error", err)
	}

	eval = evaluate(conv, newMessage, a, s.criteriaFor(ctx, conv), s.now())
	span.SetAttributes(attribute.Bool("handover.should", eval.ShouldHandover))
	return eval, nil
}

// ExecuteHandover moves an active conversation to handover_pending, records
// the dossier as a handover communication and notifies the recipients.
// Notification failures are logged and do not affect the result.
func (s *Service) ExecuteHandover(ctx context.Context, conversationID, reason string) bool {
	return s.executeHandover(ctx, conversationID, reason, nil)
}

// executeHandover runs the handover. decided, when set, is the evaluation
// that warranted it and is embedded unchanged; otherwise the conversation is
// evaluated as it stands.
func (s *Service) executeHandover(ctx context.Context, conversationID, reason string, decided *domain.HandoverEvaluation) (ok bool) {
	ctx, span := tracer.Start(ctx, "handover.ExecuteHandover")
	span.SetAttributes(attribute.String("conversation.id", conversationID))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("handover panicked", "conversation_id", conversationID, "panic", fmt.Sprint(r))
			ok = false
		}
	}()

	conv, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		s.log.Error("handover failed", "conversation_id", conversationID, "error", err)
		return false
	}
	if conv.Status != domain.ConversationActive {
		s.log.Warn("handover skipped", "conversation_id", conv.ID, "status", string(conv.Status))
		return false
	}

	criteria := s.criteriaFor(ctx, conv)

	var eval domain.HandoverEvaluation
	if decided != nil {
		eval = *decided
	} else {
		eval = evaluate(conv, nil, s.deps.Analyzer.Analyze(conv, nil), criteria, s.now())
	}
	if reason != "" {
		eval.Reason = reason
	}

	d, err := s.deps.Dossiers.GenerateDossier(ctx, conv.LeadID, eval, conv.ID)
	if err != nil {
		s.log.Error("dossier generation failed", "conversation_id", conv.ID, "lead_id", conv.LeadID, "error", err)
		return false
	}
	body, err := dossier.FormatDossierForHandover(*d)
	if err != nil {
		s.log.Warn("dossier formatting failed", "conversation_id", conv.ID, "error", err)
		body = d.Context
	}

	if err := s.deps.Conversations.UpdateStatus(ctx, conv.ID, domain.ConversationHandoverPending); err != nil {
		s.log.Error("update status failed", "conversation_id", conv.ID, "error", err)
		return false
	}

	now := s.now()
	ack := domain.Message{Role: domain.RoleSystem, Content: acknowledgement, Timestamp: now}
	if err := s.deps.Conversations.AddMessage(ctx, conv.ID, ack); err != nil {
		s.log.Warn("acknowledgement failed", "conversation_id", conv.ID, "error", err)
	}

	comm := &domain.Communication{
		ID:             uuid.New().String(),
		LeadID:         conv.LeadID,
		ConversationID: conv.ID,
		CampaignID:     conv.CampaignID,
		Channel:        conv.Channel,
		Direction:      domain.DirectionInternal,
		Type:           domain.CommunicationHandover,
		Content:        body,
		Metadata: map[string]any{
			"evaluation": eval,
			"dossier":    *d,
			"reason":     eval.Reason,
		},
		CreatedAt: now,
	}
	if err := s.deps.Communications.Create(ctx, comm); err != nil {
		s.log.Error("record handover failed", "conversation_id", conv.ID, "error", err)
		return false
	}

	s.notify(ctx, conv, d, body, criteria.HandoverRecipients)
	s.log.Info("handover executed",
		"conversation_id", conv.ID,
		"lead_id", conv.LeadID,
		"urgency", string(d.HandoverTrigger.Urgency),
		"criteria", eval.TriggeredCriteria,
	)
	return true
}

// ReplyOutcome is the result of processing an inbound lead reply.
type ReplyOutcome struct {
	Evaluation domain.HandoverEvaluation `json:"evaluation"`
	HandedOver bool                      `json:"handed_over"`
}

// HandleInboundReply appends a lead reply to the conversation, evaluates it
// and executes the handover when one is warranted. The evaluation that
// decided the handover is the one recorded with it.
func (s *Service) HandleInboundReply(ctx context.Context, conversationID, content string) (ReplyOutcome, error) {
	if content == "" {
		return ReplyOutcome{}, ErrEmptyReply
	}
	conv, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return ReplyOutcome{}, err
	}
	if conv.Status.IsTerminal() {
		return ReplyOutcome{}, fmt.Errorf("%w: %s is %s", ErrConversationNotActive, conv.ID, conv.Status)
	}

	reply := domain.Message{Role: domain.RoleLead, Content: content, Timestamp: s.now()}
	if err := s.deps.Conversations.AddMessage(ctx, conv.ID, reply); err != nil {
		return ReplyOutcome{}, fmt.Errorf("add reply: %w", err)
	}

	eval, err := s.EvaluateHandover(ctx, conv.ID, nil)
	if err != nil {
		return ReplyOutcome{}, err
	}
	out := ReplyOutcome{Evaluation: eval}
	if eval.ShouldHandover && conv.Status == domain.ConversationActive {
		out.HandedOver = s.executeHandover(ctx, conv.ID, "", &eval)
	}
	return out, nil
}

func (s *Service) loadConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	conv, err := s.deps.Conversations.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
		}
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	return conv, nil
}

// campaignFor returns nil when the conversation has no campaign or it cannot
// be loaded.
func (s *Service) campaignFor(ctx context.Context, conv *domain.Conversation) *domain.Campaign {
	if conv.CampaignID == "" || s.deps.Campaigns == nil {
		return nil
	}
	c, err := s.deps.Campaigns.Get(ctx, conv.CampaignID)
	if err != nil {
		s.log.Warn("campaign lookup failed, using default criteria", "campaign_id", conv.CampaignID, "error", err)
		return nil
	}
	return c
}

func (s *Service) criteriaFor(ctx context.Context, conv *domain.Conversation) domain.HandoverCriteria {
	if c := s.campaignFor(ctx, conv); c != nil && !c.HandoverCriteria.IsZero() {
		return c.HandoverCriteria
	}
	return s.defaults
}

func (s *Service) notify(ctx context.Context, conv *domain.Conversation, d *domain.LeadDossier, body string, recipients []domain.HandoverRecipient) {
	if len(recipients) == 0 {
		recipients = s.defaults.HandoverRecipients
	}
	if len(recipients) == 0 {
		s.log.Warn("no handover recipients configured", "conversation_id", conv.ID)
		return
	}

	name := d.LeadSnapshot.Name
	if name == "" {
		name = conv.LeadID
	}
	urgency := d.HandoverTrigger.Urgency

	n := domain.Notification{
		Kind:           domain.NotificationHandover,
		Recipients:     recipients,
		Subject:        "Lead handover: " + name,
		Body:           body,
		Urgency:        urgency,
		LeadID:         conv.LeadID,
		ConversationID: conv.ID,
	}
	if err := s.deps.Notifier.Notify(ctx, n); err != nil {
		s.log.Warn("handover notification failed", "conversation_id", conv.ID, "error", err)
	}

	if urgency != domain.UrgencyHigh {
		return
	}
	alert := n
	alert.Kind = domain.NotificationHandoverAlert
	alert.Recipients = highPriority(recipients)
	alert.Subject = "URGENT lead handover: " + name
	if err := s.deps.Notifier.Notify(ctx, alert); err != nil {
		s.log.Warn("handover alert failed", "conversation_id", conv.ID, "error", err)
	}
}

// highPriority returns the high-priority recipients, or all of them when
// none is marked high.
func highPriority(recipients []domain.HandoverRecipient) []domain.HandoverRecipient {
	var out []domain.HandoverRecipient
	for _, r := range recipients {
		if r.Priority == domain.PriorityHigh {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return recipients
	}
	return out
}
