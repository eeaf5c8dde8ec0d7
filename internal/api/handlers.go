package api

import (
	"context"
	"time"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/pkg/logger"
	"github.com/ignite/leadflow/internal/service/campaign"
	"github.com/ignite/leadflow/internal/service/handover"
	"github.com/ignite/leadflow/internal/service/sending"
)

// CampaignExecutor is the subset of *campaign.Executor the API drives.
type CampaignExecutor interface {
	LaunchCampaign(ctx context.Context, campaignID string) (campaign.LaunchResult, error)
	StopCampaign(campaignID string) bool
	GetCampaignStatus(campaignID string) (domain.CampaignExecution, bool)
	GetRunningCampaigns() []domain.CampaignExecution
}

// HandoverService is the subset of *handover.Service the API drives.
type HandoverService interface {
	EvaluateHandover(ctx context.Context, conversationID string, newMessage *domain.Message) (domain.HandoverEvaluation, error)
	ExecuteHandover(ctx context.Context, conversationID, reason string) bool
	HandleInboundReply(ctx context.Context, conversationID, content string) (handover.ReplyOutcome, error)
}

// Watchdog is the subset of *watchdog.Watchdog the API drives.
type Watchdog interface {
	ValidateOutboundEmail(ctx context.Context, msg domain.OutboundMessage) domain.EmailValidationResult
	RecordSent(ctx context.Context, msg domain.OutboundMessage) error
	ApproveEmail(id string) (domain.HeldEmail, bool)
	BlockEmail(id string) (domain.HeldEmail, bool)
	GetQuarantinedEmails() []domain.HeldEmail
	GetPendingApprovalEmails() []domain.HeldEmail
	AddBlockRule(rule domain.BlockRule) (domain.BlockRule, error)
	RemoveBlockRule(id string) bool
	SetRuleEnabled(id string, enabled bool) bool
	GetBlockRules() []domain.BlockRule
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	campaigns CampaignExecutor
	handover  HandoverService
	watchdog  Watchdog
	email     sending.Sender
	health    *HealthChecker
	now       func() time.Time
	log       *logger.Logger
}

// Deps carries the services behind the handlers. Email is the sender used
// to dispatch emails released from the approval queue; it may be nil.
type Deps struct {
	Campaigns CampaignExecutor
	Handover  HandoverService
	Watchdog  Watchdog
	Email     sending.Sender
	Health    *HealthChecker
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	h := &Handlers{
		campaigns: deps.Campaigns,
		handover:  deps.Handover,
		watchdog:  deps.Watchdog,
		email:     deps.Email,
		health:    deps.Health,
		now:       time.Now,
		log:       logger.Component("api"),
	}
	if h.health == nil {
		h.health = NewHealthChecker(nil, nil)
	}
	return h
}
