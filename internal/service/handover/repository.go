package handover

import (
	"context"

	"github.com/ignite/leadflow/internal/domain"
)

// ConversationRepository persists conversations. Get returns
// ErrConversationNotFound (or any error wrapping domain.ErrNotFound) when
// the conversation does not exist.
type ConversationRepository interface {
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	UpdateStatus(ctx context.Context, id string, status domain.ConversationStatus) error
	AddMessage(ctx context.Context, id string, msg domain.Message) error
	UpdateQualification(ctx context.Context, id string, score float64, goals map[string]bool) error
}

// CampaignRepository loads the campaign a conversation belongs to.
type CampaignRepository interface {
	Get(ctx context.Context, id string) (*domain.Campaign, error)
}

// CommunicationRepository records handover communications.
type CommunicationRepository interface {
	Create(ctx context.Context, c *domain.Communication) error
}

// DossierGenerator builds the handover dossier for a lead.
type DossierGenerator interface {
	GenerateDossier(ctx context.Context, leadID string, eval domain.HandoverEvaluation, conversationID string) (*domain.LeadDossier, error)
}
