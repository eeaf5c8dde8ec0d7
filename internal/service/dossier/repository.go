package dossier

import (
	"context"

	"github.com/ignite/leadflow/internal/domain"
)

// LeadRepository loads leads.
type LeadRepository interface {
	// Get returns a lead or an error wrapping domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Lead, error)
}

// ConversationRepository lists a lead's conversations.
type ConversationRepository interface {
	ListByLead(ctx context.Context, leadID string) ([]domain.Conversation, error)
}

// CommunicationRepository lists a lead's communication records.
type CommunicationRepository interface {
	ListByLead(ctx context.Context, leadID string) ([]domain.Communication, error)
}

// ChannelActivityRepository aggregates a lead's activity per channel.
type ChannelActivityRepository interface {
	ChannelActivity(ctx context.Context, leadID string) ([]domain.ChannelActivity, error)
}

// Sources groups the repositories the generator reads from. Channels is
// optional; without it channel activity is derived from conversations and
// communications.
type Sources struct {
	Leads          LeadRepository
	Conversations  ConversationRepository
	Communications CommunicationRepository
	Channels       ChannelActivityRepository
}
