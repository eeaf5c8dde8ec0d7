package campaign

import (
	"context"

	"github.com/ignite/leadflow/internal/domain"
)

// Repository loads campaigns. Get returns ErrCampaignNotFound (or any error
// wrapping domain.ErrNotFound) if the campaign doesn't exist.
type Repository interface {
	Get(ctx context.Context, id string) (*domain.Campaign, error)
}

// EnrollmentRepository reads and advances enrollments.
// Implementations must be safe for concurrent use.
type EnrollmentRepository interface {
	// EnrollmentsForCampaign returns pending and active enrollments joined
	// with their leads, ordered by enrollment id.
	EnrollmentsForCampaign(ctx context.Context, campaignID string) ([]domain.EnrolledLead, error)

	// UpdateEnrollment persists status, current step and last processed time.
	UpdateEnrollment(ctx context.Context, e domain.Enrollment) error
}

// EmailValidator gatekeeps outbound email. It is satisfied by
// *watchdog.Watchdog.
type EmailValidator interface {
	ValidateOutboundEmail(ctx context.Context, msg domain.OutboundMessage) domain.EmailValidationResult
	RecordSent(ctx context.Context, msg domain.OutboundMessage) error
}
