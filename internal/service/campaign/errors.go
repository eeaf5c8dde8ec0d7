package campaign

import (
	"fmt"

	"github.com/ignite/leadflow/internal/domain"
)

// Sentinel errors for the campaign executor.
var (
	ErrCampaignNotFound  = fmt.Errorf("campaign %w (%w)", domain.ErrNotFound, domain.ErrConfiguration)
	ErrCampaignInactive  = fmt.Errorf("campaign is not active: %w: %w", domain.ErrConfiguration, domain.ErrValidation)
	ErrAlreadyRunning    = fmt.Errorf("campaign is already running: %w", domain.ErrValidation)
	ErrNoLeads           = fmt.Errorf("no leads found for campaign: %w", domain.ErrConfiguration)
	ErrExecutionNotFound = fmt.Errorf("campaign execution %w", domain.ErrNotFound)
	ErrEmailRejected     = fmt.Errorf("email rejected by watchdog: %w", domain.ErrValidation)
	ErrNoStep            = fmt.Errorf("no remaining campaign step: %w", domain.ErrConfiguration)
	ErrNoSender          = fmt.Errorf("no sender for channel: %w", domain.ErrConfiguration)
)
