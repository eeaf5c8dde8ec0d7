package handover

import (
	"fmt"

	"github.com/ignite/leadflow/internal/domain"
)

// Sentinel errors for handover operations.
var (
	ErrConversationNotFound  = fmt.Errorf("conversation not found: %w", domain.ErrNotFound)
	ErrConversationNotActive = fmt.Errorf("conversation is not active: %w", domain.ErrValidation)
	ErrEmptyReply            = fmt.Errorf("reply content is required: %w", domain.ErrValidation)
)
