package watchdog

import (
	"fmt"

	"github.com/ignite/leadflow/internal/domain"
)

// Sentinel errors for rule management.
var (
	ErrDuplicateRule = fmt.Errorf("block rule id already exists: %w", domain.ErrValidation)
	ErrInvalidRule   = fmt.Errorf("invalid block rule: %w", domain.ErrValidation)
)
