package domain

import "errors"

// Error kinds shared across services. Service packages wrap these in their
// own sentinels so callers can match either with errors.Is.
var (
	// ErrConfiguration marks a campaign that is missing or unusable.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing lead, conversation, or campaign.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks a refused operation, such as a watchdog block.
	ErrValidation = errors.New("validation failure")
	// ErrPartialBatch marks a batch where some sends failed. It is only
	// recorded in execution counters and never returned to callers.
	ErrPartialBatch = errors.New("partial batch failure")
	// ErrSystem marks an unexpected internal failure.
	ErrSystem = errors.New("system failure")
)
