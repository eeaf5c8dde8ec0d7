package domain

import "time"

// ExecutionStatus enumerates the states of a running campaign.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionPaused    ExecutionStatus = "paused"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// IsFinished returns true for completed and failed executions.
func (s ExecutionStatus) IsFinished() bool {
	return s == ExecutionCompleted || s == ExecutionFailed
}

// CampaignExecution is the in-memory progress record of a launched
// campaign. CurrentStep is the index of the batch being processed.
type CampaignExecution struct {
	CampaignID   string          `json:"campaign_id"`
	Status       ExecutionStatus `json:"status"`
	TotalLeads   int             `json:"total_leads"`
	SentCount    int             `json:"sent_count"`
	FailedCount  int             `json:"failed_count"`
	CurrentStep  int             `json:"current_step"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}
