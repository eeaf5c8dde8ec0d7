package delivery

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/pkg/logger"
)

// LogSender writes messages to the log instead of a vendor. It always
// succeeds.
type LogSender struct {
	log  *logger.Logger
	sent atomic.Int64
}

// NewLogSender creates a log sender.
func NewLogSender() *LogSender {
	return &LogSender{log: logger.Component("log_sender")}
}

func (s *LogSender) Send(_ context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error) {
	id := "log-" + uuid.New().String()
	s.log.Info("message sent",
		"channel", string(msg.Channel),
		"to", msg.To,
		"subject", msg.Subject,
		"campaign_id", msg.CampaignID,
		"message_id", id,
	)
	s.sent.Add(1)
	return &domain.SendResult{Success: true, MessageID: id, Vendor: "log", SentAt: time.Now()}, nil
}

// Sent returns how many messages were sent.
func (s *LogSender) Sent() int64 { return s.sent.Load() }
