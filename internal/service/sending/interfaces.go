// Package sending defines the collaborator interfaces that carry messages out
// of the platform: vendor senders for leads and notifiers for humans.
//
// Each vendor (SES, a log sink in development) implements Sender. The
// campaign executor resolves a Sender per channel through SenderRegistry.
package sending

import (
	"context"

	"github.com/ignite/leadflow/internal/domain"
)

// Sender delivers one message through a vendor. Implementations must be
// safe for concurrent use. A returned error and a SendResult with
// Success=false are both treated as a failed send.
type Sender interface {
	Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error)
}

// SenderRegistry resolves the Sender for a channel.
type SenderRegistry interface {
	SenderFor(channel domain.Channel) (Sender, bool)
}

// ChannelSenders is a static SenderRegistry.
type ChannelSenders map[domain.Channel]Sender

// SenderFor implements SenderRegistry.
func (c ChannelSenders) SenderFor(channel domain.Channel) (Sender, bool) {
	s, ok := c[channel]
	return s, ok && s != nil
}

// Notifier delivers a notification to humans. Implementations must be safe
// for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n domain.Notification) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n domain.Notification) error { return f(ctx, n) }
