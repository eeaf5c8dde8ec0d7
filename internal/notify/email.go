package notify

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/google/uuid"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/service/sending"
)

// EmailNotifier mails a notification to each recipient.
type EmailNotifier struct {
	sender    sending.Sender
	fromEmail string
	fromName  string
}

// NewEmailNotifier creates an email notifier sending as fromName <fromEmail>.
func NewEmailNotifier(sender sending.Sender, fromEmail, fromName string) *EmailNotifier {
	return &EmailNotifier{sender: sender, fromEmail: fromEmail, fromName: fromName}
}

// Notify sends one email per recipient with an address. Every recipient is
// attempted; failures are joined.
func (e *EmailNotifier) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, r := range n.Recipients {
		if r.Email == "" {
			continue
		}
		msg := &domain.OutboundMessage{
			ID:       uuid.New().String(),
			To:       r.Email,
			From:     e.fromEmail,
			FromName: e.fromName,
			Subject:  n.Subject,
			Body:     "<pre>" + html.EscapeString(n.Body) + "</pre>",
			Text:     n.Body,
			LeadID:   n.LeadID,
			Channel:  domain.ChannelEmail,
		}
		res, err := e.sender.Send(ctx, msg)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("email %s: %w", r.Name, err))
		case res == nil || !res.Success:
			reason := "no result"
			if res != nil {
				reason = res.Error
			}
			errs = append(errs, fmt.Errorf("email %s: rejected: %s", r.Name, reason))
		}
	}
	return errors.Join(errs...)
}
