package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/leadflow/internal/domain"
)

// maxSlackBody keeps messages under Slack's section text limit.
const maxSlackBody = 2800

// JSONPoster posts a JSON payload. *httpretry.RetryClient satisfies it.
type JSONPoster interface {
	PostJSON(ctx context.Context, url string, payload any) error
}

// SlackNotifier posts notifications to a Slack incoming webhook.
type SlackNotifier struct {
	client     JSONPoster
	webhookURL string
}

// NewSlackNotifier creates a Slack notifier.
func NewSlackNotifier(client JSONPoster, webhookURL string) *SlackNotifier {
	return &SlackNotifier{client: client, webhookURL: webhookURL}
}

type slackMessage struct {
	Text string `json:"text"`
}

func (s *SlackNotifier) Notify(ctx context.Context, n domain.Notification) error {
	if err := s.client.PostJSON(ctx, s.webhookURL, slackMessage{Text: slackText(n)}); err != nil {
		return fmt.Errorf("slack notify: %w", err)
	}
	return nil
}

func slackText(n domain.Notification) string {
	var b strings.Builder
	if n.Urgency == domain.UrgencyHigh {
		b.WriteString(":rotating_light: ")
	}
	fmt.Fprintf(&b, "*%s*", n.Subject)
	if n.Urgency != "" {
		fmt.Fprintf(&b, " (urgency: %s)", n.Urgency)
	}
	if len(n.Recipients) > 0 {
		names := make([]string, 0, len(n.Recipients))
		for _, r := range n.Recipients {
			names = append(names, r.Name)
		}
		fmt.Fprintf(&b, "\nFor: %s", strings.Join(names, ", "))
	}
	body := n.Body
	if len(body) > maxSlackBody {
		body = body[:maxSlackBody] + "\n..."
	}
	if body != "" {
		b.WriteString("\n```\n" + body + "\n```")
	}
	return b.String()
}
