package watchdog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/leadflow/internal/domain"
)

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock(hour int) *fixedClock {
	return &fixedClock{t: time.Date(2026, 3, 10, hour, 15, 0, 0, time.UTC)}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, note domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return n.err
}

type failingCounter struct{ panics bool }

func (f failingCounter) Record(context.Context, domain.OutboundMessage, time.Time) error {
	return errors.New("counter down")
}

func (f failingCounter) CountSince(context.Context, time.Time) (int, error) {
	if f.panics {
		panic("nil map")
	}
	return 0, errors.New("counter down")
}

func email(to, subject, body string) domain.OutboundMessage {
	return domain.OutboundMessage{To: to, From: "agent@leadflow.test", Subject: subject, Body: body, Channel: domain.ChannelEmail, CampaignID: "camp-1"}
}

func newWatchdog(t *testing.T, clock *fixedClock, counter VolumeCounter, opts ...Option) *Watchdog {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	w, err := New(counter, opts...)
	require.NoError(t, err)
	return w
}

func TestValidate_BlockedDomain(t *testing.T) {
	w := newWatchdog(t, newClock(10), nil, WithRules(domain.BlockRule{
		ID: "spam", Name: "Spam domains", Enabled: true, Priority: 10,
		Conditions: domain.RuleConditions{BlockedDomains: []string{"spam.com"}},
		Actions:    domain.RuleActions{Block: true},
	}))

	res := w.ValidateOutboundEmail(context.Background(), email("x@spam.com", "Hi", "Hello there"))

	assert.False(t, res.Allowed)
	assert.True(t, res.Blocked)
	assert.GreaterOrEqual(t, res.RiskScore, 50)
	assert.Equal(t, []string{"spam"}, res.TriggeredRules)
	assert.Contains(t, res.Reasons, "Recipient domain spam.com is blocked")
	assert.Empty(t, res.HeldID)
	assert.Empty(t, w.GetQuarantinedEmails())
}

func TestValidate_DisplayNameAndCase(t *testing.T) {
	w := newWatchdog(t, newClock(10), nil, WithRules(domain.BlockRule{
		ID: "spam", Name: "Spam", Enabled: true, Priority: 10,
		Conditions: domain.RuleConditions{BlockedEmails: []string{"Bad@Example.com"}},
		Actions:    domain.RuleActions{Block: true},
	}))

	res := w.ValidateOutboundEmail(context.Background(), email("Bad Actor <bad@example.COM>", "Hi", ""))
	assert.True(t, res.Blocked)
	assert.Equal(t, 50, res.RiskScore)
}

func TestValidate_RequireApprovalContinues(t *testing.T) {
	w := newWatchdog(t, newClock(10), nil, WithRules(
		domain.BlockRule{
			ID: "content", Name: "Content", Enabled: true, Priority: 50,
			Conditions: domain.RuleConditions{ForbiddenWords: []string{"guaranteed"}},
			Actions:    domain.RuleActions{RequireApproval: true},
		},
		domain.BlockRule{
			ID: "claims", Name: "Claims", Enabled: true, Priority: 10,
			Conditions: domain.RuleConditions{ForbiddenWords: []string{"risk-free"}},
			Actions:    domain.RuleActions{RequireApproval: true},
		},
	))

	res := w.ValidateOutboundEmail(context.Background(), email("lead@example.com", "Guaranteed results", "It's risk-free"))

	assert.False(t, res.Allowed)
	assert.True(t, res.RequiresApproval)
	assert.False(t, res.Blocked)
	assert.False(t, res.Quarantined)
	assert.Equal(t, []string{"content", "claims"}, res.TriggeredRules)
	assert.Equal(t, 60, res.RiskScore)
	require.NotEmpty(t, res.HeldID)

	pending := w.GetPendingApprovalEmails()
	require.Len(t, pending, 1)
	assert.Equal(t, res.HeldID, pending[0].ID)
	assert.Equal(t, "lead@example.com", pending[0].Message.To)
	assert.Empty(t, w.GetQuarantinedEmails())
}

func TestValidate_QuarantineStopsEvaluation(t *testing.T) {
	w := newWatchdog(t, newClock(10), nil, WithRules(
		domain.BlockRule{
			ID: "content", Name: "Content", Enabled: true, Priority: 100,
			Conditions: domain.RuleConditions{ForbiddenWords: []string{"winner"}},
			Actions:    domain.RuleActions{Quarantine: true},
		},
		domain.BlockRule{
			ID: "domains", Name: "Domains", Enabled: true, Priority: 50,
			Conditions: domain.RuleConditions{BlockedDomains: []string{"example.com"}},
			Actions:    domain.RuleActions{Block: true},
		},
	))

	res := w.ValidateOutboundEmail(context.Background(), email("lead@example.com", "You are a winner", ""))

	assert.False(t, res.Allowed)
	assert.True(t, res.Quarantined)
	assert.False(t, res.Blocked)
	assert.Equal(t, []string{"content"}, res.TriggeredRules)
	assert.Len(t, w.GetQuarantinedEmails(), 1)
}

func TestValidate_BlockedEmailIsNotHeld(t *testing.T) {
	w := newWatchdog(t, newClock(10), nil, WithRules(
		domain.BlockRule{
			ID: "content", Name: "Content", Enabled: true, Priority: 100,
			Conditions: domain.RuleConditions{ForbiddenWords: []string{"winner"}},
			Actions:    domain.RuleActions{RequireApproval: true},
		},
		domain.BlockRule{
			ID: "domains", Name: "Domains", Enabled: true, Priority: 50,
			Conditions: domain.RuleConditions{BlockedDomains: []string{"example.com"}},
			Actions:    domain.RuleActions{Block: true},
		},
	))

	res := w.ValidateOutboundEmail(context.Background(), email("lead@example.com", "winner", ""))
	assert.True(t, res.Blocked)
	assert.True(t, res.RequiresApproval)
	assert.Empty(t, res.HeldID)
	assert.Empty(t, w.GetPendingApprovalEmails())
}

func TestValidate_RiskScoreCapped(t *testing.T) {
	rules := make([]domain.BlockRule, 0, 4)
	for i := 0; i < 4; i++ {
		rules = append(rules, domain.BlockRule{
			ID: fmt.Sprintf("r%d", i), Name: "Domains", Enabled: true, Priority: i,
			Conditions: domain.RuleConditions{BlockedDomains: []string{"example.com"}},
			Actions:    domain.RuleActions{RequireApproval: true},
		})
	}
	w := newWatchdog(t, newClock(10), nil, WithRules(rules...))

	res := w.ValidateOutboundEmail(context.Background(), email("lead@example.com", "", ""))
	assert.Equal(t, 100, res.RiskScore)
	assert.Len(t, res.TriggeredRules, 4)
}

func TestValidate_DisabledRuleSkipped(t *testing.T) {
	w := newWatchdog(t, newClock(10), nil, WithRules(domain.BlockRule{
		ID: "spam", Name: "Spam", Enabled: false, Priority: 10,
		Conditions: domain.RuleConditions{BlockedDomains: []string{"spam.com"}},
		Actions:    domain.RuleActions{Block: true},
	}))

	res := w.ValidateOutboundEmail(context.Background(), email("x@spam.com", "", ""))
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.RiskScore)

	require.True(t, w.SetRuleEnabled("spam", true))
	res = w.ValidateOutboundEmail(context.Background(), email("x@spam.com", "", ""))
	assert.True(t, res.Blocked)
}

func TestValidate_VolumeLimit(t *testing.T) {
	clock := newClock(10)
	counter := NewMemoryCounter(24 * time.Hour)
	w := newWatchdog(t, clock, counter, WithRules(domain.BlockRule{
		ID: "volume", Name: "Volume", Enabled: true, Priority: 10,
		Conditions: domain.RuleConditions{VolumeLimits: &domain.VolumeLimits{MaxPerHour: 3, MaxPerDay: 10}},
		Actions:    domain.RuleActions{Quarantine: true, RequireApproval: true},
	}))
	ctx := context.Background()
	msg := email("lead@example.com", "Hi", "")

	for i := 0; i < 3; i++ {
		require.True(t, w.ValidateOutboundEmail(ctx, msg).Allowed)
		require.NoError(t, w.RecordSent(ctx, msg))
	}

	res := w.ValidateOutboundEmail(ctx, msg)
	assert.False(t, res.Allowed)
	assert.True(t, res.Quarantined)
	assert.True(t, res.RequiresApproval)
	assert.Contains(t, res.Reasons, "Hourly volume limit reached (3/3)")
	assert.Len(t, w.GetQuarantinedEmails(), 1)
	assert.Len(t, w.GetPendingApprovalEmails(), 1)

	clock.Advance(2 * time.Hour)
	assert.True(t, w.ValidateOutboundEmail(ctx, msg).Allowed)
}

func TestValidate_DefaultRulesBusinessHours(t *testing.T) {
	clock := newClock(3)
	w := newWatchdog(t, clock, nil)

	res := w.ValidateOutboundEmail(context.Background(), email("lead@example.com", "Quick question", "Hello"))
	assert.False(t, res.Allowed)
	assert.True(t, res.Quarantined)
	assert.Equal(t, []string{"business-hours"}, res.TriggeredRules)
	assert.Equal(t, 20, res.RiskScore)

	clock.Advance(7 * time.Hour)
	res = w.ValidateOutboundEmail(context.Background(), email("lead@example.com", "Quick question", "Hello"))
	assert.True(t, res.Allowed)
	assert.Empty(t, res.Reasons)
}

func TestValidate_HourWindowTimezone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 14:15 UTC is 10:15 in New York in March after DST.
	w := newWatchdog(t, newClock(14), nil, WithLocation(ny), WithRules(domain.BlockRule{
		ID: "hours", Name: "Hours", Enabled: true, Priority: 1,
		Conditions: domain.RuleConditions{AllowedHours: &domain.HourWindow{Start: 8, End: 10}},
		Actions:    domain.RuleActions{Quarantine: true},
	}))

	res := w.ValidateOutboundEmail(context.Background(), email("lead@example.com", "", ""))
	assert.True(t, res.Quarantined)
	assert.Contains(t, res.Reasons, "Outside allowed sending hours (8-10 America/New_York)")
}

func TestValidate_NotifyAdmin(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	admins := []domain.HandoverRecipient{{Name: "Ops", Email: "ops@example.com", Priority: domain.PriorityHigh}}
	w := newWatchdog(t, newClock(10), nil, WithAdminNotifier(notifier, admins))

	res := w.ValidateOutboundEmail(context.Background(), email("user@mailinator.com", "Hi", ""))
	assert.True(t, res.Blocked)

	require.Len(t, notifier.sent, 1)
	alert := notifier.sent[0]
	assert.Equal(t, domain.NotificationWatchdogAlert, alert.Kind)
	assert.Equal(t, admins, alert.Recipients)
	assert.Equal(t, domain.UrgencyHigh, alert.Urgency)
	assert.Contains(t, alert.Body, "Recipient domain mailinator.com is blocked")
}

func TestValidate_FailsClosedOnCounterError(t *testing.T) {
	w := newWatchdog(t, newClock(10), failingCounter{})

	res := w.ValidateOutboundEmail(context.Background(), email("lead@example.com", "Hi", ""))
	assert.False(t, res.Allowed)
	assert.True(t, res.Blocked)
	assert.Equal(t, 100, res.RiskScore)
	require.Len(t, res.Reasons, 1)
	assert.Contains(t, res.Reasons[0], "Validation error")
}

func TestValidate_FailsClosedOnPanic(t *testing.T) {
	w := newWatchdog(t, newClock(10), failingCounter{panics: true})

	res := w.ValidateOutboundEmail(context.Background(), email("lead@example.com", "Hi", ""))
	assert.False(t, res.Allowed)
	assert.True(t, res.Blocked)
	assert.Equal(t, 100, res.RiskScore)
}

func TestApproveAndBlockEmail(t *testing.T) {
	w := newWatchdog(t, newClock(10), nil, WithRules(domain.BlockRule{
		ID: "both", Name: "Both", Enabled: true, Priority: 1,
		Conditions: domain.RuleConditions{ForbiddenWords: []string{"act now"}},
		Actions:    domain.RuleActions{Quarantine: true, RequireApproval: true},
	}))
	ctx := context.Background()

	first := w.ValidateOutboundEmail(ctx, email("a@example.com", "Act now", ""))
	second := w.ValidateOutboundEmail(ctx, email("b@example.com", "Act now", ""))
	require.NotEqual(t, first.HeldID, second.HeldID)
	assert.Len(t, w.GetQuarantinedEmails(), 2)
	assert.Len(t, w.GetPendingApprovalEmails(), 2)

	held, ok := w.ApproveEmail(first.HeldID)
	require.True(t, ok)
	assert.Equal(t, "a@example.com", held.Message.To)
	_, ok = w.ApproveEmail(first.HeldID)
	assert.False(t, ok)

	_, ok = w.BlockEmail(second.HeldID)
	assert.True(t, ok)
	assert.Empty(t, w.GetQuarantinedEmails())
	assert.Empty(t, w.GetPendingApprovalEmails())

	_, ok = w.BlockEmail("missing")
	assert.False(t, ok)
}

func TestPurgeExpired(t *testing.T) {
	clock := newClock(10)
	w := newWatchdog(t, clock, nil, WithRules(domain.BlockRule{
		ID: "content", Name: "Content", Enabled: true, Priority: 1,
		Conditions: domain.RuleConditions{ForbiddenWords: []string{"free"}},
		Actions:    domain.RuleActions{RequireApproval: true},
	}))
	ctx := context.Background()

	w.ValidateOutboundEmail(ctx, email("old@example.com", "free", ""))
	clock.Advance(20 * time.Hour)
	w.ValidateOutboundEmail(ctx, email("new@example.com", "free", ""))
	clock.Advance(5 * time.Hour)

	assert.Equal(t, 1, w.PurgeExpired(24*time.Hour))
	pending := w.GetPendingApprovalEmails()
	require.Len(t, pending, 1)
	assert.Equal(t, "new@example.com", pending[0].Message.To)
}

func TestValidate_ConcurrentSafe(t *testing.T) {
	w := newWatchdog(t, newClock(10), nil, WithRules(domain.BlockRule{
		ID: "content", Name: "Content", Enabled: true, Priority: 1,
		Conditions: domain.RuleConditions{ForbiddenWords: []string{"winner"}},
		Actions:    domain.RuleActions{RequireApproval: true},
	}))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := email(fmt.Sprintf("lead%d@example.com", i), "winner", "")
			res := w.ValidateOutboundEmail(ctx, msg)
			assert.True(t, res.RequiresApproval)
			_ = w.RecordSent(ctx, msg)
		}(i)
	}
	wg.Wait()
	assert.Len(t, w.GetPendingApprovalEmails(), 50)
}
