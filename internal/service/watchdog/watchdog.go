package watchdog

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/pkg/logger"
	"github.com/ignite/leadflow/internal/service/sending"
)

var tracer = otel.Tracer("github.com/ignite/leadflow/internal/service/watchdog")

// Risk contributed by each triggered condition.
const (
	riskBlockedDomain = 50
	riskBlockedEmail  = 50
	riskForbiddenWord = 30
	riskVolume        = 40
	riskOffHours      = 20
	maxRisk           = 100
)

// Watchdog validates outbound email against the rule set. All methods are
// safe for concurrent use.
type Watchdog struct {
	rules    *RuleSet
	holds    *holdStore
	counter  VolumeCounter
	notifier sending.Notifier
	admins   []domain.HandoverRecipient
	now      func() time.Time
	log      *logger.Logger
}

// Option customizes a Watchdog.
type Option func(*watchdogOptions)

type watchdogOptions struct {
	rules    []domain.BlockRule
	location *time.Location
	notifier sending.Notifier
	admins   []domain.HandoverRecipient
	now      func() time.Time
}

// WithRules replaces the default rule set.
func WithRules(rules ...domain.BlockRule) Option {
	return func(o *watchdogOptions) { o.rules = rules }
}

// WithLocation sets the timezone for hour windows that name none.
func WithLocation(loc *time.Location) Option {
	return func(o *watchdogOptions) { o.location = loc }
}

// WithAdminNotifier routes notifyAdmin actions to n for the given admins.
func WithAdminNotifier(n sending.Notifier, admins []domain.HandoverRecipient) Option {
	return func(o *watchdogOptions) {
		o.notifier = n
		o.admins = admins
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *watchdogOptions) { o.now = now }
}

// New creates a watchdog counting volume with counter. The default rules are
// loaded unless WithRules is given.
func New(counter VolumeCounter, opts ...Option) (*Watchdog, error) {
	o := watchdogOptions{rules: DefaultRules(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if counter == nil {
		counter = NewMemoryCounter(24 * time.Hour)
	}

	w := &Watchdog{
		rules:    NewRuleSet(o.location),
		holds:    newHoldStore(),
		counter:  counter,
		notifier: o.notifier,
		admins:   o.admins,
		now:      o.now,
		log:      logger.Component("watchdog"),
	}
	for _, r := range o.rules {
		if _, err := w.rules.Add(r); err != nil {
			return nil, fmt.Errorf("load rule %q: %w", r.ID, err)
		}
	}
	return w, nil
}

// ValidateOutboundEmail runs the enabled rules over msg. It never returns an
// error: internal failures produce a blocked result.
func (w *Watchdog) ValidateOutboundEmail(ctx context.Context, msg domain.OutboundMessage) (result domain.EmailValidationResult) {
	ctx, span := tracer.Start(ctx, "watchdog.ValidateOutboundEmail")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: panic: %v", domain.ErrSystem, r)
			w.log.Error("validation panicked", "to", msg.To, "error", err)
			result = failClosed(err)
		}
		span.SetAttributes(
			attribute.Bool("watchdog.allowed", result.Allowed),
			attribute.Int("watchdog.risk_score", result.RiskScore),
		)
	}()

	res, err := w.validate(ctx, msg)
	if err != nil {
		w.log.Error("validation failed", "to", msg.To, "error", err)
		return failClosed(err)
	}
	if !res.Allowed {
		w.log.Info("outbound email held",
			"to", msg.To, "campaign_id", msg.CampaignID,
			"rules", strings.Join(res.TriggeredRules, ","), "risk", res.RiskScore)
	}
	return res
}

func failClosed(err error) domain.EmailValidationResult {
	return domain.EmailValidationResult{
		Allowed:        false,
		Blocked:        true,
		Reasons:        []string{"Validation error: " + err.Error()},
		TriggeredRules: []string{},
		RiskScore:      maxRisk,
	}
}

// validate runs the enabled rules in priority order. An email that a later
// rule blocks is not held, even when an earlier rule required approval.
func (w *Watchdog) validate(ctx context.Context, msg domain.OutboundMessage) (domain.EmailValidationResult, error) {
	now := w.now()
	res := domain.EmailValidationResult{Allowed: true, Reasons: []string{}, TriggeredRules: []string{}}
	check := newRuleCheck(w.counter, msg, now)

	var risk int
	var quarantine, approval bool
	for _, e := range w.rules.enabled() {
		reasons, score, err := check.run(ctx, e)
		if err != nil {
			return res, fmt.Errorf("rule %s: %w", e.rule.ID, err)
		}
		if len(reasons) == 0 {
			continue
		}
		res.TriggeredRules = append(res.TriggeredRules, e.rule.ID)
		res.Reasons = append(res.Reasons, reasons...)
		risk += score

		actions := e.rule.Actions
		if actions.NotifyAdmin {
			w.notifyAdmin(ctx, e.rule, msg, reasons)
		}
		if actions.RequireApproval {
			res.RequiresApproval = true
			res.Allowed = false
			approval = true
		}
		if actions.Quarantine {
			res.Quarantined = true
			res.Allowed = false
			quarantine = true
		}
		if actions.Block {
			res.Blocked = true
			res.Allowed = false
		}
		if actions.Block || actions.Quarantine {
			break
		}
	}
	if risk > maxRisk {
		risk = maxRisk
	}
	res.RiskScore = risk

	// Blocked emails are refused outright and never held.
	if !res.Blocked && (quarantine || approval) {
		res.HeldID = uuid.New().String()
		w.holds.put(domain.HeldEmail{ID: res.HeldID, Message: msg, Result: res, HeldAt: now}, quarantine, approval)
	}
	return res, nil
}

func (w *Watchdog) notifyAdmin(ctx context.Context, rule domain.BlockRule, msg domain.OutboundMessage, reasons []string) {
	if w.notifier == nil {
		return
	}
	urgency := domain.UrgencyMedium
	if rule.Actions.Block {
		urgency = domain.UrgencyHigh
	}
	n := domain.Notification{
		Kind:       domain.NotificationWatchdogAlert,
		Recipients: w.admins,
		Subject:    fmt.Sprintf("[Watchdog] %s triggered for %s", rule.Name, msg.To),
		Body: fmt.Sprintf("Rule: %s (%s)\nRecipient: %s\nSubject: %s\nCampaign: %s\nReasons:\n- %s\n",
			rule.Name, rule.ID, msg.To, msg.Subject, msg.CampaignID, strings.Join(reasons, "\n- ")),
		Urgency: urgency,
		LeadID:  msg.LeadID,
	}
	if err := w.notifier.Notify(ctx, n); err != nil {
		w.log.Warn("admin notification failed", "rule", rule.ID, "error", err)
	}
}

// RecordSent counts a delivered email toward the volume limits.
func (w *Watchdog) RecordSent(ctx context.Context, msg domain.OutboundMessage) error {
	if err := w.counter.Record(ctx, msg, w.now()); err != nil {
		return fmt.Errorf("record sent email: %w", err)
	}
	return nil
}

// ApproveEmail releases a held email. The caller is responsible for sending
// it afterward.
func (w *Watchdog) ApproveEmail(id string) (domain.HeldEmail, bool) {
	held, ok := w.holds.take(id)
	if ok {
		w.log.Info("held email approved", "id", id, "to", held.Message.To)
	}
	return held, ok
}

// BlockEmail discards a held email.
func (w *Watchdog) BlockEmail(id string) (domain.HeldEmail, bool) {
	held, ok := w.holds.take(id)
	if ok {
		w.log.Info("held email blocked", "id", id, "to", held.Message.To)
	}
	return held, ok
}

// GetQuarantinedEmails lists quarantined emails, oldest first.
func (w *Watchdog) GetQuarantinedEmails() []domain.HeldEmail {
	return w.holds.listQuarantined()
}

// GetPendingApprovalEmails lists emails awaiting approval, oldest first.
func (w *Watchdog) GetPendingApprovalEmails() []domain.HeldEmail {
	return w.holds.listPendingApproval()
}

// PurgeExpired drops held emails older than maxAge and returns how many
// were removed.
func (w *Watchdog) PurgeExpired(maxAge time.Duration) int {
	n := w.holds.purge(w.now().Add(-maxAge))
	if n > 0 {
		w.log.Info("purged expired held emails", "count", n)
	}
	return n
}

// AddBlockRule adds a rule, generating an id when none is set.
func (w *Watchdog) AddBlockRule(rule domain.BlockRule) (domain.BlockRule, error) {
	return w.rules.Add(rule)
}

// RemoveBlockRule deletes a rule by id.
func (w *Watchdog) RemoveBlockRule(id string) bool {
	return w.rules.Remove(id)
}

// SetRuleEnabled enables or disables a rule by id.
func (w *Watchdog) SetRuleEnabled(id string, enabled bool) bool {
	return w.rules.SetEnabled(id, enabled)
}

// GetBlockRules returns all rules, highest priority first.
func (w *Watchdog) GetBlockRules() []domain.BlockRule {
	return w.rules.List()
}

// ruleCheck evaluates conditions for one email. Volume counts are fetched
// at most once per validation.
type ruleCheck struct {
	counter    VolumeCounter
	now        time.Time
	to         string
	rcptDomain string
	content    string
	counted    bool
	hourly     int
	daily      int
}

func newRuleCheck(counter VolumeCounter, msg domain.OutboundMessage, now time.Time) *ruleCheck {
	to := normalizeAddress(msg.To)
	var dom string
	if at := strings.LastIndex(to, "@"); at >= 0 {
		dom = to[at+1:]
	}
	return &ruleCheck{
		counter:    counter,
		now:        now,
		to:         to,
		rcptDomain: dom,
		content:    strings.ToLower(msg.Subject + "\n" + msg.Body),
	}
}

func (c *ruleCheck) run(ctx context.Context, e ruleEntry) ([]string, int, error) {
	var reasons []string
	var risk int
	cond := e.rule.Conditions

	for _, d := range cond.BlockedDomains {
		if c.rcptDomain != "" && strings.EqualFold(strings.TrimSpace(d), c.rcptDomain) {
			reasons = append(reasons, fmt.Sprintf("Recipient domain %s is blocked", c.rcptDomain))
			risk += riskBlockedDomain
			break
		}
	}

	for _, addr := range cond.BlockedEmails {
		if strings.EqualFold(strings.TrimSpace(addr), c.to) {
			reasons = append(reasons, fmt.Sprintf("Recipient %s is blocked", c.to))
			risk += riskBlockedEmail
			break
		}
	}

	var found []string
	for _, word := range cond.ForbiddenWords {
		if word != "" && strings.Contains(c.content, strings.ToLower(word)) {
			found = append(found, word)
		}
	}
	if len(found) > 0 {
		reasons = append(reasons, "Forbidden content: "+strings.Join(found, ", "))
		risk += riskForbiddenWord
	}

	if v := cond.VolumeLimits; v != nil && (v.MaxPerHour > 0 || v.MaxPerDay > 0) {
		if err := c.loadCounts(ctx); err != nil {
			return nil, 0, err
		}
		var over []string
		if v.MaxPerHour > 0 && c.hourly >= v.MaxPerHour {
			over = append(over, fmt.Sprintf("Hourly volume limit reached (%d/%d)", c.hourly, v.MaxPerHour))
		}
		if v.MaxPerDay > 0 && c.daily >= v.MaxPerDay {
			over = append(over, fmt.Sprintf("Daily volume limit reached (%d/%d)", c.daily, v.MaxPerDay))
		}
		if len(over) > 0 {
			reasons = append(reasons, over...)
			risk += riskVolume
		}
	}

	if w := cond.AllowedHours; w != nil {
		local := c.now.In(e.loc)
		if !w.Contains(local.Hour()) {
			reasons = append(reasons, fmt.Sprintf("Outside allowed sending hours (%d-%d %s)", w.Start, w.End, e.loc.String()))
			risk += riskOffHours
		}
	}

	return reasons, risk, nil
}

func (c *ruleCheck) loadCounts(ctx context.Context) error {
	if c.counted {
		return nil
	}
	hourly, err := c.counter.CountSince(ctx, c.now.Add(-time.Hour))
	if err != nil {
		return fmt.Errorf("count hourly volume: %w", err)
	}
	daily, err := c.counter.CountSince(ctx, c.now.Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("count daily volume: %w", err)
	}
	c.hourly, c.daily, c.counted = hourly, daily, true
	return nil
}

// normalizeAddress lower-cases an address and strips any display name.
func normalizeAddress(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.ContainsAny(raw, "<>") {
		if addr, err := mail.ParseAddress(raw); err == nil {
			raw = addr.Address
		}
	}
	return strings.ToLower(raw)
}
