package campaign

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/pkg/logger"
	"github.com/ignite/leadflow/internal/service/sending"
)

var tracer = otel.Tracer("github.com/ignite/leadflow/internal/service/campaign")

const (
	defaultBatchSize  = 10
	defaultBatchDelay = time.Second
)

// LaunchResult reports the outcome of LaunchCampaign.
type LaunchResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Executor launches campaigns and tracks their executions. All public
// methods are safe for concurrent use.
type Executor struct {
	campaigns   Repository
	enrollments EnrollmentRepository
	senders     sending.SenderRegistry
	validator   EmailValidator
	registry    *registry
	batchSize   int
	batchDelay  time.Duration
	now         func() time.Time
	log         *logger.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithBatchSize sets how many leads are sent concurrently per batch.
func WithBatchSize(n int) Option {
	return func(x *Executor) {
		if n > 0 {
			x.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between batches.
func WithBatchDelay(d time.Duration) Option {
	return func(x *Executor) {
		if d >= 0 {
			x.batchDelay = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(x *Executor) { x.now = now }
}

// NewExecutor creates an executor. validator may be nil, in which case
// email is sent without watchdog checks.
func NewExecutor(campaigns Repository, enrollments EnrollmentRepository, senders sending.SenderRegistry, validator EmailValidator, opts ...Option) *Executor {
	x := &Executor{
		campaigns:   campaigns,
		enrollments: enrollments,
		senders:     senders,
		validator:   validator,
		registry:    newRegistry(),
		batchSize:   defaultBatchSize,
		batchDelay:  defaultBatchDelay,
		now:         time.Now,
		log:         logger.Component("campaign_executor"),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// LaunchCampaign reserves the campaign, loads its enrollments and starts
// processing in the background. It returns as soon as processing has been
// scheduled. Concurrent launches of the same campaign have exactly one
// winner.
func (x *Executor) LaunchCampaign(ctx context.Context, campaignID string) (LaunchResult, error) {
	ctx, span := tracer.Start(ctx, "campaign.LaunchCampaign")
	span.SetAttributes(attribute.String("campaign.id", campaignID))
	defer span.End()

	c, err := x.campaigns.Get(ctx, campaignID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return LaunchResult{Message: "Failed to load campaign"}, fmt.Errorf("get campaign %s: %w", campaignID, err)
	}
	if c == nil {
		return LaunchResult{Message: "Campaign not found"}, fmt.Errorf("%w: %s", ErrCampaignNotFound, campaignID)
	}
	if !c.Active {
		return LaunchResult{Message: "Campaign is not active"}, fmt.Errorf("%w: %s", ErrCampaignInactive, campaignID)
	}

	e, ok := x.registry.reserve(campaignID, x.now())
	if !ok {
		return LaunchResult{Message: "Campaign is already running"}, fmt.Errorf("%w: %s", ErrAlreadyRunning, campaignID)
	}

	leads, err := x.enrollments.EnrollmentsForCampaign(ctx, campaignID)
	if err != nil {
		x.registry.release(campaignID, e)
		return LaunchResult{Message: "Failed to load enrollments"}, fmt.Errorf("list enrollments for %s: %w", campaignID, err)
	}
	if len(leads) == 0 {
		x.registry.release(campaignID, e)
		return LaunchResult{Message: "No leads found for campaign"}, fmt.Errorf("%w: %s", ErrNoLeads, campaignID)
	}

	x.registry.update(e, func(s *domain.CampaignExecution) { s.TotalLeads = len(leads) })
	go x.processCampaign(context.WithoutCancel(ctx), c, e, leads)

	log.Printf("[CampaignExecutor] Launched campaign %s for %d leads", campaignID, len(leads))
	return LaunchResult{Success: true, Message: fmt.Sprintf("Campaign launched for %d leads", len(leads))}, nil
}

// StopCampaign pauses a running campaign. The in-flight batch finishes and
// no further batch starts. CompletedAt is stamped when the task exits.
func (x *Executor) StopCampaign(campaignID string) bool {
	ok := x.registry.pause(campaignID)
	if ok {
		log.Printf("[CampaignExecutor] Stop requested for campaign %s", campaignID)
	}
	return ok
}

// GetCampaignStatus returns a copy of the campaign's execution.
func (x *Executor) GetCampaignStatus(campaignID string) (domain.CampaignExecution, bool) {
	return x.registry.snapshot(campaignID)
}

// GetRunningCampaigns returns copies of every running execution, ordered by
// campaign id.
func (x *Executor) GetRunningCampaigns() []domain.CampaignExecution {
	return x.registry.running()
}

// Wait blocks until the campaign's background task exits and returns the
// error it failed with, if any.
func (x *Executor) Wait(ctx context.Context, campaignID string) error {
	e, ok := x.registry.get(campaignID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrExecutionNotFound, campaignID)
	}
	select {
	case <-e.done:
		return e.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PurgeFinished drops executions that ended more than olderThan ago:
// completed and failed ones, and stopped ones whose task has exited. It
// returns the number removed.
func (x *Executor) PurgeFinished(olderThan time.Duration) int {
	n := x.registry.purge(x.now().Add(-olderThan))
	if n > 0 {
		x.log.Info("purged finished executions", "count", n)
	}
	return n
}

// processCampaign is the background task of one execution. It always
// records a final state, including after a panic.
func (x *Executor) processCampaign(ctx context.Context, c *domain.Campaign, e *execution, leads []domain.EnrolledLead) {
	ctx, span := tracer.Start(ctx, "campaign.processCampaign")
	span.SetAttributes(attribute.String("campaign.id", c.ID), attribute.Int("campaign.leads", len(leads)))
	defer span.End()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", domain.ErrSystem, r)
		}
		now := x.now()
		x.registry.finish(e, err, func(s *domain.CampaignExecution) {
			switch {
			case err != nil:
				s.Status = domain.ExecutionFailed
				s.ErrorMessage = err.Error()
				s.CompletedAt = &now
			case s.Status == domain.ExecutionPaused:
				s.CompletedAt = &now
			default:
				s.Status = domain.ExecutionCompleted
				s.CompletedAt = &now
			}
		})
		if err != nil {
			x.log.Error("campaign failed", "campaign_id", c.ID, "error", err)
			span.RecordError(err)
			return
		}
		final, _ := x.registry.snapshot(c.ID)
		log.Printf("[CampaignExecutor] Campaign %s finished: status=%s sent=%d failed=%d",
			c.ID, final.Status, final.SentCount, final.FailedCount)
	}()

	err = x.run(ctx, c, e, leads)
}

func (x *Executor) run(ctx context.Context, c *domain.Campaign, e *execution, leads []domain.EnrolledLead) error {
	for start, batch := 0, 0; start < len(leads); start, batch = start+x.batchSize, batch+1 {
		if x.registry.status(e) == domain.ExecutionPaused {
			log.Printf("[CampaignExecutor] Campaign %s paused before batch %d", c.ID, batch)
			return nil
		}
		end := min(start+x.batchSize, len(leads))
		x.registry.update(e, func(s *domain.CampaignExecution) { s.CurrentStep = batch })

		if err := x.runBatch(ctx, c, e, leads[start:end]); err != nil {
			return err
		}

		if end < len(leads) && x.batchDelay > 0 {
			t := time.NewTimer(x.batchDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	return nil
}

// runBatch sends to every lead of the batch concurrently and joins them.
// Send failures are counted; only a panic is returned.
func (x *Executor) runBatch(ctx context.Context, c *domain.Campaign, e *execution, batch []domain.EnrolledLead) error {
	g := new(errgroup.Group)
	g.SetLimit(len(batch))
	for _, el := range batch {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					x.registry.update(e, func(s *domain.CampaignExecution) { s.FailedCount++ })
					err = fmt.Errorf("%w: panic sending to lead %s: %v", domain.ErrSystem, el.Lead.ID, r)
				}
			}()
			if sendErr := x.sendToLead(ctx, c, el); sendErr != nil {
				x.log.Warn("send failed",
					"campaign_id", c.ID,
					"lead_id", el.Lead.ID,
					"error", sendErr,
				)
				x.registry.update(e, func(s *domain.CampaignExecution) { s.FailedCount++ })
				return nil
			}
			x.registry.update(e, func(s *domain.CampaignExecution) { s.SentCount++ })
			return nil
		})
	}
	return g.Wait()
}

// sendToLead renders the lead's current step, checks it with the watchdog
// and hands it to the channel's sender.
func (x *Executor) sendToLead(ctx context.Context, c *domain.Campaign, el domain.EnrolledLead) error {
	idx := el.Enrollment.CurrentStep
	if idx < 0 || idx >= len(c.Steps) {
		return fmt.Errorf("%w: step %d of %d", ErrNoStep, idx, len(c.Steps))
	}
	step := c.Steps[idx]

	vars := renderVars(c, el.Lead)
	msg := domain.OutboundMessage{
		ID:         uuid.New().String(),
		To:         el.Lead.Email,
		From:       c.FromEmail,
		FromName:   c.FromName,
		Subject:    render(step.Subject, vars),
		Body:       render(step.Template, vars),
		CampaignID: c.ID,
		LeadID:     el.Lead.ID,
		Channel:    step.Channel,
	}
	if step.Channel == domain.ChannelSMS {
		msg.To = el.Lead.Phone
	}

	checked := step.Channel == domain.ChannelEmail && x.validator != nil
	if checked {
		res := x.validator.ValidateOutboundEmail(ctx, msg)
		if !res.Allowed {
			return fmt.Errorf("%w: %s", ErrEmailRejected, strings.Join(res.Reasons, "; "))
		}
	}

	sender, ok := x.senders.SenderFor(step.Channel)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSender, step.Channel)
	}
	res, err := sender.Send(ctx, &msg)
	if err != nil {
		return fmt.Errorf("send %s: %w", step.Channel, err)
	}
	if res == nil || !res.Success {
		reason := "no result"
		if res != nil {
			reason = res.Error
		}
		return fmt.Errorf("send %s: vendor rejected: %s", step.Channel, reason)
	}

	now := x.now()
	enr := el.Enrollment
	enr.Status = domain.EnrollmentActive
	enr.CurrentStep = idx + 1
	enr.LastProcessedAt = &now
	if err := x.enrollments.UpdateEnrollment(ctx, enr); err != nil {
		x.log.Warn("update enrollment failed", "enrollment_id", enr.ID, "error", err)
	}
	if checked {
		if err := x.validator.RecordSent(ctx, msg); err != nil {
			x.log.Warn("record sent failed", "campaign_id", c.ID, "error", err)
		}
	}
	return nil
}
