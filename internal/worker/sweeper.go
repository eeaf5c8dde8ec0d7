package worker

import (
	"context"
	"log"
	"time"
)

const (
	// DefaultSweepInterval is how often the sweep cycle runs.
	DefaultSweepInterval = 1 * time.Hour

	// DefaultEmailLogRetention keeps enough outbound log rows to cover the
	// watchdog's daily volume window.
	DefaultEmailLogRetention = 48 * time.Hour
)

// ExecutionPurger drops finished campaign executions.
type ExecutionPurger interface {
	PurgeFinished(olderThan time.Duration) int
}

// HoldPurger drops expired quarantined and pending emails.
type HoldPurger interface {
	PurgeExpired(maxAge time.Duration) int
}

// LogPruner trims the persisted outbound email log.
type LogPruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// SweeperConfig sets the retention of each swept store. Zero values fall
// back to the defaults.
type SweeperConfig struct {
	Interval           time.Duration
	ExecutionRetention time.Duration
	HoldRetention      time.Duration
	EmailLogRetention  time.Duration
}

// Sweeper periodically purges in-memory executions, held emails and, when
// configured, the outbound email log.
type Sweeper struct {
	executions ExecutionPurger
	holds      HoldPurger
	emailLog   LogPruner
	cfg        SweeperConfig
	now        func() time.Time
}

// NewSweeper creates a sweeper. Any purger may be nil.
func NewSweeper(executions ExecutionPurger, holds HoldPurger, emailLog LogPruner, cfg SweeperConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSweepInterval
	}
	if cfg.ExecutionRetention <= 0 {
		cfg.ExecutionRetention = time.Hour
	}
	if cfg.HoldRetention <= 0 {
		cfg.HoldRetention = 24 * time.Hour
	}
	if cfg.EmailLogRetention <= 0 {
		cfg.EmailLogRetention = DefaultEmailLogRetention
	}
	return &Sweeper{
		executions: executions,
		holds:      holds,
		emailLog:   emailLog,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Start runs a sweep immediately and then on every tick. It blocks until
// ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	log.Printf("[Sweeper] Starting (interval=%s)", s.cfg.Interval)

	s.Sweep(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Sweeper] Stopping")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// SweepResult counts what one cycle removed.
type SweepResult struct {
	Executions int
	Holds      int
	LogRows    int64
}

// Sweep runs one cycle.
func (s *Sweeper) Sweep(ctx context.Context) SweepResult {
	start := time.Now()
	var res SweepResult

	if s.executions != nil {
		res.Executions = s.executions.PurgeFinished(s.cfg.ExecutionRetention)
	}
	if s.holds != nil {
		res.Holds = s.holds.PurgeExpired(s.cfg.HoldRetention)
	}
	if s.emailLog != nil {
		n, err := s.emailLog.Prune(ctx, s.now().Add(-s.cfg.EmailLogRetention))
		if err != nil {
			log.Printf("[Sweeper] email log prune failed: %v", err)
		}
		res.LogRows = n
	}

	if res.Executions > 0 || res.Holds > 0 || res.LogRows > 0 {
		log.Printf("[Sweeper] Removed %d executions, %d held emails, %d log rows in %s",
			res.Executions, res.Holds, res.LogRows, time.Since(start).Round(time.Millisecond))
	}
	return res
}
