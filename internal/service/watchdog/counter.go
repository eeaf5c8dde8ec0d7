package watchdog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ignite/leadflow/internal/domain"
)

// VolumeCounter tracks sent emails for the rolling volume limits.
// Implementations live in repository/redis and repository/postgres;
// MemoryCounter is the default.
type VolumeCounter interface {
	// Record counts one sent email at the given time.
	Record(ctx context.Context, msg domain.OutboundMessage, at time.Time) error
	// CountSince returns how many emails were recorded at or after since.
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// MemoryCounter is a sliding-window VolumeCounter kept in process memory.
// Entries older than the window are dropped on every Record.
type MemoryCounter struct {
	mu     sync.Mutex
	window time.Duration
	sent   []time.Time
}

// NewMemoryCounter creates a counter that remembers sends for window. A
// non-positive window defaults to 24 hours.
func NewMemoryCounter(window time.Duration) *MemoryCounter {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &MemoryCounter{window: window}
}

// Record implements VolumeCounter.
func (c *MemoryCounter) Record(_ context.Context, _ domain.OutboundMessage, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Keep the slice ordered; sends normally arrive in order.
	i := sort.Search(len(c.sent), func(i int) bool { return c.sent[i].After(at) })
	c.sent = append(c.sent, time.Time{})
	copy(c.sent[i+1:], c.sent[i:])
	c.sent[i] = at

	cutoff := at.Add(-c.window)
	drop := sort.Search(len(c.sent), func(i int) bool { return !c.sent[i].Before(cutoff) })
	if drop > 0 {
		c.sent = append(c.sent[:0], c.sent[drop:]...)
	}
	return nil
}

// CountSince implements VolumeCounter.
func (c *MemoryCounter) CountSince(_ context.Context, since time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := sort.Search(len(c.sent), func(i int) bool { return !c.sent[i].Before(since) })
	return len(c.sent) - i, nil
}
