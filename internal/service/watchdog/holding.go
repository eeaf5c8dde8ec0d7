package watchdog

import (
	"sort"
	"sync"
	"time"

	"github.com/ignite/leadflow/internal/domain"
)

// holdStore keeps quarantined and pending-approval emails. An email held by
// both kinds of rule shares one id across the two maps.
type holdStore struct {
	mu         sync.Mutex
	quarantine map[string]domain.HeldEmail
	approval   map[string]domain.HeldEmail
}

func newHoldStore() *holdStore {
	return &holdStore{
		quarantine: make(map[string]domain.HeldEmail),
		approval:   make(map[string]domain.HeldEmail),
	}
}

func (h *holdStore) put(held domain.HeldEmail, quarantine, approval bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if quarantine {
		h.quarantine[held.ID] = held
	}
	if approval {
		h.approval[held.ID] = held
	}
}

// take removes id from both maps.
func (h *holdStore) take(id string) (domain.HeldEmail, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	q, inQ := h.quarantine[id]
	a, inA := h.approval[id]
	delete(h.quarantine, id)
	delete(h.approval, id)
	switch {
	case inQ:
		return q, true
	case inA:
		return a, true
	default:
		return domain.HeldEmail{}, false
	}
}

func (h *holdStore) listQuarantined() []domain.HeldEmail {
	h.mu.Lock()
	defer h.mu.Unlock()
	return sortedHolds(h.quarantine)
}

func (h *holdStore) listPendingApproval() []domain.HeldEmail {
	h.mu.Lock()
	defer h.mu.Unlock()
	return sortedHolds(h.approval)
}

// purge drops entries held before cutoff and returns how many ids were
// removed.
func (h *holdStore) purge(cutoff time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	removed := make(map[string]struct{})
	for id, held := range h.quarantine {
		if held.HeldAt.Before(cutoff) {
			delete(h.quarantine, id)
			removed[id] = struct{}{}
		}
	}
	for id, held := range h.approval {
		if held.HeldAt.Before(cutoff) {
			delete(h.approval, id)
			removed[id] = struct{}{}
		}
	}
	return len(removed)
}

func sortedHolds(m map[string]domain.HeldEmail) []domain.HeldEmail {
	out := make([]domain.HeldEmail, 0, len(m))
	for _, held := range m {
		out = append(out, held)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].HeldAt.Equal(out[j].HeldAt) {
			return out[i].HeldAt.Before(out[j].HeldAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
