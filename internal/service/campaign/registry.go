package campaign

import (
	"sort"
	"sync"
	"time"

	"github.com/ignite/leadflow/internal/domain"
)

// execution is a registry entry. done is closed when the background task
// exits; err is set before that.
type execution struct {
	state domain.CampaignExecution
	done  chan struct{}
	err   error
}

// live reports whether the execution still owns its campaign id. A paused
// execution is live until its task has exited.
func (e *execution) live() bool {
	if e.state.Status.IsFinished() {
		return false
	}
	if e.state.Status == domain.ExecutionPaused {
		select {
		case <-e.done:
			return false
		default:
		}
	}
	return true
}

// registry tracks executions by campaign id. All access goes through mu.
type registry struct {
	mu   sync.Mutex
	byID map[string]*execution
}

func newRegistry() *registry {
	return &registry{byID: make(map[string]*execution)}
}

// reserve inserts a running execution unless a live one exists. Finished
// executions are replaced.
func (r *registry) reserve(campaignID string, now time.Time) (*execution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byID[campaignID]; ok && cur.live() {
		return nil, false
	}
	e := &execution{
		state: domain.CampaignExecution{
			CampaignID: campaignID,
			Status:     domain.ExecutionRunning,
			StartedAt:  now,
		},
		done: make(chan struct{}),
	}
	r.byID[campaignID] = e
	return e, true
}

// release drops a reservation that never started a task.
func (r *registry) release(campaignID string, e *execution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byID[campaignID] == e {
		delete(r.byID, campaignID)
	}
	close(e.done)
}

func (r *registry) update(e *execution, fn func(*domain.CampaignExecution)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&e.state)
}

// finish records the final state and wakes waiters.
func (r *registry) finish(e *execution, err error, fn func(*domain.CampaignExecution)) {
	r.mu.Lock()
	fn(&e.state)
	e.err = err
	r.mu.Unlock()
	close(e.done)
}

func (r *registry) status(e *execution) domain.ExecutionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return e.state.Status
}

func (r *registry) get(campaignID string) (*execution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[campaignID]
	return e, ok
}

func (r *registry) snapshot(campaignID string) (domain.CampaignExecution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[campaignID]
	if !ok {
		return domain.CampaignExecution{}, false
	}
	return copyState(e.state), true
}

// pause moves a running execution to paused.
func (r *registry) pause(campaignID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[campaignID]
	if !ok || e.state.Status != domain.ExecutionRunning {
		return false
	}
	e.state.Status = domain.ExecutionPaused
	return true
}

func (r *registry) running() []domain.CampaignExecution {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CampaignExecution, 0, len(r.byID))
	for _, e := range r.byID {
		if e.state.Status == domain.ExecutionRunning {
			out = append(out, copyState(e.state))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CampaignID < out[j].CampaignID })
	return out
}

// purge removes executions that ended before cutoff: completed and failed
// ones, and paused ones whose task has exited.
func (r *registry) purge(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.byID {
		s := e.state
		if !e.live() && s.CompletedAt != nil && s.CompletedAt.Before(cutoff) {
			delete(r.byID, id)
			n++
		}
	}
	return n
}

func copyState(s domain.CampaignExecution) domain.CampaignExecution {
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		s.CompletedAt = &t
	}
	return s
}
