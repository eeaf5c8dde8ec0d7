package watchdog

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/leadflow/internal/domain"
)

// RuleSet is the lock-guarded collection of block rules. Reads return copies
// sorted by priority, highest first.
type RuleSet struct {
	mu       sync.RWMutex
	rules    map[string]ruleEntry
	fallback *time.Location
}

// ruleEntry pairs a rule with its resolved allowed-hours location.
type ruleEntry struct {
	rule domain.BlockRule
	loc  *time.Location
}

// NewRuleSet creates an empty rule set. Hour windows without a timezone are
// evaluated in fallback (UTC when nil).
func NewRuleSet(fallback *time.Location) *RuleSet {
	if fallback == nil {
		fallback = time.UTC
	}
	return &RuleSet{rules: make(map[string]ruleEntry), fallback: fallback}
}

// Add stores a new rule and returns it with its id filled in.
func (s *RuleSet) Add(rule domain.BlockRule) (domain.BlockRule, error) {
	if strings.TrimSpace(rule.Name) == "" {
		return domain.BlockRule{}, fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	loc := s.fallback
	if w := rule.Conditions.AllowedHours; w != nil {
		if w.Start < 0 || w.Start > 23 || w.End < 0 || w.End > 24 {
			return domain.BlockRule{}, fmt.Errorf("%w: allowed hours out of range", ErrInvalidRule)
		}
		if w.Timezone != "" {
			l, err := time.LoadLocation(w.Timezone)
			if err != nil {
				return domain.BlockRule{}, fmt.Errorf("%w: timezone %q: %v", ErrInvalidRule, w.Timezone, err)
			}
			loc = l
		}
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	rule = cloneRule(rule)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rules[rule.ID]; exists {
		return domain.BlockRule{}, fmt.Errorf("%w: %s", ErrDuplicateRule, rule.ID)
	}
	s.rules[rule.ID] = ruleEntry{rule: rule, loc: loc}
	return cloneRule(rule), nil
}

// Remove deletes a rule. It reports whether the rule existed.
func (s *RuleSet) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return false
	}
	delete(s.rules, id)
	return true
}

// SetEnabled toggles a rule. It reports whether the rule existed.
func (s *RuleSet) SetEnabled(id string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rules[id]
	if !ok {
		return false
	}
	e.rule.Enabled = enabled
	s.rules[id] = e
	return true
}

// List returns every rule, highest priority first.
func (s *RuleSet) List() []domain.BlockRule {
	entries := s.sorted(false)
	out := make([]domain.BlockRule, len(entries))
	for i, e := range entries {
		out[i] = cloneRule(e.rule)
	}
	return out
}

func (s *RuleSet) enabled() []ruleEntry {
	return s.sorted(true)
}

func (s *RuleSet) sorted(enabledOnly bool) []ruleEntry {
	s.mu.RLock()
	out := make([]ruleEntry, 0, len(s.rules))
	for _, e := range s.rules {
		if enabledOnly && !e.rule.Enabled {
			continue
		}
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].rule.Priority != out[j].rule.Priority {
			return out[i].rule.Priority > out[j].rule.Priority
		}
		return out[i].rule.ID < out[j].rule.ID
	})
	return out
}

func cloneRule(r domain.BlockRule) domain.BlockRule {
	c := r
	c.Conditions.BlockedDomains = append([]string(nil), r.Conditions.BlockedDomains...)
	c.Conditions.BlockedEmails = append([]string(nil), r.Conditions.BlockedEmails...)
	c.Conditions.ForbiddenWords = append([]string(nil), r.Conditions.ForbiddenWords...)
	if r.Conditions.VolumeLimits != nil {
		v := *r.Conditions.VolumeLimits
		c.Conditions.VolumeLimits = &v
	}
	if r.Conditions.AllowedHours != nil {
		h := *r.Conditions.AllowedHours
		c.Conditions.AllowedHours = &h
	}
	return c
}

// DefaultRules returns the rule set loaded at startup.
func DefaultRules() []domain.BlockRule {
	return []domain.BlockRule{
		{
			ID:       "blocked-domains",
			Name:     "Blocked domains",
			Enabled:  true,
			Priority: 100,
			Conditions: domain.RuleConditions{
				BlockedDomains: []string{"tempmail.com", "10minutemail.com", "guerrillamail.com", "mailinator.com", "throwaway.email"},
			},
			Actions: domain.RuleActions{Block: true, NotifyAdmin: true},
		},
		{
			ID:       "volume-limits",
			Name:     "Volume limits",
			Enabled:  true,
			Priority: 90,
			Conditions: domain.RuleConditions{
				VolumeLimits: &domain.VolumeLimits{MaxPerHour: 1000, MaxPerDay: 10000},
			},
			Actions: domain.RuleActions{Quarantine: true, RequireApproval: true, NotifyAdmin: true},
		},
		{
			ID:       "business-hours",
			Name:     "Business hours",
			Enabled:  true,
			Priority: 80,
			Conditions: domain.RuleConditions{
				AllowedHours: &domain.HourWindow{Start: 8, End: 18},
			},
			Actions: domain.RuleActions{Quarantine: true},
		},
		{
			ID:       "forbidden-content",
			Name:     "Forbidden content",
			Enabled:  true,
			Priority: 70,
			Conditions: domain.RuleConditions{
				ForbiddenWords: []string{"guaranteed", "act now", "100% free", "risk-free", "winner", "click here", "limited time offer"},
			},
			Actions: domain.RuleActions{RequireApproval: true, NotifyAdmin: true},
		},
	}
}
