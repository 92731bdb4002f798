// Package quota limits how many previews and generations a user may run
// per time window.
package quota

import (
	"sync"
	"time"
)

// Kind is a limited operation.
type Kind string

const (
	Preview    Kind = "preview"
	Generation Kind = "generation"
)

// Limiter decides whether a user may run one more operation of kind.
// remaining is the count left after this call. Release hands back a slot
// taken by Allow when the operation never ran.
type Limiter interface {
	Allow(userID string, kind Kind) (remaining int, ok bool)
	Release(userID string, kind Kind)
}

// Unlimited allows everything.
type Unlimited struct{}

func (Unlimited) Allow(string, Kind) (int, bool) { return -1, true }

func (Unlimited) Release(string, Kind) {}

type window struct {
	start time.Time
	used  int
}

// Memory is a fixed-window counter per user and kind.
type Memory struct {
	mu     sync.Mutex
	limits map[Kind]int
	period time.Duration
	now    func() time.Time
	usage  map[string]*window
}

// NewMemory returns a limiter allowing limits[kind] operations per
// period. Kinds without a positive limit are unlimited.
func NewMemory(limits map[Kind]int, period time.Duration) *Memory {
	return &Memory{
		limits: limits,
		period: period,
		now:    time.Now,
		usage:  make(map[string]*window),
	}
}

func (m *Memory) Allow(userID string, kind Kind) (int, bool) {
	limit := m.limits[kind]
	if limit <= 0 {
		return -1, true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	key := string(kind) + "|" + userID
	w, ok := m.usage[key]
	if !ok || now.Sub(w.start) >= m.period {
		w = &window{start: now}
		m.usage[key] = w
	}
	if w.used >= limit {
		return 0, false
	}
	w.used++
	return limit - w.used, true
}

// Release returns one slot to the user's current window. A window that
// already rolled over is left alone.
func (m *Memory) Release(userID string, kind Kind) {
	if m.limits[kind] <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.usage[string(kind)+"|"+userID]
	if !ok || m.now().Sub(w.start) >= m.period || w.used == 0 {
		return
	}
	w.used--
}

// Prune drops windows that have expired.
func (m *Memory) Prune() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for key, w := range m.usage {
		if now.Sub(w.start) >= m.period {
			delete(m.usage, key)
		}
	}
}
