// Package quota is the single source of truth for "may this provider be used
// right now". Counters reset lazily on a rolling per-provider window; there is
// no background timer.
package quota

import (
	"fmt"
	"sync"
	"time"
)

// Clock returns the current time. Injected so tests can move the window
// without sleeping.
type Clock func() time.Time

type entry struct {
	capacity int
	used     int
	enabled  bool
	resetAt  time.Time
}

// Status is a read-only snapshot of one provider's quota state.
type Status struct {
	Name      string    `json:"name"`
	Available bool      `json:"available"`
	Remaining int       `json:"remaining"`
	Capacity  int       `json:"capacity"`
	ResetAt   time.Time `json:"reset_at"`
}

// Ledger tracks per-provider usage against capacity. All methods are safe for
// concurrent use; Consume is an atomic check-and-increment.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	window  time.Duration
	clock   Clock
}

func NewLedger(window time.Duration, clock Clock) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	return &Ledger{
		entries: make(map[string]*entry),
		window:  window,
		clock:   clock,
	}
}

// Register adds a provider to the ledger with a fresh window. Registering the
// same name twice is a programming error.
func (l *Ledger) Register(name string, capacity int, enabled bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[name]; ok {
		return fmt.Errorf("quota: provider %q already registered", name)
	}
	l.entries[name] = &entry{
		capacity: capacity,
		enabled:  enabled,
		resetAt:  l.clock().Add(l.window),
	}
	l.order = append(l.order, name)
	return nil
}

// resetIfDue applies the lazy window reset. Caller holds l.mu.
func (l *Ledger) resetIfDue(e *entry, now time.Time) {
	if now.Before(e.resetAt) {
		return
	}
	e.used = 0
	e.resetAt = now.Add(l.window)
}

// Eligible reports whether the provider may be used now. Unknown names are
// never eligible.
func (l *Ledger) Eligible(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[name]
	if !ok {
		return false
	}
	l.resetIfDue(e, l.clock())
	return e.enabled && e.used < e.capacity
}

// Consume re-checks eligibility and, if eligible, claims one unit of quota.
// The check and the increment happen under one lock so concurrent callers can
// never over-commit a provider past its capacity.
func (l *Ledger) Consume(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[name]
	if !ok {
		return false
	}
	l.resetIfDue(e, l.clock())
	if !e.enabled || e.used >= e.capacity {
		return false
	}
	e.used++
	return true
}

// Refund returns one unit claimed by Consume that was never spent on a call
// (e.g. the circuit breaker rejected the attempt before the adapter ran).
func (l *Ledger) Refund(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[name]; ok && e.used > 0 {
		e.used--
	}
}

// Disable removes the provider from rotation for the remainder of the
// process. Window resets do not re-enable it.
func (l *Ledger) Disable(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[name]; ok {
		e.enabled = false
	}
}

// StatusOf returns the quota state for one provider.
func (l *Ledger) StatusOf(name string) (Status, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[name]
	if !ok {
		return Status{}, false
	}
	l.resetIfDue(e, l.clock())
	return l.statusLocked(name, e), true
}

// Snapshot returns the state of every registered provider in registration
// order, for dashboards and the quota endpoint.
func (l *Ledger) Snapshot() []Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	out := make([]Status, 0, len(l.order))
	for _, name := range l.order {
		e := l.entries[name]
		l.resetIfDue(e, now)
		out = append(out, l.statusLocked(name, e))
	}
	return out
}

func (l *Ledger) statusLocked(name string, e *entry) Status {
	remaining := e.capacity - e.used
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Name:      name,
		Available: e.enabled && e.used < e.capacity,
		Remaining: remaining,
		Capacity:  e.capacity,
		ResetAt:   e.resetAt,
	}
}
