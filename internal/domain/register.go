package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Register aggregate
// ============================================================

// DayStartHour is the fixed hour at which a simulated business day
// begins. The business clock runs from here in real time while the shop
// is open.
const DayStartHour = 9

// PendingOrder is a wholesale purchase awaiting delivery on a future
// simulated date. It is removed, and its items released to inventory,
// when the clock advances to or past DueDate.
type PendingOrder struct {
	ID      string         `json:"id"`
	Items   map[string]int `json:"items"`
	DueDate time.Time      `json:"due_date"` // simulated date at midnight
}

// DueOnOrBefore reports whether the order is due by the given simulated
// date. The ≤ comparison matters: a due date falling on a skipped
// weekend is still fulfilled on the next working day.
func (p PendingOrder) DueOnOrBefore(day time.Time) bool {
	return !p.DueDate.After(day)
}

// RegisterSnapshot is the whole persisted state of the shop register.
// It is mutated only through the register service, which reads the
// latest snapshot, applies a change and saves it back atomically.
type RegisterSnapshot struct {
	Balance       decimal.Decimal `json:"balance"`
	IsOpen        bool            `json:"is_open"`
	SimulatedDate time.Time       `json:"simulated_date"` // midnight
	DayStartedAt  time.Time       `json:"day_started_at"` // wall clock
	Entries       []LedgerEntry   `json:"entries"`
	PendingOrders []PendingOrder  `json:"pending_orders"`

	// Version is the optimistic-concurrency token checked by the store
	// on save.
	Version int64 `json:"version"`
}

// NewRegisterSnapshot seeds a fresh register. The seed balance is the
// only contribution to the balance that does not come from a ledger
// entry. startDate is truncated to midnight.
func NewRegisterSnapshot(seed decimal.Decimal, startDate time.Time) *RegisterSnapshot {
	return &RegisterSnapshot{
		Balance:       seed,
		IsOpen:        false,
		SimulatedDate: Midnight(startDate),
		Entries:       []LedgerEntry{},
		PendingOrders: []PendingOrder{},
	}
}

// Apply appends an entry and adds its amount to the balance. The ledger
// is append-only: entries are never removed or changed.
func (s *RegisterSnapshot) Apply(entry LedgerEntry) {
	s.Entries = append(s.Entries, entry)
	s.Balance = s.Balance.Add(entry.Amount)
}

// FirstEntryAt returns the timestamp of the earliest ledger entry.
// ok is false while the ledger is empty.
func (s *RegisterSnapshot) FirstEntryAt() (first time.Time, ok bool) {
	for _, e := range s.Entries {
		if e.Timestamp.IsZero() {
			continue
		}
		if !ok || e.Timestamp.Before(first) {
			first = e.Timestamp
			ok = true
		}
	}
	return first, ok
}

// Clone deep-copies the snapshot so callers can mutate freely without
// leaking changes into shared state.
func (s *RegisterSnapshot) Clone() *RegisterSnapshot {
	c := *s
	c.Entries = make([]LedgerEntry, len(s.Entries))
	for i, e := range s.Entries {
		items := make(map[string]int, len(e.Items))
		for k, v := range e.Items {
			items[k] = v
		}
		e.Items = items
		c.Entries[i] = e
	}
	c.PendingOrders = make([]PendingOrder, len(s.PendingOrders))
	for i, p := range s.PendingOrders {
		items := make(map[string]int, len(p.Items))
		for k, v := range p.Items {
			items[k] = v
		}
		p.Items = items
		c.PendingOrders[i] = p
	}
	return &c
}

// BusinessNow computes the in-simulation time of day: the simulated
// date at the fixed day-start hour plus the wall-clock time elapsed
// since the day began. DayStartedAt is only reset on opening, so
// business time keeps running off the last opening while the shop is
// closed.
func BusinessNow(s *RegisterSnapshot, wallNow time.Time) time.Time {
	dayStart := s.SimulatedDate.Add(DayStartHour * time.Hour)
	if s.DayStartedAt.IsZero() {
		return dayStart
	}
	return dayStart.Add(wallNow.Sub(s.DayStartedAt))
}

// Midnight truncates a time to the start of its calendar day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
