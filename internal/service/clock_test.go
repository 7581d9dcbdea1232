package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/muellerb/shop-register-go/internal/domain"
	"github.com/muellerb/shop-register-go/internal/infra/memstore"
	"github.com/muellerb/shop-register-go/internal/infra/observability"
	"github.com/muellerb/shop-register-go/internal/service"
)

func newTestClock(t *testing.T, store *memstore.Store, biller *mockBiller, releaser *mockReleaser, wall *fixedClock) *service.ClockService {
	t.Helper()
	metrics := observability.NewMetrics()
	reg := service.NewRegisterService(store, wall, metrics, zap.NewNop())
	return service.NewClockService(reg, biller, releaser, wall, metrics, zap.NewNop())
}

func seededStore(seed string, startDate time.Time) *memstore.Store {
	return memstore.NewSeeded(domain.NewRegisterSnapshot(domain.MustAmount(seed), startDate))
}

func TestOpenOrClose_AdvancesOneWorkingDay(t *testing.T) {
	wall := &fixedClock{t: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}
	store := seededStore("5000", date(2025, 8, 4)) // Monday
	clock := newTestClock(t, store, &mockBiller{}, &mockReleaser{}, wall)

	snap, err := clock.OpenOrClose(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !snap.IsOpen {
		t.Error("expected shop to be open")
	}
	if !snap.SimulatedDate.Equal(date(2025, 8, 5)) { // Tuesday
		t.Errorf("expected Tuesday Aug 5, got %v", snap.SimulatedDate)
	}
	if !snap.DayStartedAt.Equal(wall.t) {
		t.Errorf("expected day start stamped with wall time, got %v", snap.DayStartedAt)
	}
}

func TestOpenOrClose_FridaySkipsToMonday(t *testing.T) {
	wall := &fixedClock{t: time.Now()}
	store := seededStore("5000", date(2025, 8, 1)) // Friday
	clock := newTestClock(t, store, &mockBiller{}, &mockReleaser{}, wall)

	snap, err := clock.OpenOrClose(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !snap.SimulatedDate.Equal(date(2025, 8, 4)) { // Monday
		t.Errorf("expected Monday Aug 4, got %v", snap.SimulatedDate)
	}
}

func TestOpenOrClose_ClosingKeepsDate(t *testing.T) {
	wall := &fixedClock{t: time.Now()}
	store := seededStore("5000", date(2025, 8, 4))
	clock := newTestClock(t, store, &mockBiller{}, &mockReleaser{}, wall)

	opened, err := clock.OpenOrClose(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	closed, err := clock.OpenOrClose(context.Background())
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.IsOpen {
		t.Error("expected shop to be closed")
	}
	if !closed.SimulatedDate.Equal(opened.SimulatedDate) {
		t.Errorf("closing must not move the date: %v vs %v", closed.SimulatedDate, opened.SimulatedDate)
	}
}

func TestOpenOrClose_MonthBoundaryTriggersBilling(t *testing.T) {
	wall := &fixedClock{t: time.Now()}
	store := seededStore("5000", date(2025, 7, 31)) // Thursday
	biller := &mockBiller{}
	clock := newTestClock(t, store, biller, &mockReleaser{}, wall)

	snap, err := clock.OpenOrClose(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !snap.SimulatedDate.Equal(date(2025, 8, 1)) { // Friday
		t.Errorf("expected Aug 1, got %v", snap.SimulatedDate)
	}
	if biller.calls != 1 {
		t.Errorf("expected exactly one billing run, got %d", biller.calls)
	}
}

func TestOpenOrClose_NoBillingWithinMonth(t *testing.T) {
	wall := &fixedClock{t: time.Now()}
	store := seededStore("5000", date(2025, 8, 4))
	biller := &mockBiller{}
	clock := newTestClock(t, store, biller, &mockReleaser{}, wall)

	if _, err := clock.OpenOrClose(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if biller.calls != 0 {
		t.Errorf("expected no billing run within the month, got %d", biller.calls)
	}
}

func TestOpenOrClose_BillerFailureAbortsAdvance(t *testing.T) {
	wall := &fixedClock{t: time.Now()}
	store := seededStore("5000", date(2025, 7, 31))
	biller := &mockBiller{err: errors.New("billing down")}
	clock := newTestClock(t, store, biller, &mockReleaser{}, wall)

	if _, err := clock.OpenOrClose(context.Background()); err == nil {
		t.Fatal("expected error when billing fails")
	}

	snap := mustSnapshot(t, store)
	if snap.IsOpen {
		t.Error("failed advance must leave the shop closed")
	}
	if !snap.SimulatedDate.Equal(date(2025, 7, 31)) {
		t.Errorf("failed advance must leave the date untouched, got %v", snap.SimulatedDate)
	}
}

func TestOpenOrClose_FulfillsPendingDueOverWeekend(t *testing.T) {
	wall := &fixedClock{t: time.Now()}
	snap := domain.NewRegisterSnapshot(domain.MustAmount("5000"), date(2025, 8, 8)) // Friday
	snap.PendingOrders = []domain.PendingOrder{
		{ID: "po-due", Items: map[string]int{"flour": 10}, DueDate: date(2025, 8, 9)},  // Saturday
		{ID: "po-later", Items: map[string]int{"sugar": 3}, DueDate: date(2025, 8, 15)},
	}
	store := memstore.NewSeeded(snap)
	releaser := &mockReleaser{}
	clock := newTestClock(t, store, &mockBiller{}, releaser, wall)

	got, err := clock.OpenOrClose(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !got.SimulatedDate.Equal(date(2025, 8, 11)) { // Monday
		t.Errorf("expected Monday Aug 11, got %v", got.SimulatedDate)
	}

	if len(releaser.released) != 1 {
		t.Fatalf("expected one release, got %d", len(releaser.released))
	}
	if releaser.released[0]["flour"] != 10 {
		t.Errorf("expected 10 flour released, got %v", releaser.released[0])
	}

	if len(got.PendingOrders) != 1 || got.PendingOrders[0].ID != "po-later" {
		t.Errorf("expected only the later order to remain, got %v", got.PendingOrders)
	}
}

func TestOpenOrClose_ReleaserFailureAbortsAdvance(t *testing.T) {
	wall := &fixedClock{t: time.Now()}
	snap := domain.NewRegisterSnapshot(domain.MustAmount("5000"), date(2025, 8, 8))
	snap.PendingOrders = []domain.PendingOrder{
		{ID: "po-due", Items: map[string]int{"flour": 10}, DueDate: date(2025, 8, 9)},
	}
	store := memstore.NewSeeded(snap)
	clock := newTestClock(t, store, &mockBiller{}, &mockReleaser{err: errors.New("warehouse down")}, wall)

	if _, err := clock.OpenOrClose(context.Background()); err == nil {
		t.Fatal("expected error when inventory release fails")
	}

	after := mustSnapshot(t, store)
	if after.IsOpen || !after.SimulatedDate.Equal(date(2025, 8, 8)) {
		t.Error("failed advance must leave the register untouched")
	}
	if len(after.PendingOrders) != 1 {
		t.Errorf("pending orders must survive a failed advance, got %d", len(after.PendingOrders))
	}
}

func TestClock_Now(t *testing.T) {
	openedAt := time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC)
	wall := &fixedClock{t: openedAt}
	store := seededStore("5000", date(2025, 8, 1))
	clock := newTestClock(t, store, &mockBiller{}, &mockReleaser{}, wall)

	if _, err := clock.OpenOrClose(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	wall.t = openedAt.Add(3 * time.Hour)
	now, err := clock.Now(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := date(2025, 8, 4).Add(12 * time.Hour) // Monday 09:00 + 3h
	if !now.Equal(want) {
		t.Errorf("expected %v, got %v", want, now)
	}
}

func TestNextWorkingDay(t *testing.T) {
	tests := []struct {
		from time.Time
		want time.Time
	}{
		{date(2025, 8, 4), date(2025, 8, 5)},  // Mon -> Tue
		{date(2025, 8, 1), date(2025, 8, 4)},  // Fri -> Mon
		{date(2025, 8, 2), date(2025, 8, 4)},  // Sat -> Mon
		{date(2025, 8, 3), date(2025, 8, 4)},  // Sun -> Mon
		{date(2025, 8, 29), date(2025, 9, 1)}, // Fri -> Mon across month end
	}

	for _, tt := range tests {
		if got := service.NextWorkingDay(tt.from); !got.Equal(tt.want) {
			t.Errorf("NextWorkingDay(%v) = %v, want %v", tt.from, got, tt.want)
		}
	}
}
