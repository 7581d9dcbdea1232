package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/muellerb/shop-register-go/internal/domain"
	"github.com/muellerb/shop-register-go/internal/infra/memstore"
	"github.com/muellerb/shop-register-go/internal/infra/observability"
	"github.com/muellerb/shop-register-go/internal/service"
)

// --- Mocks ---

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.t
}

type mockBiller struct {
	calls int
	err   error
}

func (m *mockBiller) AddMonthlyCharges(_ context.Context) error {
	m.calls++
	return m.err
}

type mockReleaser struct {
	released []map[string]int
	err      error
}

func (m *mockReleaser) ReleaseGoods(_ context.Context, items map[string]int) error {
	if m.err != nil {
		return m.err
	}
	m.released = append(m.released, items)
	return nil
}

// --- Helpers ---

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amount(s string) decimal.Decimal {
	return domain.MustAmount(s)
}

// newTestRegister builds a register service over an in-memory store
// seeded with the given balance and simulated start date.
func newTestRegister(t *testing.T, seed string, startDate time.Time, wall *fixedClock) (*service.RegisterService, *memstore.Store) {
	t.Helper()
	store := memstore.NewSeeded(domain.NewRegisterSnapshot(amount(seed), startDate))
	reg := service.NewRegisterService(store, wall, observability.NewMetrics(), zap.NewNop())
	return reg, store
}

func mustSnapshot(t *testing.T, store *memstore.Store) *domain.RegisterSnapshot {
	t.Helper()
	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	return snap
}
