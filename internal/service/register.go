// Package service provides the business logic layer (use cases):
// the register aggregate, the business clock, ledger queries and
// report construction.
package service

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/muellerb/shop-register-go/internal/domain"
	"github.com/muellerb/shop-register-go/internal/infra/observability"
	"github.com/muellerb/shop-register-go/internal/port"
)

var regTracer = otel.Tracer("service/register")

// RegisterService owns all mutation of the register aggregate. Every
// mutating call is serialized: it reads the latest persisted snapshot,
// applies its change, and saves atomically under the optimistic version
// token. Reads go straight to the store without locking.
type RegisterService struct {
	store   port.RegisterStore
	wall    port.WallClock
	metrics *observability.Metrics
	logger  *zap.Logger

	mu sync.Mutex
}

// NewRegisterService creates the register service.
func NewRegisterService(store port.RegisterStore, wall port.WallClock, metrics *observability.Metrics, logger *zap.Logger) *RegisterService {
	return &RegisterService{store: store, wall: wall, metrics: metrics, logger: logger}
}

// mutate runs fn against a fresh snapshot under the mutation lock and
// persists the result. fn returning an error aborts the whole mutation;
// nothing is persisted. External collaborator calls made inside fn are
// part of the same logical transaction.
func (s *RegisterService) mutate(ctx context.Context, fn func(ctx context.Context, snap *domain.RegisterSnapshot) error) (*domain.RegisterSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return nil, err
	}

	bal, _ := snap.Balance.Float64()
	s.metrics.SetBalance(bal)
	return snap, nil
}

// Snapshot returns the latest persisted register state. Read-only and
// safe to call concurrently with mutations; the result is a best-effort
// snapshot.
func (s *RegisterService) Snapshot(ctx context.Context) (*domain.RegisterSnapshot, error) {
	ctx, span := regTracer.Start(ctx, "RegisterService.Snapshot")
	defer span.End()

	return s.store.Load(ctx)
}

// GetBalance returns the current register balance.
func (s *RegisterService) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	ctx, span := regTracer.Start(ctx, "RegisterService.GetBalance")
	defer span.End()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return snap.Balance, nil
}

// Add appends a ledger entry to the register and adjusts the balance.
// Entries produced by the settlement pipeline's own payment bookkeeping
// (SourceInternal) are silently discarded: their amounts are already
// carried by the settlement entry and must not be double-counted.
func (s *RegisterService) Add(ctx context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	ctx, span := regTracer.Start(ctx, "RegisterService.Add")
	defer span.End()

	if entry == nil {
		return nil, &domain.ErrValidation{Field: "entry", Message: "ledger entry is required"}
	}
	span.SetAttributes(attribute.String("entry.category", string(entry.Category)))

	if entry.Source == domain.SourceInternal {
		s.logger.Debug("discarding internal bookkeeping entry",
			zap.String("entry_id", entry.ID),
			zap.String("amount", entry.Amount.String()),
		)
		s.metrics.IncrEntryDiscarded()
		return entry, nil
	}

	_, err := s.mutate(ctx, func(_ context.Context, snap *domain.RegisterSnapshot) error {
		snap.Apply(*entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrEntry(string(entry.Category))
	s.logger.Info("ledger entry recorded",
		zap.String("entry_id", entry.ID),
		zap.String("category", string(entry.Category)),
		zap.String("amount", entry.Amount.String()),
	)
	return entry, nil
}

// SettleOrder derives one ledger entry from a settled order and adds
// it. The entry is stamped with the business clock's current time so
// interval filtering lines up with simulated days.
func (s *RegisterService) SettleOrder(ctx context.Context, settlement *domain.OrderSettlement) (*domain.LedgerEntry, error) {
	ctx, span := regTracer.Start(ctx, "RegisterService.SettleOrder")
	defer span.End()

	var entry *domain.LedgerEntry
	_, err := s.mutate(ctx, func(_ context.Context, snap *domain.RegisterSnapshot) error {
		e, err := domain.NewLedgerEntry(settlement, domain.BusinessNow(snap, s.wall.Now()))
		if err != nil {
			return err
		}
		snap.Apply(*e)
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrEntry(string(entry.Category))
	s.logger.Info("order settled",
		zap.String("entry_id", entry.ID),
		zap.String("category", string(entry.Category)),
		zap.String("amount", entry.Amount.String()),
	)
	return entry, nil
}
