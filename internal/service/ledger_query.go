package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/muellerb/shop-register-go/internal/domain"
)

var queryTracer = otel.Tracer("service/ledgerquery")

// LedgerQueryService is the read side over the register's ledger.
// Every operation works on one snapshot; results are best-effort with
// respect to concurrent mutation.
type LedgerQueryService struct {
	reg    *RegisterService
	logger *zap.Logger
}

// NewLedgerQueryService creates the ledger query service.
func NewLedgerQueryService(reg *RegisterService, logger *zap.Logger) *LedgerQueryService {
	return &LedgerQueryService{reg: reg, logger: logger}
}

// FindAll returns every ledger entry in recording order.
func (q *LedgerQueryService) FindAll(ctx context.Context) ([]domain.LedgerEntry, error) {
	ctx, span := queryTracer.Start(ctx, "LedgerQueryService.FindAll")
	defer span.End()

	snap, err := q.reg.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Entries, nil
}

// FindByCategory returns all entries tagged with the given category.
func (q *LedgerQueryService) FindByCategory(ctx context.Context, category domain.Category) ([]domain.LedgerEntry, error) {
	ctx, span := queryTracer.Start(ctx, "LedgerQueryService.FindByCategory")
	defer span.End()

	snap, err := q.reg.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByCategory(snap.Entries, category), nil
}

// FindByRevenueFlag returns revenue (or expense) entries ordered by
// timestamp ascending.
func (q *LedgerQueryService) FindByRevenueFlag(ctx context.Context, isRevenue bool) ([]domain.LedgerEntry, error) {
	ctx, span := queryTracer.Start(ctx, "LedgerQueryService.FindByRevenueFlag")
	defer span.End()

	snap, err := q.reg.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByRevenue(snap.Entries, isRevenue), nil
}

// FindInInterval returns the entries whose timestamp falls within the
// half-open interval.
func (q *LedgerQueryService) FindInInterval(ctx context.Context, iv domain.Interval) ([]domain.LedgerEntry, error) {
	ctx, span := queryTracer.Start(ctx, "LedgerQueryService.FindInInterval")
	defer span.End()

	snap, err := q.reg.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return FilterInterval(snap.Entries, iv), nil
}

// PartitionByDuration slices the interval into step-sized windows and
// buckets the entries into them.
func (q *LedgerQueryService) PartitionByDuration(ctx context.Context, iv domain.Interval, step time.Duration) (map[domain.Interval][]domain.LedgerEntry, error) {
	ctx, span := queryTracer.Start(ctx, "LedgerQueryService.PartitionByDuration")
	defer span.End()

	snap, err := q.reg.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return PartitionEntries(snap.Entries, iv, step), nil
}

// ============================================================
// Pure query functions, shared with the report builder
// ============================================================

// FilterByCategory selects entries of one category.
func FilterByCategory(entries []domain.LedgerEntry, category domain.Category) []domain.LedgerEntry {
	out := make([]domain.LedgerEntry, 0)
	for _, e := range entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// FilterByRevenue selects revenue or expense entries, ordered by
// timestamp ascending.
func FilterByRevenue(entries []domain.LedgerEntry, isRevenue bool) []domain.LedgerEntry {
	out := make([]domain.LedgerEntry, 0)
	for _, e := range entries {
		if e.IsRevenue() == isRevenue {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// FilterInterval selects entries with a timestamp in [iv.Start, iv.End).
// Entries without a timestamp are excluded, never an error.
func FilterInterval(entries []domain.LedgerEntry, iv domain.Interval) []domain.LedgerEntry {
	out := make([]domain.LedgerEntry, 0)
	for _, e := range entries {
		if e.Timestamp.IsZero() {
			continue
		}
		if iv.Contains(e.Timestamp) {
			out = append(out, e)
		}
	}
	return out
}

// FilterOnOrAfter selects entries with a timestamp at or after t. The
// balance reconstruction uses this to collect everything recorded
// between a past moment and now.
func FilterOnOrAfter(entries []domain.LedgerEntry, t time.Time) []domain.LedgerEntry {
	out := make([]domain.LedgerEntry, 0)
	for _, e := range entries {
		if e.Timestamp.IsZero() {
			continue
		}
		if !e.Timestamp.Before(t) {
			out = append(out, e)
		}
	}
	return out
}

// PartitionEntries buckets entries into consecutive step-sized windows
// over iv. Every window appears in the result, including empty ones.
func PartitionEntries(entries []domain.LedgerEntry, iv domain.Interval, step time.Duration) map[domain.Interval][]domain.LedgerEntry {
	buckets := make(map[domain.Interval][]domain.LedgerEntry)
	for _, window := range iv.Partition(step) {
		buckets[window] = FilterInterval(entries, window)
	}
	return buckets
}

// SumRevenue sums the positive amounts.
func SumRevenue(entries []domain.LedgerEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		if e.IsRevenue() {
			sum = sum.Add(e.Amount)
		}
	}
	return sum
}

// SumExpense sums the negative amounts. The result is negative or zero.
func SumExpense(entries []domain.LedgerEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		if !e.IsRevenue() {
			sum = sum.Add(e.Amount)
		}
	}
	return sum
}

// SumProfit sums all amounts regardless of sign.
func SumProfit(entries []domain.LedgerEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	return sum
}
