package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muellerb/shop-register-go/internal/domain"
	"github.com/muellerb/shop-register-go/internal/infra/observability"
	"github.com/muellerb/shop-register-go/internal/port"
)

var reportTracer = otel.Tracer("service/report")

// ReportService builds daily and monthly financial reports. The ledger
// only ever records the current cumulative balance, so any historical
// balance is reconstructed backward: the balance as of a past moment T
// is the current balance minus the net profit of everything recorded
// at or after T.
type ReportService struct {
	reg     *RegisterService
	wall    port.WallClock
	cache   port.Cache[*domain.MonthlyFinancialReport]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewReportService creates the report service.
func NewReportService(reg *RegisterService, wall port.WallClock, cache port.Cache[*domain.MonthlyFinancialReport], metrics *observability.Metrics, logger *zap.Logger) *ReportService {
	return &ReportService{reg: reg, wall: wall, cache: cache, metrics: metrics, logger: logger}
}

// balanceAt reconstructs the balance as of t from a snapshot.
func balanceAt(snap *domain.RegisterSnapshot, t time.Time) decimal.Decimal {
	return snap.Balance.Sub(SumProfit(FilterOnOrAfter(snap.Entries, t)))
}

// newDailyReport assembles one daily report from the entries of its
// day and the reconstructed end-of-day balance.
func newDailyReport(day domain.Interval, endBalance decimal.Decimal, entries []domain.LedgerEntry, firstEver time.Time) domain.DailyFinancialReport {
	income := SumRevenue(entries)
	expenditure := SumExpense(entries)

	return domain.DailyFinancialReport{
		Interval:        day,
		BalanceAtEnd:    endBalance,
		Income:          income,
		Expenditure:     expenditure,
		Profit:          income.Add(expenditure),
		Entries:         entries,
		BeforeBeginning: day.Before(firstEver),
	}
}

// BuildDailyReports is the backward fold at the heart of monthly
// reporting. daysDesc must be sorted descending by end time: only the
// balance at the most recent boundary is known, and each day's ending
// balance yields the previous day's by subtracting that day's profit.
// The balance cursor is explicit so the fold stays a pure function.
func BuildDailyReports(endBalance decimal.Decimal, daysDesc []domain.Interval, entriesByDay map[domain.Interval][]domain.LedgerEntry, firstEver time.Time) []domain.DailyFinancialReport {
	reports := make([]domain.DailyFinancialReport, 0, len(daysDesc))
	cursor := endBalance
	for _, day := range daysDesc {
		report := newDailyReport(day, cursor, entriesByDay[day], firstEver)
		reports = append(reports, report)
		cursor = cursor.Sub(report.Profit)
	}
	return reports
}

// CreateDailyReport builds the report for the calendar day of the given
// date. An empty ledger yields an absent (nil) report: "no data" is
// distinct from "zero activity".
func (r *ReportService) CreateDailyReport(ctx context.Context, day time.Time) (*domain.DailyFinancialReport, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.CreateDailyReport")
	defer span.End()
	span.SetAttributes(attribute.String("report.day", day.Format("2006-01-02")))

	start := time.Now()
	defer func() {
		r.metrics.RecordReportBuild("daily", time.Since(start))
	}()

	snap, err := r.reg.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	firstEver, ok := snap.FirstEntryAt()
	if !ok {
		return nil, nil
	}

	iv := domain.Day(day)
	report := newDailyReport(iv, balanceAt(snap, iv.End), FilterInterval(snap.Entries, iv), firstEver)
	return &report, nil
}

// CreateMonthlyReport builds the report for the given calendar month:
// one daily report per day from the month's start up to the current
// business time, walked backward from the month-end balance.
func (r *ReportService) CreateMonthlyReport(ctx context.Context, year int, month time.Month) (*domain.MonthlyFinancialReport, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.CreateMonthlyReport")
	defer span.End()
	span.SetAttributes(attribute.String("report.month", fmt.Sprintf("%04d-%02d", year, month)))

	start := time.Now()
	defer func() {
		r.metrics.RecordReportBuild("monthly", time.Since(start))
	}()

	snap, err := r.reg.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	firstEver, ok := snap.FirstEntryAt()
	if !ok {
		return nil, nil
	}

	// Cache key carries the snapshot version: a mutation moves the
	// version, so stale cached reports simply stop being addressed.
	cacheKey := fmt.Sprintf("monthly:%04d-%02d:v%d", year, month, snap.Version)
	if cached, hit := r.cache.Get(cacheKey); hit {
		r.metrics.IncrCacheHit("monthly_report")
		return cached, nil
	}
	r.metrics.IncrCacheMiss("monthly_report")

	iv := domain.MonthOf(year, month, snap.SimulatedDate.Location())
	iv = iv.Clamp(domain.BusinessNow(snap, r.wall.Now()))

	daysDesc := iv.Partition(24 * time.Hour)
	sort.Slice(daysDesc, func(i, j int) bool {
		return daysDesc[i].End.After(daysDesc[j].End)
	})

	daily := BuildDailyReports(
		balanceAt(snap, iv.End),
		daysDesc,
		PartitionEntries(snap.Entries, iv, 24*time.Hour),
		firstEver,
	)

	report := &domain.MonthlyFinancialReport{
		Interval:        iv,
		BalanceAtEnd:    balanceAt(snap, iv.End),
		Profit:          decimal.Zero,
		Expenditure:     decimal.Zero,
		BeforeBeginning: true,
	}
	for _, d := range daily {
		report.Profit = report.Profit.Add(d.Profit)
		report.Expenditure = report.Expenditure.Add(d.Expenditure)
		if !d.BeforeBeginning {
			report.BeforeBeginning = false
		}
	}

	// The fold runs newest-first; consumers read statements oldest-first.
	for i, j := 0, len(daily)-1; i < j; i, j = i+1, j-1 {
		daily[i], daily[j] = daily[j], daily[i]
	}
	report.Days = daily

	r.cache.Set(cacheKey, report)
	return report, nil
}

// MonthToDate fetches the current day's and the current month's reports
// concurrently, keyed off the register's simulated date.
func (r *ReportService) MonthToDate(ctx context.Context) (*domain.DailyFinancialReport, *domain.MonthlyFinancialReport, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.MonthToDate")
	defer span.End()

	snap, err := r.reg.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	today := snap.SimulatedDate

	var (
		daily   *domain.DailyFinancialReport
		monthly *domain.MonthlyFinancialReport
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := r.CreateDailyReport(gCtx, today)
		if err != nil {
			r.logger.Error("month-to-date: daily report failed", zap.Error(err))
			return err
		}
		daily = d
		return nil
	})
	g.Go(func() error {
		m, err := r.CreateMonthlyReport(gCtx, today.Year(), today.Month())
		if err != nil {
			r.logger.Error("month-to-date: monthly report failed", zap.Error(err))
			return err
		}
		monthly = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return daily, monthly, nil
}
