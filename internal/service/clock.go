package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/muellerb/shop-register-go/internal/domain"
	"github.com/muellerb/shop-register-go/internal/infra/observability"
	"github.com/muellerb/shop-register-go/internal/port"
)

var clockTracer = otel.Tracer("service/clock")

// ClockService advances the register's simulated calendar. The register
// is a two-state machine over {Closed, Open}; only the Closed→Open
// transition moves the date, triggers monthly billing and fulfills
// pending wholesale orders. Closing only clears the open flag.
type ClockService struct {
	reg       *RegisterService
	biller    port.MonthlyBiller
	inventory port.InventoryReleaser
	wall      port.WallClock
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewClockService creates the business clock.
func NewClockService(reg *RegisterService, biller port.MonthlyBiller, inventory port.InventoryReleaser, wall port.WallClock, metrics *observability.Metrics, logger *zap.Logger) *ClockService {
	return &ClockService{
		reg:       reg,
		biller:    biller,
		inventory: inventory,
		wall:      wall,
		metrics:   metrics,
		logger:    logger,
	}
}

// OpenOrClose toggles the shop state and returns the resulting
// snapshot.
//
// Closed→Open advances the simulated date to the next working day,
// invokes the billing collaborator when that advance crosses a month
// boundary, and releases every pending order due on or before the new
// date. The collaborator calls and the date advance are one logical
// transaction: any collaborator error aborts the transition and nothing
// is persisted.
//
// Open→Closed only writes the flag; the date stays where it is.
func (c *ClockService) OpenOrClose(ctx context.Context) (*domain.RegisterSnapshot, error) {
	ctx, span := clockTracer.Start(ctx, "ClockService.OpenOrClose")
	defer span.End()

	var (
		opened    bool
		billed    bool
		fulfilled int
	)

	snap, err := c.reg.mutate(ctx, func(ctx context.Context, snap *domain.RegisterSnapshot) error {
		if snap.IsOpen {
			snap.IsOpen = false
			return nil
		}

		next := NextWorkingDay(snap.SimulatedDate)

		if crossesMonthBoundary(snap.SimulatedDate, next) {
			// Billing reflects the month that just ended, so it runs
			// before the date moves.
			if err := c.biller.AddMonthlyCharges(ctx); err != nil {
				return err
			}
			billed = true
		}

		remaining := snap.PendingOrders[:0]
		for _, pending := range snap.PendingOrders {
			if !pending.DueOnOrBefore(next) {
				remaining = append(remaining, pending)
				continue
			}
			if err := c.inventory.ReleaseGoods(ctx, pending.Items); err != nil {
				return err
			}
			fulfilled++
		}
		snap.PendingOrders = remaining

		snap.SimulatedDate = next
		snap.DayStartedAt = c.wall.Now()
		snap.IsOpen = true
		opened = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Bool("shop.open", snap.IsOpen))

	if opened {
		c.metrics.IncrDayAdvance()
		if billed {
			c.metrics.IncrBillingRun()
		}
		if fulfilled > 0 {
			c.metrics.AddOrdersFulfilled(fulfilled)
		}
		c.logger.Info("shop opened",
			zap.Time("simulated_date", snap.SimulatedDate),
			zap.Bool("billing_triggered", billed),
			zap.Int("orders_fulfilled", fulfilled),
		)
	} else {
		c.logger.Info("shop closed", zap.Time("simulated_date", snap.SimulatedDate))
	}
	return snap, nil
}

// Now returns the current in-simulation time: the simulated date at the
// fixed day-start hour plus the wall-clock time elapsed since the shop
// last opened.
func (c *ClockService) Now(ctx context.Context) (time.Time, error) {
	ctx, span := clockTracer.Start(ctx, "ClockService.Now")
	defer span.End()

	snap, err := c.reg.Snapshot(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return domain.BusinessNow(snap, c.wall.Now()), nil
}

// NextWorkingDay returns the first day after d that does not fall on a
// weekend.
func NextWorkingDay(d time.Time) time.Time {
	next := d.AddDate(0, 0, 1)
	for isWeekend(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func crossesMonthBoundary(from, to time.Time) bool {
	return from.Month() != to.Month() || from.Year() != to.Year()
}
