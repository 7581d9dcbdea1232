package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/muellerb/shop-register-go/internal/domain"
)

var purchaseTracer = otel.Tracer("service/purchasing")

// PurchasingService places wholesale purchase orders. It guards the
// register against overdraft by checking the projected post-purchase
// balance before anything is written: on insufficient funds neither a
// ledger entry nor a pending order is created.
type PurchasingService struct {
	reg             *RegisterService
	defaultLeadDays int
	logger          *zap.Logger
}

// NewPurchasingService creates the purchasing service.
// defaultLeadDays applies when an order does not specify its own lead
// time.
func NewPurchasingService(reg *RegisterService, defaultLeadDays int, logger *zap.Logger) *PurchasingService {
	return &PurchasingService{reg: reg, defaultLeadDays: defaultLeadDays, logger: logger}
}

// PlaceWholesaleOrder settles a wholesale purchase: one negative
// WholesalePurchase ledger entry plus a pending order due after the
// lead time, both written in a single aggregate mutation.
func (p *PurchasingService) PlaceWholesaleOrder(ctx context.Context, order *domain.WholesaleOrder) (*domain.PendingOrder, *domain.LedgerEntry, error) {
	ctx, span := purchaseTracer.Start(ctx, "PurchasingService.PlaceWholesaleOrder")
	defer span.End()

	if order == nil {
		return nil, nil, &domain.ErrValidation{Field: "order", Message: "wholesale order is required"}
	}
	if len(order.Items) == 0 {
		return nil, nil, &domain.ErrValidation{Field: "items", Message: "at least one item is required"}
	}
	if !order.TotalCost.IsPositive() {
		return nil, nil, &domain.ErrValidation{Field: "total_cost", Message: "must be positive"}
	}
	leadDays := order.LeadDays
	if leadDays <= 0 {
		leadDays = p.defaultLeadDays
	}
	span.SetAttributes(attribute.String("purchase.total_cost", order.TotalCost.String()))

	var (
		entry   *domain.LedgerEntry
		pending *domain.PendingOrder
	)

	_, err := p.reg.mutate(ctx, func(_ context.Context, snap *domain.RegisterSnapshot) error {
		projected := snap.Balance.Sub(order.TotalCost)
		if projected.IsNegative() {
			return &domain.ErrInsufficientFunds{Available: snap.Balance, Required: order.TotalCost}
		}

		lineItems := make([]domain.LineItem, 0, len(order.Items))
		for item, qty := range order.Items {
			lineItems = append(lineItems, domain.LineItem{Description: item, Quantity: qty})
		}
		settlement := &domain.OrderSettlement{
			Kind:        domain.OrderKindWholesale,
			TotalAmount: order.TotalCost,
			LineItems:   lineItems,
		}

		e, err := domain.NewLedgerEntry(settlement, domain.BusinessNow(snap, p.reg.wall.Now()))
		if err != nil {
			return err
		}
		snap.Apply(*e)
		entry = e

		items := make(map[string]int, len(order.Items))
		for item, qty := range order.Items {
			items[item] = qty
		}
		po := domain.PendingOrder{
			ID:      uuid.New().String(),
			Items:   items,
			DueDate: snap.SimulatedDate.AddDate(0, 0, leadDays),
		}
		snap.PendingOrders = append(snap.PendingOrders, po)
		pending = &po
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	p.reg.metrics.IncrEntry(string(entry.Category))
	p.logger.Info("wholesale order placed",
		zap.String("pending_order_id", pending.ID),
		zap.String("cost", order.TotalCost.String()),
		zap.Time("due_date", pending.DueDate),
	)
	return pending, entry, nil
}
