package handler

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/muellerb/shop-register-go/internal/domain"
	"github.com/muellerb/shop-register-go/internal/service"
)

var purchaseHandlerTracer = otel.Tracer("handler/purchase")

type wholesaleOrderRequest struct {
	Items     map[string]int `json:"items"`
	TotalCost string         `json:"total_cost"`
	LeadDays  int            `json:"lead_days"`
}

// PlaceWholesaleOrderHandler places a wholesale purchase order: one
// expense ledger entry plus a pending delivery.
// POST /v1/purchases/wholesale
func PlaceWholesaleOrderHandler(purch *service.PurchasingService, logger *zap.Logger) http.HandlerFunc {
	type wholesaleOrderResponse struct {
		PendingOrder *domain.PendingOrder `json:"pending_order"`
		Entry        *domain.LedgerEntry  `json:"entry"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := purchaseHandlerTracer.Start(r.Context(), "PlaceWholesaleOrderHandler")
		defer span.End()

		var req wholesaleOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		cost, err := domain.ParseAmount(req.TotalCost)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		pending, entry, err := purch.PlaceWholesaleOrder(ctx, &domain.WholesaleOrder{
			Items:     req.Items,
			TotalCost: cost,
			LeadDays:  req.LeadDays,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, wholesaleOrderResponse{
			PendingOrder: pending,
			Entry:        entry,
		})
	}
}
