package handler

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/muellerb/shop-register-go/internal/domain"
	"github.com/muellerb/shop-register-go/internal/service"
)

var registerHandlerTracer = otel.Tracer("handler/register")

type registerResponse struct {
	Balance       string                `json:"balance"`
	IsOpen        bool                  `json:"is_open"`
	SimulatedDate string                `json:"simulated_date"`
	EntryCount    int                   `json:"entry_count"`
	PendingOrders []domain.PendingOrder `json:"pending_orders"`
	Version       int64                 `json:"version"`
}

func toRegisterResponse(snap *domain.RegisterSnapshot) registerResponse {
	return registerResponse{
		Balance:       snap.Balance.String(),
		IsOpen:        snap.IsOpen,
		SimulatedDate: snap.SimulatedDate.Format("2006-01-02"),
		EntryCount:    len(snap.Entries),
		PendingOrders: snap.PendingOrders,
		Version:       snap.Version,
	}
}

// GetRegisterHandler returns the current register state.
// GET /v1/register
func GetRegisterHandler(reg *service.RegisterService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := registerHandlerTracer.Start(r.Context(), "GetRegisterHandler")
		defer span.End()

		snap, err := reg.Snapshot(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, toRegisterResponse(snap))
	}
}

// GetBalanceHandler returns the current register balance.
// GET /v1/register/balance
func GetBalanceHandler(reg *service.RegisterService, currency string, logger *zap.Logger) http.HandlerFunc {
	type balanceResponse struct {
		Balance  string `json:"balance"`
		Currency string `json:"currency"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := registerHandlerTracer.Start(r.Context(), "GetBalanceHandler")
		defer span.End()

		balance, err := reg.GetBalance(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, balanceResponse{
			Balance:  balance.String(),
			Currency: currency,
		})
	}
}

// ToggleHandler flips the shop between closed and open. Opening advances
// the simulated date to the next working day.
// POST /v1/register/toggle
func ToggleHandler(clock *service.ClockService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := registerHandlerTracer.Start(r.Context(), "ToggleHandler")
		defer span.End()

		logger.Info("register toggle requested",
			zap.String("operator", OperatorFromContext(ctx)),
		)

		snap, err := clock.OpenOrClose(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, toRegisterResponse(snap))
	}
}

// BusinessNowHandler returns the current in-simulation time.
// GET /v1/clock/now
func BusinessNowHandler(clock *service.ClockService, logger *zap.Logger) http.HandlerFunc {
	type nowResponse struct {
		Now string `json:"now"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := registerHandlerTracer.Start(r.Context(), "BusinessNowHandler")
		defer span.End()

		now, err := clock.Now(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, nowResponse{Now: now.Format(time.RFC3339)})
	}
}
