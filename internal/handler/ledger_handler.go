package handler

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/muellerb/shop-register-go/internal/domain"
	"github.com/muellerb/shop-register-go/internal/service"
)

var ledgerHandlerTracer = otel.Tracer("handler/ledger")

type settleOrderRequest struct {
	Kind        string              `json:"order_kind"`
	TotalAmount string              `json:"total_amount"`
	LineItems   []domain.LineItem   `json:"line_items"`
	ChargeLines []chargeLineRequest `json:"charge_lines"`
}

type chargeLineRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

// SettleOrderHandler records the ledger entry for a settled order.
// POST /v1/ledger/entries
func SettleOrderHandler(reg *service.RegisterService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := ledgerHandlerTracer.Start(r.Context(), "SettleOrderHandler")
		defer span.End()

		var req settleOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		total, err := domain.ParseAmount(req.TotalAmount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		settlement := &domain.OrderSettlement{
			Kind:        domain.OrderKind(req.Kind),
			TotalAmount: total,
			LineItems:   req.LineItems,
		}
		for _, cl := range req.ChargeLines {
			amount, err := domain.ParseAmount(cl.Amount)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			settlement.ChargeLines = append(settlement.ChargeLines, domain.ChargeLine{
				Description: cl.Description,
				Amount:      amount,
			})
		}

		entry, err := reg.SettleOrder(ctx, settlement)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, entry)
	}
}

// ListEntriesHandler queries the ledger. Filters are mutually exclusive:
// ?category= selects by category, ?revenue=true|false by sign,
// ?from=&to= (YYYY-MM-DD) by interval. Without filters every entry is
// returned.
// GET /v1/ledger/entries
func ListEntriesHandler(query *service.LedgerQueryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := ledgerHandlerTracer.Start(r.Context(), "ListEntriesHandler")
		defer span.End()

		q := r.URL.Query()

		var (
			entries []domain.LedgerEntry
			err     error
		)
		switch {
		case q.Get("category") != "":
			category, parseErr := domain.ParseCategory(q.Get("category"))
			if parseErr != nil {
				handleServiceError(w, parseErr, logger)
				return
			}
			entries, err = query.FindByCategory(ctx, category)

		case q.Get("revenue") != "":
			entries, err = query.FindByRevenueFlag(ctx, q.Get("revenue") == "true")

		case q.Get("from") != "" && q.Get("to") != "":
			iv, parseErr := parseIntervalParams(q.Get("from"), q.Get("to"))
			if parseErr != nil {
				handleServiceError(w, parseErr, logger)
				return
			}
			entries, err = query.FindInInterval(ctx, iv)

		default:
			entries, err = query.FindAll(ctx)
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, entries)
	}
}

type partitionBucket struct {
	Start   string               `json:"start"`
	End     string               `json:"end"`
	Entries []domain.LedgerEntry `json:"entries"`
}

// PartitionHandler slices an interval into fixed-size windows and
// buckets the entries. ?from=&to= bound the interval, ?step= is a Go
// duration (default 24h).
// GET /v1/ledger/partition
func PartitionHandler(query *service.LedgerQueryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := ledgerHandlerTracer.Start(r.Context(), "PartitionHandler")
		defer span.End()

		q := r.URL.Query()
		iv, err := parseIntervalParams(q.Get("from"), q.Get("to"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		step := 24 * time.Hour
		if s := q.Get("step"); s != "" {
			parsed, parseErr := time.ParseDuration(s)
			if parseErr != nil || parsed <= 0 {
				writeError(w, http.StatusBadRequest, "step: expected a positive duration")
				return
			}
			step = parsed
		}

		buckets, err := query.PartitionByDuration(ctx, iv, step)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		out := make([]partitionBucket, 0, len(buckets))
		for window, entries := range buckets {
			out = append(out, partitionBucket{
				Start:   window.Start.Format(time.RFC3339),
				End:     window.End.Format(time.RFC3339),
				Entries: entries,
			})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })

		writeJSON(w, http.StatusOK, out)
	}
}

// parseIntervalParams builds a half-open interval from two YYYY-MM-DD
// query parameters. The end date is exclusive.
func parseIntervalParams(from, to string) (domain.Interval, error) {
	start, err := parseDate(from)
	if err != nil {
		return domain.Interval{}, &domain.ErrValidation{Field: "from", Message: "expected YYYY-MM-DD"}
	}
	end, err := parseDate(to)
	if err != nil {
		return domain.Interval{}, &domain.ErrValidation{Field: "to", Message: "expected YYYY-MM-DD"}
	}
	if !end.After(start) {
		return domain.Interval{}, &domain.ErrValidation{Field: "to", Message: "must be after from"}
	}
	return domain.Interval{Start: start, End: end}, nil
}
