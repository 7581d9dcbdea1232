package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/muellerb/shop-register-go/internal/domain"
	"github.com/muellerb/shop-register-go/internal/service"
)

var reportHandlerTracer = otel.Tracer("handler/report")

// DailyReportHandler builds the financial report for one calendar day.
// An empty ledger has no reports at all, which maps to 404.
// GET /v1/reports/daily/{date}
func DailyReportHandler(rep *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := reportHandlerTracer.Start(r.Context(), "DailyReportHandler")
		defer span.End()

		day, err := parseDate(chi.URLParam(r, "date"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		report, err := rep.CreateDailyReport(ctx, day)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if report == nil {
			writeError(w, http.StatusNotFound, "no ledger data recorded yet")
			return
		}

		writeJSON(w, http.StatusOK, toDailyResponse(report))
	}
}

// MonthlyReportHandler builds the financial report for one calendar
// month up to the current business time.
// GET /v1/reports/monthly/{month}
func MonthlyReportHandler(rep *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := reportHandlerTracer.Start(r.Context(), "MonthlyReportHandler")
		defer span.End()

		year, month, err := parseMonth(chi.URLParam(r, "month"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		report, err := rep.CreateMonthlyReport(ctx, year, month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if report == nil {
			writeError(w, http.StatusNotFound, "no ledger data recorded yet")
			return
		}

		writeJSON(w, http.StatusOK, toMonthlyResponse(report))
	}
}

// MonthToDateHandler returns today's and the running month's reports in
// one response.
// GET /v1/reports/month-to-date
func MonthToDateHandler(rep *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	type monthToDateResponse struct {
		Today *dailyReportResponse   `json:"today"`
		Month *monthlyReportResponse `json:"month"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := reportHandlerTracer.Start(r.Context(), "MonthToDateHandler")
		defer span.End()

		daily, monthly, err := rep.MonthToDate(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if daily == nil && monthly == nil {
			writeError(w, http.StatusNotFound, "no ledger data recorded yet")
			return
		}

		resp := monthToDateResponse{}
		if daily != nil {
			d := toDailyResponse(daily)
			resp.Today = &d
		}
		if monthly != nil {
			m := toMonthlyResponse(monthly)
			resp.Month = &m
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type dailyReportResponse struct {
	Date            string               `json:"date"`
	BalanceAtEnd    string               `json:"balance_at_end"`
	Income          string               `json:"income"`
	Expenditure     string               `json:"expenditure"`
	Profit          string               `json:"profit"`
	Entries         []domain.LedgerEntry `json:"entries"`
	BeforeBeginning bool                 `json:"before_beginning"`
}

type monthlyReportResponse struct {
	Month           string                `json:"month"`
	BalanceAtEnd    string                `json:"balance_at_end"`
	Income          string                `json:"income"`
	Expenditure     string                `json:"expenditure"`
	Profit          string                `json:"profit"`
	Days            []dailyReportResponse `json:"days"`
	BeforeBeginning bool                  `json:"before_beginning"`
}

func toDailyResponse(r *domain.DailyFinancialReport) dailyReportResponse {
	return dailyReportResponse{
		Date:            r.Interval.Start.Format("2006-01-02"),
		BalanceAtEnd:    r.BalanceAtEnd.String(),
		Income:          r.Income.String(),
		Expenditure:     r.Expenditure.String(),
		Profit:          r.Profit.String(),
		Entries:         r.Entries,
		BeforeBeginning: r.BeforeBeginning,
	}
}

func toMonthlyResponse(r *domain.MonthlyFinancialReport) monthlyReportResponse {
	days := make([]dailyReportResponse, 0, len(r.Days))
	for i := range r.Days {
		days = append(days, toDailyResponse(&r.Days[i]))
	}
	return monthlyReportResponse{
		Month:           r.Interval.Start.Format("2006-01"),
		BalanceAtEnd:    r.BalanceAtEnd.String(),
		Income:          r.Income().String(),
		Expenditure:     r.Expenditure.String(),
		Profit:          r.Profit.String(),
		Days:            days,
		BeforeBeginning: r.BeforeBeginning,
	}
}
