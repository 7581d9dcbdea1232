package domain

import "github.com/shopspring/decimal"

// ============================================================
// Financial reports
// ============================================================

// DailyFinancialReport summarizes one simulated business day.
// Expenditure is stored negative; Profit = Income + Expenditure.
// BalanceAtEnd is the reconstructed register balance as of the end of
// the day's interval.
type DailyFinancialReport struct {
	Interval     Interval        `json:"interval"`
	BalanceAtEnd decimal.Decimal `json:"balance_at_end"`
	Income       decimal.Decimal `json:"income"`
	Expenditure  decimal.Decimal `json:"expenditure"`
	Profit       decimal.Decimal `json:"profit"`
	Entries      []LedgerEntry   `json:"entries"`

	// BeforeBeginning is true when the day lies entirely before the
	// first recorded ledger activity. Such days carry no meaning and
	// are suppressed from presentation.
	BeforeBeginning bool `json:"before_beginning"`
}

// MonthlyFinancialReport summarizes one simulated month as an ordered
// series of daily reports, oldest first, up to the current business
// time. Profit and Expenditure are running sums over the daily reports.
type MonthlyFinancialReport struct {
	Interval        Interval               `json:"interval"`
	BalanceAtEnd    decimal.Decimal        `json:"balance_at_end"`
	Profit          decimal.Decimal        `json:"profit"`
	Expenditure     decimal.Decimal        `json:"expenditure"`
	Days            []DailyFinancialReport `json:"days"`
	BeforeBeginning bool                   `json:"before_beginning"`
}

// Income derives the monthly income from profit and expenditure.
// The month level never re-sums daily incomes; as long as each daily
// report satisfies profit = income + expenditure the derived value is
// identical to that sum.
func (r *MonthlyFinancialReport) Income() decimal.Decimal {
	return r.Profit.Sub(r.Expenditure)
}
