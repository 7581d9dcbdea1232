// Package domain defines the core business entities of the shop register:
// the ledger, the register aggregate, intervals and financial reports.
// These models are independent of transport and persistence.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================
// Ledger entries
// ============================================================

// Category tags a ledger entry with the kind of settled order it came from.
type Category string

const (
	CategorySimpleSale        Category = "simple_sale"
	CategoryReservedSale      Category = "reserved_sale"
	CategoryEventSale         Category = "event_sale"
	CategoryContractSale      Category = "contract_sale"
	CategoryWholesalePurchase Category = "wholesale_purchase"
)

// Categories lists all recognized ledger categories.
var Categories = []Category{
	CategorySimpleSale,
	CategoryReservedSale,
	CategoryEventSale,
	CategoryContractSale,
	CategoryWholesalePurchase,
}

// ParseCategory validates a category string from query parameters.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", &ErrValidation{Field: "category", Message: "unknown category"}
}

// OrderKind identifies the concrete order type being settled.
type OrderKind string

const (
	OrderKindSimple      OrderKind = "simple"
	OrderKindReservation OrderKind = "reservation"
	OrderKindEvent       OrderKind = "event"
	OrderKindContract    OrderKind = "contract"
	OrderKindWholesale   OrderKind = "wholesale"
)

// EntrySource marks where a ledger entry was produced.
type EntrySource string

const (
	// SourceSettlement entries come from settled orders and count toward
	// the balance.
	SourceSettlement EntrySource = "settlement"

	// SourceInternal entries are the settlement pipeline's own payment
	// bookkeeping. Their amounts are already reflected in the settlement
	// entry, so the register discards them on Add.
	SourceInternal EntrySource = "internal"
)

// LineItem is one countable position of a settled order.
type LineItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

// ChargeLine is a non-countable charge of a settled order, e.g. a
// delivery or service fee.
type ChargeLine struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// OrderSettlement is the raw order data handed over by the order
// subsystem when an order is settled. Exactly one ledger entry is
// derived from it.
type OrderSettlement struct {
	Kind        OrderKind    `json:"order_kind"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	LineItems   []LineItem   `json:"line_items,omitempty"`
	ChargeLines []ChargeLine `json:"charge_lines,omitempty"`
}

// LedgerEntry is one immutable signed monetary record derived from a
// settled order. Positive amounts are revenue, negative are expenses.
type LedgerEntry struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
	Category  Category        `json:"category"`
	Items     map[string]int  `json:"items"`
	Source    EntrySource     `json:"source"`
}

// IsRevenue reports whether the entry increases the balance.
func (e LedgerEntry) IsRevenue() bool {
	return e.Amount.IsPositive()
}

// categoryForKind is the closed dispatch from order kind to ledger
// category. Unrecognized kinds are a fatal construction error.
func categoryForKind(kind OrderKind) (Category, error) {
	switch kind {
	case OrderKindSimple:
		return CategorySimpleSale, nil
	case OrderKindReservation:
		return CategoryReservedSale, nil
	case OrderKindEvent:
		return CategoryEventSale, nil
	case OrderKindContract:
		return CategoryContractSale, nil
	case OrderKindWholesale:
		return CategoryWholesalePurchase, nil
	default:
		return "", &ErrUnknownOrderKind{Kind: string(kind)}
	}
}

// NewLedgerEntry derives exactly one ledger entry from a settled order.
// Wholesale purchases are normalized to a negative amount; all other
// kinds keep the settlement amount as given. Charge lines appear in the
// item map with quantity 1.
func NewLedgerEntry(settlement *OrderSettlement, at time.Time) (*LedgerEntry, error) {
	if settlement == nil {
		return nil, &ErrValidation{Field: "settlement", Message: "order settlement is required"}
	}

	category, err := categoryForKind(settlement.Kind)
	if err != nil {
		return nil, err
	}

	amount := settlement.TotalAmount
	if category == CategoryWholesalePurchase {
		amount = amount.Abs().Neg()
	}

	items := make(map[string]int, len(settlement.LineItems)+len(settlement.ChargeLines))
	for _, li := range settlement.LineItems {
		items[li.Description] += li.Quantity
	}
	for _, cl := range settlement.ChargeLines {
		items[cl.Description] += 1
	}

	return &LedgerEntry{
		ID:        uuid.New().String(),
		Amount:    amount,
		Timestamp: at,
		Category:  category,
		Items:     items,
		Source:    SourceSettlement,
	}, nil
}
