package domain

import "github.com/shopspring/decimal"

// WholesaleOrder is a request to buy goods from a wholesaler. Settling
// it produces one negative WholesalePurchase ledger entry plus a
// pending order due LeadDays simulated days later.
type WholesaleOrder struct {
	Items     map[string]int  `json:"items"`
	TotalCost decimal.Decimal `json:"total_cost"`
	LeadDays  int             `json:"lead_days,omitempty"`
}
