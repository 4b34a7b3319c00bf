package models

import "github.com/shopspring/decimal"

// WalletSnapshot is the funding wallet balance at the start of a refresh
// cycle. Used is always derived from Total and Free rather than trusted from
// the source, since the two surfaces occasionally disagree.
type WalletSnapshot struct {
	Currency string          `json:"currency"`
	Total    decimal.Decimal `json:"total"`
	Free     decimal.Decimal `json:"free"`
}

// Used returns the balance currently locked in loans, clamped at zero when
// the source reports Free above Total.
func (w WalletSnapshot) Used() decimal.Decimal {
	used := w.Total.Sub(w.Free)
	if used.IsNegative() {
		return decimal.Zero
	}
	return used
}
