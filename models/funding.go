package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FRRFlag is the exchange flag bit marking an offer that tracks the floating
// reference rate instead of carrying a fixed one.
const FRRFlag = 1024

var daysPerYear = decimal.NewFromInt(365)

// ToAPY converts a daily fractional rate into an annualized percentage yield.
func ToAPY(dailyRate decimal.Decimal) decimal.Decimal {
	return dailyRate.Mul(daysPerYear).Mul(decimal.NewFromInt(100))
}

// FundingPosition is an active loan. Amount is positive when this account is
// the lender.
type FundingPosition struct {
	ID         int64           `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Amount     decimal.Decimal `json:"amount"`
	Rate       decimal.Decimal `json:"rate"`
	PeriodDays int             `json:"period_days"`
}

// MaturesAt returns the instant the loan term ends.
func (p FundingPosition) MaturesAt() time.Time {
	return p.CreatedAt.AddDate(0, 0, p.PeriodDays)
}

// RemainingDays returns the fractional days until maturity as of the given
// instant, floored at zero for already-matured positions.
func (p FundingPosition) RemainingDays(asOf time.Time) float64 {
	remain := p.MaturesAt().Sub(asOf).Hours() / 24
	if remain < 0 {
		return 0
	}
	return remain
}

// FundingOffer is an open, unfilled offer to lend.
type FundingOffer struct {
	ID         int64           `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Amount     decimal.Decimal `json:"amount"`
	Rate       decimal.Decimal `json:"rate"`
	PeriodDays int             `json:"period_days"`
	Flags      int64           `json:"flags,omitempty"`
}

// IsFloating reports whether the offer tracks the floating reference rate.
// A zero rate denotes FRR by convention; the explicit flag bit covers offers
// that carry a nonzero indicative rate.
func (o FundingOffer) IsFloating() bool {
	return o.Rate.IsZero() || o.Flags&FRRFlag != 0
}

// FundingTrade is one fill from the funding trade history.
type FundingTrade struct {
	ID         int64           `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Amount     decimal.Decimal `json:"amount"`
	Rate       decimal.Decimal `json:"rate"`
	PeriodDays int             `json:"period_days"`
}

// LoanView is an active loan prepared for the output boundary.
type LoanView struct {
	CreatedAt     time.Time       `json:"created_at"`
	Amount        decimal.Decimal `json:"amount"`
	APY           decimal.Decimal `json:"apy"`
	PeriodDays    int             `json:"period_days"`
	RemainingDays float64         `json:"remaining_days"`
	MaturesAt     time.Time       `json:"matures_at"`
}

// OfferView is an open offer prepared for the output boundary. APY is zero
// for floating offers; Floating tells the presentation layer to render "FRR".
type OfferView struct {
	CreatedAt  time.Time       `json:"created_at"`
	Amount     decimal.Decimal `json:"amount"`
	APY        decimal.Decimal `json:"apy"`
	Floating   bool            `json:"floating"`
	PeriodDays int             `json:"period_days"`
}

// FillView is a lender-side fill prepared for the output boundary.
type FillView struct {
	ExecutedAt time.Time       `json:"executed_at"`
	Amount     decimal.Decimal `json:"amount"`
	APY        decimal.Decimal `json:"apy"`
	PeriodDays int             `json:"period_days"`
}

// FundingBook groups the three funding collections for one refresh cycle.
// Skipped counts records dropped because they failed normalization; a bad
// record never blanks the whole book.
type FundingBook struct {
	ActiveLoans []LoanView  `json:"active_loans"`
	OpenOffers  []OfferView `json:"open_offers"`
	RecentFills []FillView  `json:"recent_fills"`
	Skipped     int         `json:"skipped,omitempty"`
}
