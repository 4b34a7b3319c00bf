package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Metrics is the derived principal/income/yield summary for one cycle.
// Values are kept at full precision; rounding happens only at the
// presentation boundary.
type Metrics struct {
	AsOf           time.Time       `json:"as_of"`
	TotalPrincipal decimal.Decimal `json:"total_principal"`
	Utilization    decimal.Decimal `json:"utilization"`
	WindowDays     int             `json:"window_days"`
	WindowIncome   decimal.Decimal `json:"window_income"`
	WindowAPY      decimal.Decimal `json:"window_apy"`
	LifetimeIncome decimal.Decimal `json:"lifetime_income"`
	LifetimeAPY    decimal.Decimal `json:"lifetime_apy"`
	ActiveDays     int             `json:"active_days"`
}

// DailyBucket is one calendar day of summed interest income. Days with no
// activity are present with a zero sum so that chart ranges are continuous.
type DailyBucket struct {
	Date     time.Time       `json:"date"`
	Income   decimal.Decimal `json:"income"`
	DailyAPY decimal.Decimal `json:"daily_apy"`
}

// ClassResult is what the exchange collaborator hands the pipeline for one
// record class: zero or more raw records, the name of the call strategy that
// produced them, or the error that exhausted every strategy.
type ClassResult struct {
	Class    RecordClass
	Records  []RawRecord
	Strategy string
	Err      error
}

// Failed reports whether the class fetch degraded to an empty collection.
func (c ClassResult) Failed() bool { return c.Err != nil }

// FetchResult carries the five record classes of one refresh cycle. Each
// class fails independently; losing trades must not prevent rendering loans.
type FetchResult struct {
	Wallet    ClassResult
	Ledger    ClassResult
	Positions ClassResult
	Offers    ClassResult
	Trades    ClassResult
}

// Classes returns the per-class results in a fixed order.
func (f FetchResult) Classes() []ClassResult {
	return []ClassResult{f.Wallet, f.Ledger, f.Positions, f.Offers, f.Trades}
}

// FetchDiagnostic records how one record class was obtained, for the
// transparency tooling at the output boundary.
type FetchDiagnostic struct {
	Class    RecordClass `json:"class"`
	Strategy string      `json:"strategy,omitempty"`
	Count    int         `json:"count"`
	Degraded bool        `json:"degraded"`
	Error    string      `json:"error,omitempty"`
}

// Report is everything one refresh cycle hands to the presentation layer.
// Partial is set when any record class degraded, so downstream rendering can
// mark the numbers as non-authoritative instead of presenting silence.
type Report struct {
	CycleID     string            `json:"cycle_id"`
	AsOf        time.Time         `json:"as_of"`
	Wallet      WalletSnapshot    `json:"wallet"`
	Book        FundingBook       `json:"book"`
	Metrics     Metrics           `json:"metrics"`
	Buckets     []DailyBucket     `json:"buckets"`
	Entries     []ClassifiedEntry `json:"entries"`
	Diagnostics []FetchDiagnostic `json:"diagnostics"`
	Partial     bool              `json:"partial"`
	Skipped     int               `json:"skipped"`
}
