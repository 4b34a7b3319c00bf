package processor

import (
	"time"

	"github.com/shopspring/decimal"

	"fundflow/models"
)

var hundred = decimal.NewFromInt(100)
var year = decimal.NewFromInt(365)

// ComputeMetrics derives the principal/income/yield summary for one cycle.
// asOf is the single clock reading for the whole pass. Every ratio guards its
// denominator: a fresh, empty account renders zeros, never an error or NaN.
func ComputeMetrics(wallet models.WalletSnapshot, classified []models.ClassifiedEntry, asOf time.Time, windowDays int) models.Metrics {
	m := models.Metrics{
		AsOf:           asOf,
		TotalPrincipal: wallet.Total,
		WindowDays:     windowDays,
		Utilization:    decimal.Zero,
		WindowIncome:   decimal.Zero,
		WindowAPY:      decimal.Zero,
		LifetimeIncome: decimal.Zero,
		LifetimeAPY:    decimal.Zero,
	}

	if wallet.Total.IsPositive() {
		m.Utilization = wallet.Used().Div(wallet.Total).Mul(hundred)
	}

	// windowDays < 1 is the all-time preset: the window spans the whole
	// history and its APY is computed over the active-day count.
	allTime := windowDays < 1
	cutoff := asOf.AddDate(0, 0, -windowDays)
	var earliest time.Time
	for _, entry := range classified {
		if !entry.IsIncome() {
			continue
		}
		m.LifetimeIncome = m.LifetimeIncome.Add(entry.Entry.Amount)
		if allTime || !entry.Entry.Timestamp.Before(cutoff) {
			m.WindowIncome = m.WindowIncome.Add(entry.Entry.Amount)
		}
		if earliest.IsZero() || entry.Entry.Timestamp.Before(earliest) {
			earliest = entry.Entry.Timestamp
		}
	}

	if earliest.IsZero() || !wallet.Total.IsPositive() {
		return m
	}

	// Whole days from the first income entry through asOf, inclusive.
	// Floored at 1 so day-one accounts do not divide by zero.
	activeDays := int(dateOf(asOf).Sub(dateOf(earliest)).Hours()/24) + 1
	if activeDays < 1 {
		activeDays = 1
	}
	m.ActiveDays = activeDays

	m.LifetimeAPY = m.LifetimeIncome.
		Div(decimal.NewFromInt(int64(activeDays))).
		Div(wallet.Total).
		Mul(year).Mul(hundred)

	windowSpan := int64(windowDays)
	if allTime {
		windowSpan = int64(activeDays)
	}
	m.WindowAPY = m.WindowIncome.
		Div(decimal.NewFromInt(windowSpan)).
		Div(wallet.Total).
		Mul(year).Mul(hundred)

	return m
}

// SliceWindow returns the classified entries inside the trailing window of
// the given length, preserving order. Range presets re-slice one classified
// set; classification never reruns per preset. days <= 0 means all-time.
func SliceWindow(classified []models.ClassifiedEntry, asOf time.Time, days int) []models.ClassifiedEntry {
	if days <= 0 {
		return classified
	}
	cutoff := asOf.AddDate(0, 0, -days)
	window := make([]models.ClassifiedEntry, 0, len(classified))
	for _, entry := range classified {
		if !entry.Entry.Timestamp.Before(cutoff) && !entry.Entry.Timestamp.After(asOf) {
			window = append(window, entry)
		}
	}
	return window
}

// dateOf truncates an instant to its UTC calendar day.
func dateOf(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
