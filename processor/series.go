package processor

import (
	"time"

	"github.com/shopspring/decimal"

	"fundflow/models"
)

// BucketDaily sums interest income per UTC calendar day over [start, end]
// inclusive, one bucket per day, zero where nothing happened. The function is
// deterministic and side-effect free, so callers can re-slice the same
// classified set into 7-day/30-day/1-year/all-time windows without
// refetching. principal feeds the per-day implied APY column; zero principal
// yields zero APY.
func BucketDaily(classified []models.ClassifiedEntry, start, end time.Time, principal decimal.Decimal) []models.DailyBucket {
	startDay := dateOf(start)
	endDay := dateOf(end)
	if startDay.After(endDay) {
		startDay = endDay
	}

	sums := make(map[time.Time]decimal.Decimal)
	for _, entry := range classified {
		if !entry.IsIncome() {
			continue
		}
		day := dateOf(entry.Entry.Timestamp)
		if day.Before(startDay) || day.After(endDay) {
			continue
		}
		sums[day] = sums[day].Add(entry.Entry.Amount)
	}

	days := int(endDay.Sub(startDay).Hours()/24) + 1
	buckets := make([]models.DailyBucket, 0, days)
	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		income := sums[day]
		bucket := models.DailyBucket{
			Date:     day,
			Income:   income,
			DailyAPY: decimal.Zero,
		}
		if principal.IsPositive() {
			bucket.DailyAPY = income.Div(principal).Mul(year).Mul(hundred)
		}
		buckets = append(buckets, bucket)
	}
	return buckets
}
