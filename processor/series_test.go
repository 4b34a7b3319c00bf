package processor

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundflow/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBucketDailyZeroFillsEmptyRange(t *testing.T) {
	buckets := BucketDaily(nil, day(2024, 1, 1), day(2024, 1, 3), decimal.Zero)
	require.Len(t, buckets, 3)
	for i, bucket := range buckets {
		assert.True(t, bucket.Income.IsZero(), "bucket %d", i)
		assert.True(t, bucket.DailyAPY.IsZero(), "bucket %d", i)
	}
	assert.True(t, buckets[0].Date.Equal(day(2024, 1, 1)))
	assert.True(t, buckets[2].Date.Equal(day(2024, 1, 3)))
}

func TestBucketDailySumsPerDay(t *testing.T) {
	classified := []models.ClassifiedEntry{
		income("0.10", day(2024, 1, 1).Add(3*time.Hour)),
		income("0.20", day(2024, 1, 1).Add(20*time.Hour)),
		income("0.40", day(2024, 1, 3)),
		{
			Entry:          models.LedgerEntry{Timestamp: day(2024, 1, 2), Amount: decimal.NewFromInt(100)},
			Classification: models.PrincipalInflow, // excluded from buckets
		},
	}

	buckets := BucketDaily(classified, day(2024, 1, 1), day(2024, 1, 3), decimal.Zero)
	require.Len(t, buckets, 3)
	assert.Equal(t, "0.3", buckets[0].Income.String())
	assert.True(t, buckets[1].Income.IsZero())
	assert.Equal(t, "0.4", buckets[2].Income.String())
}

func TestBucketDailyExcludesOutOfRange(t *testing.T) {
	classified := []models.ClassifiedEntry{
		income("1.00", day(2023, 12, 31)),
		income("2.00", day(2024, 1, 2)),
		income("4.00", day(2024, 1, 9)),
	}

	buckets := BucketDaily(classified, day(2024, 1, 1), day(2024, 1, 3), decimal.Zero)
	require.Len(t, buckets, 3)
	assert.Equal(t, "2", buckets[1].Income.String())
	total := decimal.Zero
	for _, bucket := range buckets {
		total = total.Add(bucket.Income)
	}
	assert.Equal(t, "2", total.String())
}

func TestBucketDailyIdempotent(t *testing.T) {
	classified := []models.ClassifiedEntry{
		income("0.10", day(2024, 1, 1)),
		income("0.20", day(2024, 1, 2).Add(7*time.Hour)),
	}

	first := BucketDaily(classified, day(2024, 1, 1), day(2024, 1, 5), decimal.NewFromInt(1000))
	second := BucketDaily(classified, day(2024, 1, 1), day(2024, 1, 5), decimal.NewFromInt(1000))
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.True(t, first[i].Date.Equal(second[i].Date), "bucket %d", i)
		assert.True(t, first[i].Income.Equal(second[i].Income), "bucket %d", i)
		assert.True(t, first[i].DailyAPY.Equal(second[i].DailyAPY), "bucket %d", i)
	}
}

func TestBucketDailyAPYColumn(t *testing.T) {
	classified := []models.ClassifiedEntry{income("0.10", day(2024, 1, 1))}

	buckets := BucketDaily(classified, day(2024, 1, 1), day(2024, 1, 1), decimal.NewFromInt(1000))
	require.Len(t, buckets, 1)
	// 0.10 / 1000 * 365 * 100 = 3.65
	assert.Equal(t, "3.65", buckets[0].DailyAPY.String())
}

func TestBucketDailyInvertedRangeClamps(t *testing.T) {
	buckets := BucketDaily(nil, day(2024, 1, 5), day(2024, 1, 1), decimal.Zero)
	require.Len(t, buckets, 1)
	assert.True(t, buckets[0].Date.Equal(day(2024, 1, 1)))
}
