package processor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "fundflow/config"
	"fundflow/models"
)

func pipelineConfig() *appconfig.Config {
	cfg := testConfig()
	cfg.Source.Bitfinex.Currency = "USD"
	return cfg
}

func fetchedFixture(asOf time.Time) models.FetchResult {
	ms := func(t time.Time) float64 { return float64(t.UnixMilli()) }

	return models.FetchResult{
		Wallet: models.ClassResult{
			Class:    models.ClassWalletEntry,
			Strategy: "wallets",
			Records: []models.RawRecord{
				models.SequenceRecord([]interface{}{"exchange", "USD", float64(50), nil, float64(50)}),
				models.SequenceRecord([]interface{}{"funding", "USD", float64(1000), nil, float64(300)}),
			},
		},
		Ledger: models.ClassResult{
			Class:    models.ClassLedgerEntry,
			Strategy: "ledgers_hist",
			Records: []models.RawRecord{
				models.SequenceRecord([]interface{}{float64(1), "USD", nil, ms(asOf.AddDate(0, 0, -3)), nil, float64(0.42), nil, nil, "Margin Funding Payment on wallet funding"}),
				models.SequenceRecord([]interface{}{float64(2), "USD", nil, ms(asOf.AddDate(0, 0, -2)), nil, float64(745.54), nil, nil, ""}),
				models.MappingRecord(map[string]interface{}{"amount": "garbage"}), // skipped
				models.MappingRecord(map[string]interface{}{
					"timestamp":   ms(asOf.AddDate(0, 0, -1)),
					"amount":      0.38,
					"description": "Margin Funding Payment on wallet funding",
				}),
			},
		},
		Positions: models.ClassResult{
			Class:    models.ClassFundingPosition,
			Strategy: "funding_credits",
			Records: []models.RawRecord{
				models.SequenceRecord(func() []interface{} {
					seq := make([]interface{}, 13)
					seq[0] = float64(10)
					seq[3] = ms(asOf.AddDate(0, 0, -1))
					seq[5] = float64(700)
					seq[11] = float64(0.0003)
					seq[12] = float64(30)
					return seq
				}()),
			},
		},
		Offers: models.ClassResult{
			Class: models.ClassFundingOffer,
			Err:   errors.New("funding offers endpoint unavailable"),
		},
		Trades: models.ClassResult{
			Class:    models.ClassFundingTrade,
			Strategy: "funding_trades_hist",
			Records: []models.RawRecord{
				models.SequenceRecord([]interface{}{float64(20), nil, ms(asOf.AddDate(0, 0, -1)), nil, float64(700), float64(0.0003), float64(30)}),
				models.SequenceRecord([]interface{}{float64(21), nil, ms(asOf.AddDate(0, 0, -2)), nil, float64(-100), float64(0.0003), float64(2)}),
			},
		},
	}
}

func TestPipelineRunFullCycle(t *testing.T) {
	asOf := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	pipeline := NewPipeline(pipelineConfig())

	report, err := pipeline.Run(fetchedFixture(asOf), asOf)
	require.NoError(t, err)

	assert.NotEmpty(t, report.CycleID)
	assert.True(t, report.AsOf.Equal(asOf))

	// funding wallet beats the exchange wallet
	assert.Equal(t, "1000", report.Wallet.Total.String())
	assert.Equal(t, "70", report.Metrics.Utilization.String())

	// one ledger record had a garbage amount
	assert.Len(t, report.Entries, 3)
	assert.Equal(t, 1, report.Skipped)

	// 0.42 + 0.38 income, 745.54 principal inflow
	assert.Equal(t, "0.8", report.Metrics.LifetimeIncome.String())

	require.Len(t, report.Book.ActiveLoans, 1)
	assert.Equal(t, "10.95", report.Book.ActiveLoans[0].APY.String())
	require.Len(t, report.Book.RecentFills, 1, "borrower-side fill filtered out")

	// offers failed: empty collection, degraded diagnostic, partial report
	assert.Empty(t, report.Book.OpenOffers)
	assert.True(t, report.Partial)

	var offersDiag models.FetchDiagnostic
	for _, diag := range report.Diagnostics {
		if diag.Class == models.ClassFundingOffer {
			offersDiag = diag
		}
	}
	assert.True(t, offersDiag.Degraded)
	assert.Contains(t, offersDiag.Error, "unavailable")

	// buckets span first income day through asOf, inclusive
	require.Len(t, report.Buckets, 4)
	assert.Equal(t, "0.42", report.Buckets[0].Income.String())
}

func TestPipelineRunEmptyAccount(t *testing.T) {
	asOf := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	pipeline := NewPipeline(pipelineConfig())

	report, err := pipeline.Run(models.FetchResult{
		Wallet:    models.ClassResult{Class: models.ClassWalletEntry},
		Ledger:    models.ClassResult{Class: models.ClassLedgerEntry},
		Positions: models.ClassResult{Class: models.ClassFundingPosition},
		Offers:    models.ClassResult{Class: models.ClassFundingOffer},
		Trades:    models.ClassResult{Class: models.ClassFundingTrade},
	}, asOf)
	require.NoError(t, err)

	assert.False(t, report.Partial, "empty but successful fetches are not degraded")
	assert.Equal(t, "USD", report.Wallet.Currency)
	assert.True(t, report.Metrics.Utilization.IsZero())
	assert.True(t, report.Metrics.LifetimeAPY.IsZero())
	assert.Empty(t, report.Entries)
	require.Len(t, report.Buckets, 1, "degenerate range still yields the asOf day")
}

func TestPipelineRunsAreIndependent(t *testing.T) {
	asOf := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	pipeline := NewPipeline(pipelineConfig())
	fetched := fetchedFixture(asOf)

	first, err := pipeline.Run(fetched, asOf)
	require.NoError(t, err)
	second, err := pipeline.Run(fetched, asOf)
	require.NoError(t, err)

	assert.NotEqual(t, first.CycleID, second.CycleID)
	assert.True(t, first.Metrics.LifetimeIncome.Equal(second.Metrics.LifetimeIncome))
	assert.Equal(t, len(first.Buckets), len(second.Buckets))
}
