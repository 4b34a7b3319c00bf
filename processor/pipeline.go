package processor

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	appconfig "fundflow/config"
	"fundflow/logger"
	"fundflow/models"
)

// Pipeline runs one refresh cycle: normalize the five record classes,
// classify the ledger, build the funding book, derive metrics and daily
// buckets. It is synchronous and shares no mutable state between runs; every
// cycle constructs fresh canonical records from scratch.
type Pipeline struct {
	cfg *appconfig.Config
	log *logger.Log
}

func NewPipeline(cfg *appconfig.Config) *Pipeline {
	return &Pipeline{cfg: cfg, log: logger.GetLogger()}
}

// Run transforms one FetchResult into a Report. asOf is the single clock
// reading for the entire pass and is never re-read mid-calculation. Per-class
// fetch failures and per-record malformations degrade with diagnostics; Run
// itself fails only on impossible inputs.
func (p *Pipeline) Run(fetched models.FetchResult, asOf time.Time) (*models.Report, error) {
	log := p.log.WithComponent("pipeline")
	cycleID := uuid.NewString()
	adapter := NewAdapter(p.cfg, asOf)

	report := &models.Report{
		CycleID: cycleID,
		AsOf:    asOf,
	}

	wallet, skipped := p.selectWallet(adapter, fetched.Wallet)
	report.Wallet = wallet
	report.Skipped += skipped

	entries, skipped := p.normalizeLedger(adapter, fetched.Ledger)
	report.Skipped += skipped

	classifier := NewClassifier(p.cfg.Classification, wallet.Total)
	report.Entries = classifier.ClassifyAll(entries)

	positions, offers, trades, skipped := p.normalizeBook(adapter, fetched)
	report.Skipped += skipped
	report.Book = BuildBook(positions, offers, trades, asOf, p.cfg.Classification.RecentFillsLimit)
	report.Book.Skipped = skipped

	report.Metrics = ComputeMetrics(wallet, report.Entries, asOf, p.cfg.Classification.WindowDays)

	start := asOf
	for _, entry := range report.Entries {
		if entry.IsIncome() && entry.Entry.Timestamp.Before(start) {
			start = entry.Entry.Timestamp
		}
	}
	report.Buckets = BucketDaily(report.Entries, start, asOf, wallet.Total)

	for _, result := range fetched.Classes() {
		diag := models.FetchDiagnostic{
			Class:    result.Class,
			Strategy: result.Strategy,
			Count:    len(result.Records),
			Degraded: result.Failed(),
		}
		if result.Err != nil {
			diag.Error = result.Err.Error()
			report.Partial = true
		}
		report.Diagnostics = append(report.Diagnostics, diag)
	}

	log.WithFields(logger.Fields{
		"cycle_id": cycleID,
		"entries":  len(report.Entries),
		"loans":    len(report.Book.ActiveLoans),
		"offers":   len(report.Book.OpenOffers),
		"fills":    len(report.Book.RecentFills),
		"skipped":  report.Skipped,
		"partial":  report.Partial,
	}).Info("refresh cycle complete")

	p.log.LogMetric("pipeline", "records_skipped", report.Skipped, "counter", logger.Fields{"cycle_id": cycleID})
	p.log.LogMetric("pipeline", "ledger_entries", len(report.Entries), "counter", logger.Fields{"cycle_id": cycleID})

	return report, nil
}

// selectWallet normalizes the wallet records and picks the funding wallet for
// the configured currency. A funding-scoped entry wins over any other kind; a
// missing wallet degrades to a zero snapshot.
func (p *Pipeline) selectWallet(adapter *Adapter, result models.ClassResult) (models.WalletSnapshot, int) {
	currency := strings.ToUpper(p.cfg.Source.Bitfinex.Currency)
	log := p.log.WithComponent("pipeline")

	var chosen models.WalletSnapshot
	var found bool
	skipped := 0

	for _, raw := range result.Records {
		snapshot, kind, err := adapter.NormalizeWalletEntry(raw)
		if err != nil {
			skipped++
			log.WithError(err).Debug("skipping malformed wallet record")
			continue
		}
		if snapshot.Currency != "" && snapshot.Currency != currency {
			continue
		}
		if kind == "funding" {
			return snapshot, skipped
		}
		if !found {
			chosen = snapshot
			found = true
		}
	}

	if !found {
		chosen = models.WalletSnapshot{Currency: currency}
	}
	return chosen, skipped
}

func (p *Pipeline) normalizeLedger(adapter *Adapter, result models.ClassResult) ([]models.LedgerEntry, int) {
	log := p.log.WithComponent("pipeline")
	entries := make([]models.LedgerEntry, 0, len(result.Records))
	skipped := 0

	var malformed *models.MalformedRecordError
	for _, raw := range result.Records {
		entry, err := adapter.NormalizeLedgerEntry(raw)
		if err != nil {
			skipped++
			if errors.As(err, &malformed) {
				log.WithFields(logger.Fields{"field": malformed.Field}).Debug("skipping malformed ledger record")
			} else {
				log.WithError(err).Debug("skipping ledger record")
			}
			continue
		}
		entries = append(entries, entry)
	}
	return entries, skipped
}

func (p *Pipeline) normalizeBook(adapter *Adapter, fetched models.FetchResult) ([]models.FundingPosition, []models.FundingOffer, []models.FundingTrade, int) {
	log := p.log.WithComponent("pipeline")
	skipped := 0

	positions := make([]models.FundingPosition, 0, len(fetched.Positions.Records))
	for _, raw := range fetched.Positions.Records {
		position, err := adapter.NormalizePosition(raw)
		if err != nil {
			skipped++
			log.WithError(err).Debug("skipping malformed position record")
			continue
		}
		positions = append(positions, position)
	}

	offers := make([]models.FundingOffer, 0, len(fetched.Offers.Records))
	for _, raw := range fetched.Offers.Records {
		offer, err := adapter.NormalizeOffer(raw)
		if err != nil {
			skipped++
			log.WithError(err).Debug("skipping malformed offer record")
			continue
		}
		offers = append(offers, offer)
	}

	trades := make([]models.FundingTrade, 0, len(fetched.Trades.Records))
	for _, raw := range fetched.Trades.Records {
		trade, err := adapter.NormalizeTrade(raw)
		if err != nil {
			skipped++
			log.WithError(err).Debug("skipping malformed trade record")
			continue
		}
		trades = append(trades, trade)
	}

	return positions, offers, trades, skipped
}
