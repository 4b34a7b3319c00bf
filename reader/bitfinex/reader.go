package bitfinex

import (
	"context"
	"fmt"
	"time"

	appconfig "fundflow/config"
	"fundflow/logger"
	"fundflow/models"
)

// Reader pulls the five record classes one refresh cycle needs. Fetches are
// sequential: the account endpoints share a per-key rate budget and a cycle is
// not latency sensitive.
type Reader struct {
	cfg    *appconfig.Config
	client *Client
	log    *logger.Log
}

func NewReader(cfg *appconfig.Config) *Reader {
	return &Reader{
		cfg:    cfg,
		client: NewClient(cfg),
		log:    logger.GetLogger(),
	}
}

// FetchAll gathers every record class for one cycle anchored at asOf. A class
// whose strategies all fail comes back empty with its error recorded; FetchAll
// itself never fails, degradation is the pipeline's call.
func (r *Reader) FetchAll(ctx context.Context, asOf time.Time) models.FetchResult {
	return models.FetchResult{
		Wallet:    r.fetchClass(ctx, models.ClassWalletEntry, asOf),
		Ledger:    r.fetchClass(ctx, models.ClassLedgerEntry, asOf),
		Positions: r.fetchClass(ctx, models.ClassFundingPosition, asOf),
		Offers:    r.fetchClass(ctx, models.ClassFundingOffer, asOf),
		Trades:    r.fetchClass(ctx, models.ClassFundingTrade, asOf),
	}
}

// fetchClass walks the class's fallback strategies in order. A strategy that
// returns records wins. A strategy that succeeds but returns nothing falls
// through, since several endpoints answer an empty array for accounts they no
// longer serve; the empty success still counts, so the class only carries an
// error when every strategy failed.
func (r *Reader) fetchClass(ctx context.Context, class models.RecordClass, asOf time.Time) models.ClassResult {
	log := r.log.WithComponent("bitfinex_reader").WithFields(logger.Fields{"class": string(class)})
	result := models.ClassResult{Class: class}

	var lastErr error
	emptyStrategy := ""

	for _, s := range strategiesFor(class, r.cfg, asOf) {
		records, err := r.client.FetchAuth(ctx, s.path, s.body)
		if err != nil {
			lastErr = fmt.Errorf("strategy %s: %w", s.name, err)
			log.WithError(err).WithFields(logger.Fields{"strategy": s.name}).Warn("fetch strategy failed")
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if len(records) == 0 {
			if emptyStrategy == "" {
				emptyStrategy = s.name
			}
			log.WithFields(logger.Fields{"strategy": s.name}).Debug("strategy returned no records, trying next")
			continue
		}

		result.Strategy = s.name
		result.Records = records
		log.WithFields(logger.Fields{"strategy": s.name, "count": len(records)}).Info("records fetched")
		return result
	}

	if emptyStrategy != "" {
		// every populated strategy failed or was empty, but at least one
		// endpoint answered: the class is genuinely empty, not unavailable
		result.Strategy = emptyStrategy
		return result
	}

	result.Err = lastErr
	if lastErr != nil {
		log.WithError(lastErr).Warn("all fetch strategies failed")
	}
	return result
}
