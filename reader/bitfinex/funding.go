package bitfinex

import (
	"time"

	appconfig "fundflow/config"
	"fundflow/models"
)

// strategy is one way of obtaining a record class. Endpoints for the same
// data moved around across v2 revisions, so every class carries an ordered
// fallback list and the reader walks it until one yields records.
type strategy struct {
	name string
	path string
	body map[string]interface{}
}

func walletStrategies() []strategy {
	return []strategy{
		{name: "wallets", path: "v2/auth/r/wallets"},
	}
}

func ledgerStrategies(cfg *appconfig.Config, asOf time.Time) []strategy {
	since := asOf.AddDate(0, 0, -cfg.Reader.LookbackDays).UnixMilli()
	limit := cfg.Reader.LedgerLimit
	currency := cfg.Source.Bitfinex.Currency

	return []strategy{
		{
			name: "ledgers_currency_hist",
			path: "v2/auth/r/ledgers/" + currency + "/hist",
			body: map[string]interface{}{"start": since, "limit": limit},
		},
		{
			name: "ledgers_hist",
			path: "v2/auth/r/ledgers/hist",
			body: map[string]interface{}{"limit": limit},
		},
	}
}

func positionStrategies(cfg *appconfig.Config) []strategy {
	return []strategy{
		{name: "funding_credits_symbol", path: "v2/auth/r/funding/credits/" + cfg.Source.Bitfinex.Symbol},
		{name: "funding_credits_currency", path: "v2/auth/r/funding/credits/" + cfg.Source.Bitfinex.Currency},
	}
}

func offerStrategies(cfg *appconfig.Config) []strategy {
	return []strategy{
		{name: "funding_offers_symbol", path: "v2/auth/r/funding/offers/" + cfg.Source.Bitfinex.Symbol},
		{name: "funding_offers", path: "v2/auth/r/funding/offers"},
	}
}

func tradeStrategies(cfg *appconfig.Config) []strategy {
	limit := cfg.Reader.TradesLimit
	return []strategy{
		{
			name: "funding_trades_symbol_hist",
			path: "v2/auth/r/funding/trades/" + cfg.Source.Bitfinex.Symbol + "/hist",
			body: map[string]interface{}{"limit": limit},
		},
		{
			name: "funding_trades_hist",
			path: "v2/auth/r/funding/trades/hist",
			body: map[string]interface{}{"limit": limit},
		},
	}
}

func strategiesFor(class models.RecordClass, cfg *appconfig.Config, asOf time.Time) []strategy {
	switch class {
	case models.ClassWalletEntry:
		return walletStrategies()
	case models.ClassLedgerEntry:
		return ledgerStrategies(cfg, asOf)
	case models.ClassFundingPosition:
		return positionStrategies(cfg)
	case models.ClassFundingOffer:
		return offerStrategies(cfg)
	case models.ClassFundingTrade:
		return tradeStrategies(cfg)
	}
	return nil
}
