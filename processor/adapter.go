package processor

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	appconfig "fundflow/config"
	"fundflow/models"
)

// Field names shared by the alias and offset tables.
const (
	fieldID          = "id"
	fieldTimestamp   = "timestamp"
	fieldAmount      = "amount"
	fieldRate        = "rate"
	fieldPeriod      = "period"
	fieldCurrency    = "currency"
	fieldType        = "type"
	fieldDescription = "description"
	fieldFlags       = "flags"
	fieldWalletType  = "wallet_type"
	fieldTotal       = "total"
	fieldFree        = "free"
)

// defaultOffsets are the positional layouts of the exchange's sequence-shaped
// records, one table per record class. The layout is a property of the wire
// format, not of this package, and has shifted across upstream API revisions;
// adapter.offsets in the configuration overrides individual entries.
var defaultOffsets = map[models.RecordClass]map[string]int{
	models.ClassWalletEntry: {
		fieldWalletType: 0,
		fieldCurrency:   1,
		fieldTotal:      2,
		fieldFree:       4,
	},
	models.ClassLedgerEntry: {
		fieldID:          0,
		fieldCurrency:    1,
		fieldTimestamp:   3,
		fieldAmount:      5,
		fieldDescription: 8,
	},
	models.ClassFundingPosition: {
		fieldID:        0,
		fieldTimestamp: 3,
		fieldAmount:    5,
		fieldRate:      11,
		fieldPeriod:    12,
	},
	models.ClassFundingOffer: {
		fieldID:        0,
		fieldTimestamp: 2,
		fieldAmount:    4,
		fieldRate:      14,
		fieldPeriod:    15,
	},
	models.ClassFundingTrade: {
		fieldID:        0,
		fieldTimestamp: 2,
		fieldAmount:    4,
		fieldRate:      5,
		fieldPeriod:    6,
	},
}

// fieldAliases are the prioritized key lists for mapping-shaped records.
// First present, non-null alias wins.
var fieldAliases = map[string][]string{
	fieldID:          {"id"},
	fieldTimestamp:   {"timestamp", "created", "mts", "date", "time"},
	fieldAmount:      {"amount", "amount_lent"},
	fieldRate:        {"rate", "rate_percent", "price"},
	fieldPeriod:      {"period"},
	fieldCurrency:    {"currency", "code"},
	fieldType:        {"type"},
	fieldDescription: {"description"},
	fieldFlags:       {"flags"},
	fieldWalletType:  {"wallet_type", "type"},
	fieldTotal:       {"total"},
	fieldFree:        {"free", "available"},
}

// metadataKeys name the nested blobs a mapping-shaped record may carry.
var metadataKeys = []string{"info", "details"}

// Adapter normalizes raw records of either shape into canonical records. An
// Adapter is built once per refresh cycle with that cycle's asOf instant, so
// every timestamp fallback inside the cycle resolves to the same value.
type Adapter struct {
	offsets       map[models.RecordClass]map[string]int
	defaultPeriod int
	asOf          time.Time
}

// NewAdapter builds an adapter from the configured offset overrides.
func NewAdapter(cfg *appconfig.Config, asOf time.Time) *Adapter {
	offsets := make(map[models.RecordClass]map[string]int, len(defaultOffsets))
	for class, fields := range defaultOffsets {
		merged := make(map[string]int, len(fields))
		for f, off := range fields {
			merged[f] = off
		}
		if overrides, ok := cfg.Adapter.Offsets[string(class)]; ok {
			for f, off := range overrides {
				merged[f] = off
			}
		}
		offsets[class] = merged
	}

	period := cfg.Classification.DefaultPeriodDays
	if period < 1 {
		period = 2
	}

	return &Adapter{offsets: offsets, defaultPeriod: period, asOf: asOf}
}

// NormalizeLedgerEntry converts one raw ledger record. The amount is the only
// mandatory field; a record whose amount cannot be coerced is rejected with
// MalformedRecordError, everything else degrades to defaults.
func (a *Adapter) NormalizeLedgerEntry(raw models.RawRecord) (models.LedgerEntry, error) {
	class := models.ClassLedgerEntry

	amountVal, ok := a.lookup(raw, class, fieldAmount)
	if !ok {
		return models.LedgerEntry{}, &models.MalformedRecordError{Class: class, Field: fieldAmount, Value: nil}
	}
	amount, ok := coerceDecimal(amountVal)
	if !ok {
		return models.LedgerEntry{}, &models.MalformedRecordError{Class: class, Field: fieldAmount, Value: amountVal}
	}

	entry := models.LedgerEntry{
		Timestamp: a.coerceTime(a.lookupValue(raw, class, fieldTimestamp)),
		Amount:    amount,
	}
	entry.Currency, _ = coerceString(a.lookupValue(raw, class, fieldCurrency))
	entry.DeclaredType, _ = coerceString(a.lookupValue(raw, class, fieldType))
	entry.Description, _ = coerceString(a.lookupValue(raw, class, fieldDescription))
	if raw.IsMapping() {
		entry.RawMetadata = metadataOf(raw.Mapping)
	}
	return entry, nil
}

// NormalizeWalletEntry converts one raw wallet record. The second return
// value is the wallet kind ("funding", "exchange", ...) so the caller can
// pick the funding wallet out of a mixed balance response.
func (a *Adapter) NormalizeWalletEntry(raw models.RawRecord) (models.WalletSnapshot, string, error) {
	class := models.ClassWalletEntry

	total, okTotal := coerceDecimal(a.lookupValue(raw, class, fieldTotal))
	free, okFree := coerceDecimal(a.lookupValue(raw, class, fieldFree))
	if !okTotal && !okFree {
		return models.WalletSnapshot{}, "", &models.MalformedRecordError{Class: class, Field: fieldTotal, Value: a.lookupValue(raw, class, fieldTotal)}
	}
	if !okTotal {
		total = decimal.Zero
	}
	if !okFree {
		free = decimal.Zero
	}

	currency, _ := coerceString(a.lookupValue(raw, class, fieldCurrency))
	kind, _ := coerceString(a.lookupValue(raw, class, fieldWalletType))

	return models.WalletSnapshot{
		Currency: strings.ToUpper(currency),
		Total:    total,
		Free:     free,
	}, strings.ToLower(kind), nil
}

// NormalizePosition converts one raw funding-position record. Position
// amounts arrive with lender-side sign applied upstream; the absolute value
// is kept since an active credit is always lent capital.
func (a *Adapter) NormalizePosition(raw models.RawRecord) (models.FundingPosition, error) {
	class := models.ClassFundingPosition

	amount, ok := coerceDecimal(a.lookupValue(raw, class, fieldAmount))
	if !ok {
		return models.FundingPosition{}, &models.MalformedRecordError{Class: class, Field: fieldAmount, Value: a.lookupValue(raw, class, fieldAmount)}
	}

	return models.FundingPosition{
		ID:         a.coerceID(raw, class),
		CreatedAt:  a.coerceTime(a.lookupValue(raw, class, fieldTimestamp)),
		Amount:     amount.Abs(),
		Rate:       a.decimalOrZero(raw, class, fieldRate),
		PeriodDays: a.periodOf(raw, class),
	}, nil
}

// NormalizeOffer converts one raw funding-offer record.
func (a *Adapter) NormalizeOffer(raw models.RawRecord) (models.FundingOffer, error) {
	class := models.ClassFundingOffer

	amount, ok := coerceDecimal(a.lookupValue(raw, class, fieldAmount))
	if !ok {
		return models.FundingOffer{}, &models.MalformedRecordError{Class: class, Field: fieldAmount, Value: a.lookupValue(raw, class, fieldAmount)}
	}

	var flags int64
	if v, found := a.lookup(raw, class, fieldFlags); found {
		if f, okF := coerceInt(v); okF {
			flags = f
		}
	}

	return models.FundingOffer{
		ID:         a.coerceID(raw, class),
		CreatedAt:  a.coerceTime(a.lookupValue(raw, class, fieldTimestamp)),
		Amount:     amount,
		Rate:       a.decimalOrZero(raw, class, fieldRate),
		PeriodDays: a.periodOf(raw, class),
		Flags:      flags,
	}, nil
}

// NormalizeTrade converts one raw funding-trade record. Sign is preserved:
// positive means this account acted as lender, and the book builder filters
// on that.
func (a *Adapter) NormalizeTrade(raw models.RawRecord) (models.FundingTrade, error) {
	class := models.ClassFundingTrade

	amount, ok := coerceDecimal(a.lookupValue(raw, class, fieldAmount))
	if !ok {
		return models.FundingTrade{}, &models.MalformedRecordError{Class: class, Field: fieldAmount, Value: a.lookupValue(raw, class, fieldAmount)}
	}

	return models.FundingTrade{
		ID:         a.coerceID(raw, class),
		CreatedAt:  a.coerceTime(a.lookupValue(raw, class, fieldTimestamp)),
		Amount:     amount,
		Rate:       a.decimalOrZero(raw, class, fieldRate),
		PeriodDays: a.periodOf(raw, class),
	}, nil
}

// lookup resolves a field from either shape. For mappings it walks the alias
// list, then the metadata blobs; for sequences it reads the class's offset
// table. The boolean reports whether a non-nil value was found.
func (a *Adapter) lookup(raw models.RawRecord, class models.RecordClass, field string) (interface{}, bool) {
	if raw.IsMapping() {
		for _, key := range fieldAliases[field] {
			if v, ok := raw.Mapping[key]; ok && v != nil {
				return v, true
			}
		}
		// period and flags often hide inside the metadata blob
		if field == fieldPeriod || field == fieldFlags {
			for _, metaKey := range metadataKeys {
				if meta, ok := raw.Mapping[metaKey].(map[string]interface{}); ok {
					if v, ok := meta[field]; ok && v != nil {
						return v, true
					}
				}
			}
		}
		return nil, false
	}
	if raw.IsSequence() {
		off, ok := a.offsets[class][field]
		if !ok || off >= len(raw.Sequence) {
			return nil, false
		}
		v := raw.Sequence[off]
		return v, v != nil
	}
	return nil, false
}

func (a *Adapter) lookupValue(raw models.RawRecord, class models.RecordClass, field string) interface{} {
	v, _ := a.lookup(raw, class, field)
	return v
}

func (a *Adapter) decimalOrZero(raw models.RawRecord, class models.RecordClass, field string) decimal.Decimal {
	if d, ok := coerceDecimal(a.lookupValue(raw, class, field)); ok {
		return d
	}
	return decimal.Zero
}

func (a *Adapter) periodOf(raw models.RawRecord, class models.RecordClass) int {
	if v, ok := a.lookup(raw, class, fieldPeriod); ok {
		if p, okP := coerceInt(v); okP && p >= 1 {
			return int(p)
		}
	}
	return a.defaultPeriod
}

func (a *Adapter) coerceID(raw models.RawRecord, class models.RecordClass) int64 {
	if v, ok := a.lookup(raw, class, fieldID); ok {
		if id, okID := coerceInt(v); okID {
			return id
		}
	}
	return 0
}

// coerceTime interprets a timestamp value that may be in seconds or
// milliseconds, numeric or string. Unparseable timestamps fall back to the
// cycle's asOf instant rather than failing: a malformed timestamp must never
// abort processing.
func (a *Adapter) coerceTime(v interface{}) time.Time {
	f, ok := coerceFloat(v)
	if !ok || f <= 0 {
		return a.asOf
	}
	if f > 1e12 { // milliseconds
		return time.UnixMilli(int64(f)).UTC()
	}
	return time.Unix(int64(f), 0).UTC()
}

func metadataOf(m map[string]interface{}) map[string]interface{} {
	for _, key := range metadataKeys {
		if meta, ok := m[key].(map[string]interface{}); ok && len(meta) > 0 {
			return meta
		}
	}
	return nil
}

func coerceDecimal(v interface{}) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case float64:
		return decimal.NewFromFloat(t), true
	case float32:
		return decimal.NewFromFloat32(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}

func coerceFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coerceInt(v interface{}) (int64, bool) {
	f, ok := coerceFloat(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func coerceString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}
