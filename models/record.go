package models

import "fmt"

// RecordClass identifies which exchange surface a raw record came from.
// Positional layouts differ per class, so the adapter needs to know it.
type RecordClass string

const (
	ClassWalletEntry     RecordClass = "wallet_entry"
	ClassLedgerEntry     RecordClass = "ledger_entry"
	ClassFundingPosition RecordClass = "funding_position"
	ClassFundingOffer    RecordClass = "funding_offer"
	ClassFundingTrade    RecordClass = "funding_trade"
)

// RawRecord is a single record as returned by the exchange client. Depending
// on which HTTP surface of the exchange answered, records arrive either
// mapping-shaped (field access by key) or sequence-shaped (field access by
// numeric offset). Exactly one of Mapping and Sequence is non-nil. The record
// is read-only once constructed.
type RawRecord struct {
	Mapping  map[string]interface{} `json:"mapping,omitempty"`
	Sequence []interface{}          `json:"sequence,omitempty"`
}

// MappingRecord wraps a key/value payload as a RawRecord.
func MappingRecord(m map[string]interface{}) RawRecord {
	return RawRecord{Mapping: m}
}

// SequenceRecord wraps a positional payload as a RawRecord.
func SequenceRecord(s []interface{}) RawRecord {
	return RawRecord{Sequence: s}
}

// IsMapping reports whether the record is mapping-shaped.
func (r RawRecord) IsMapping() bool { return r.Mapping != nil }

// IsSequence reports whether the record is sequence-shaped.
func (r RawRecord) IsSequence() bool { return r.Sequence != nil }

// MalformedRecordError is returned when the one load-bearing field of a
// record (the amount) cannot be coerced to a number. Every other field
// failure degrades to a default instead.
type MalformedRecordError struct {
	Class RecordClass
	Field string
	Value interface{}
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record: field %q not coercible from %v", e.Class, e.Field, e.Value)
}
