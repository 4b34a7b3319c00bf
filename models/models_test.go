package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRawRecordShapes(t *testing.T) {
	m := MappingRecord(map[string]interface{}{"amount": 1})
	if !m.IsMapping() || m.IsSequence() {
		t.Fatalf("mapping record misreports its shape: %+v", m)
	}
	s := SequenceRecord([]interface{}{1, 2})
	if !s.IsSequence() || s.IsMapping() {
		t.Fatalf("sequence record misreports its shape: %+v", s)
	}
}

func TestMalformedRecordErrorUnwraps(t *testing.T) {
	var err error = &MalformedRecordError{Class: ClassLedgerEntry, Field: "amount", Value: "x"}
	var malformed *MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatal("errors.As failed to match MalformedRecordError")
	}
	if malformed.Field != "amount" {
		t.Fatalf("unexpected field: %s", malformed.Field)
	}
}

func TestToAPY(t *testing.T) {
	apy := ToAPY(decimal.RequireFromString("0.0003"))
	if apy.String() != "10.95" {
		t.Fatalf("expected 10.95, got %s", apy)
	}
}

func TestWalletUsedClamped(t *testing.T) {
	w := WalletSnapshot{Total: decimal.NewFromInt(100), Free: decimal.NewFromInt(150)}
	if !w.Used().IsZero() {
		t.Fatalf("expected zero used, got %s", w.Used())
	}
	w = WalletSnapshot{Total: decimal.NewFromInt(100), Free: decimal.NewFromInt(30)}
	if w.Used().String() != "70" {
		t.Fatalf("expected 70 used, got %s", w.Used())
	}
}

func TestOfferIsFloating(t *testing.T) {
	if !(FundingOffer{Rate: decimal.Zero}).IsFloating() {
		t.Fatal("zero-rate offer should float")
	}
	if !(FundingOffer{Rate: decimal.RequireFromString("0.0002"), Flags: FRRFlag}).IsFloating() {
		t.Fatal("flagged offer should float")
	}
	if (FundingOffer{Rate: decimal.RequireFromString("0.0002")}).IsFloating() {
		t.Fatal("fixed-rate offer should not float")
	}
}

func TestPositionRemainingDays(t *testing.T) {
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	p := FundingPosition{CreatedAt: created, PeriodDays: 30}

	if !p.MaturesAt().Equal(created.AddDate(0, 0, 30)) {
		t.Fatalf("unexpected maturity: %s", p.MaturesAt())
	}
	if got := p.RemainingDays(created.AddDate(0, 0, 40)); got != 0 {
		t.Fatalf("matured position should report 0 days, got %f", got)
	}
	if got := p.RemainingDays(created.AddDate(0, 0, 29)); got != 1 {
		t.Fatalf("expected 1 remaining day, got %f", got)
	}
}

func TestClassResultFailed(t *testing.T) {
	ok := ClassResult{Class: ClassWalletEntry}
	if ok.Failed() {
		t.Fatal("empty successful result should not be failed")
	}
	bad := ClassResult{Class: ClassWalletEntry, Err: errors.New("boom")}
	if !bad.Failed() {
		t.Fatal("errored result should be failed")
	}
}

func TestFetchResultClassesCoversAll(t *testing.T) {
	f := FetchResult{
		Wallet:    ClassResult{Class: ClassWalletEntry},
		Ledger:    ClassResult{Class: ClassLedgerEntry},
		Positions: ClassResult{Class: ClassFundingPosition},
		Offers:    ClassResult{Class: ClassFundingOffer},
		Trades:    ClassResult{Class: ClassFundingTrade},
	}
	classes := f.Classes()
	if len(classes) != 5 {
		t.Fatalf("expected 5 classes, got %d", len(classes))
	}
	seen := map[RecordClass]bool{}
	for _, c := range classes {
		seen[c.Class] = true
	}
	for _, want := range []RecordClass{ClassWalletEntry, ClassLedgerEntry, ClassFundingPosition, ClassFundingOffer, ClassFundingTrade} {
		if !seen[want] {
			t.Fatalf("class %s missing from Classes()", want)
		}
	}
}
