package processor

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	appconfig "fundflow/config"
	"fundflow/models"
)

func entryWith(amount string, description string) models.LedgerEntry {
	return models.LedgerEntry{
		Timestamp:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString(amount),
		Currency:    "USD",
		Description: description,
	}
}

func TestNegativeAmountIsAlwaysOutflow(t *testing.T) {
	classifier := NewClassifier(appconfig.DefaultClassification(), decimal.NewFromInt(1000))

	// keywords must not override the sign
	for _, description := range []string{"", "Margin Funding Payment", "Deposit"} {
		got := classifier.Classify(entryWith("-5", description))
		assert.Equal(t, models.PrincipalOutflow, got.Classification, description)
		assert.Equal(t, "negative-amount", got.Rule)
	}
}

func TestZeroAmountIsIgnored(t *testing.T) {
	classifier := NewClassifier(appconfig.DefaultClassification(), decimal.NewFromInt(1000))

	got := classifier.Classify(entryWith("0", "Transfer"))
	assert.Equal(t, models.Ignored, got.Classification)
	assert.Equal(t, "zero-amount", got.Rule)
}

func TestExclusionKeywordBeatsIncomeKeyword(t *testing.T) {
	classifier := NewClassifier(appconfig.DefaultClassification(), decimal.NewFromInt(1000))

	// both "transfer" and "funding" appear; exclusion runs first
	got := classifier.Classify(entryWith("50", "Transfer to funding wallet"))
	assert.Equal(t, models.PrincipalInflow, got.Classification)
	assert.Equal(t, "exclusion-keyword", got.Rule)
	assert.Contains(t, got.Reason, "transfer")
}

func TestIncomeKeywordBeatsMagnitude(t *testing.T) {
	classifier := NewClassifier(appconfig.DefaultClassification(), decimal.NewFromInt(1000))

	// 0.42 with a funding-payment description is income regardless of size
	got := classifier.Classify(entryWith("0.42", "Margin Funding Payment"))
	assert.Equal(t, models.InterestIncome, got.Classification)
	assert.Equal(t, "income-keyword", got.Rule)
}

func TestKeywordInDeclaredType(t *testing.T) {
	classifier := NewClassifier(appconfig.DefaultClassification(), decimal.NewFromInt(1000))

	entry := entryWith("0.10", "")
	entry.DeclaredType = "PAYOUT"
	got := classifier.Classify(entry)
	assert.Equal(t, models.InterestIncome, got.Classification)
	assert.Contains(t, got.Reason, "declared_type")
}

func TestKeywordInMetadata(t *testing.T) {
	classifier := NewClassifier(appconfig.DefaultClassification(), decimal.NewFromInt(1000))

	entry := entryWith("0.10", "")
	entry.RawMetadata = map[string]interface{}{"reason": "funding payment on fUSD"}
	got := classifier.Classify(entry)
	assert.Equal(t, models.InterestIncome, got.Classification)
	assert.Contains(t, got.Reason, "raw_metadata")
}

func TestMagnitudeFallbackRelativeThreshold(t *testing.T) {
	classifier := NewClassifier(appconfig.DefaultClassification(), decimal.NewFromInt(1000))

	// threshold = 1000 * 0.005 = 5.0
	large := classifier.Classify(entryWith("745.54", ""))
	assert.Equal(t, models.PrincipalInflow, large.Classification)
	assert.Equal(t, "magnitude-threshold", large.Rule)
	assert.Contains(t, large.Reason, "exceeds threshold 5")

	small := classifier.Classify(entryWith("4.99", ""))
	assert.Equal(t, models.InterestIncome, small.Classification)

	exact := classifier.Classify(entryWith("5", ""))
	assert.Equal(t, models.InterestIncome, exact.Classification, "threshold is inclusive")
}

func TestMagnitudeFallbackAbsoluteThreshold(t *testing.T) {
	// no reference principal: the absolute floor takes over
	classifier := NewClassifier(appconfig.DefaultClassification(), decimal.Zero)

	small := classifier.Classify(entryWith("9.99", ""))
	assert.Equal(t, models.InterestIncome, small.Classification)

	large := classifier.Classify(entryWith("10.01", ""))
	assert.Equal(t, models.PrincipalInflow, large.Classification)
}

func TestClassifyAllPreservesOrderAndReportsRules(t *testing.T) {
	classifier := NewClassifier(appconfig.DefaultClassification(), decimal.NewFromInt(1000))

	entries := []models.LedgerEntry{
		entryWith("-1", ""),
		entryWith("0", ""),
		entryWith("0.42", "Margin Funding Payment"),
		entryWith("745.54", ""),
	}
	got := classifier.ClassifyAll(entries)
	assert.Len(t, got, 4)

	wantRules := []string{"negative-amount", "zero-amount", "income-keyword", "magnitude-threshold"}
	for i, want := range wantRules {
		assert.Equal(t, want, got[i].Rule, "entry %d", i)
		assert.NotEmpty(t, got[i].Reason, "entry %d", i)
	}
}

func TestCascadeRulesAreIndependentlyCallable(t *testing.T) {
	ctx := RuleContext{
		ReferencePrincipal:  decimal.NewFromInt(200),
		IncomeRateCeiling:   decimal.RequireFromString("0.005"),
		AbsoluteIncomeFloor: decimal.NewFromInt(10),
		IncomeKeywords:      []string{"interest"},
		ExclusionKeywords:   []string{"withdrawal"},
	}

	classification, _, ok := ruleExclusionKeyword(entryWith("3", "withdrawal fee"), ctx)
	assert.True(t, ok)
	assert.Equal(t, models.PrincipalInflow, classification)

	_, _, ok = ruleIncomeKeyword(entryWith("3", "no match here"), ctx)
	assert.False(t, ok)

	classification, _, ok = ruleMagnitude(entryWith("3", ""), ctx)
	assert.True(t, ok, "magnitude rule is a catch-all")
	assert.Equal(t, models.InterestIncome, classification)
}
