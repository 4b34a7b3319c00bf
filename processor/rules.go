package processor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fundflow/models"
)

// RuleContext carries the per-cycle inputs the cascade needs beyond the entry
// itself. ReferencePrincipal is the wallet total at the start of the cycle;
// when it is zero or unknown the absolute floor replaces the relative
// threshold.
type RuleContext struct {
	ReferencePrincipal  decimal.Decimal
	IncomeRateCeiling   decimal.Decimal
	AbsoluteIncomeFloor decimal.Decimal
	IncomeKeywords      []string
	ExclusionKeywords   []string
}

// Threshold returns the largest amount still plausible as a single interest
// payment: principal times the configured daily-rate ceiling, or the absolute
// floor when no principal reference exists.
func (ctx RuleContext) Threshold() decimal.Decimal {
	if ctx.ReferencePrincipal.IsPositive() {
		return ctx.ReferencePrincipal.Mul(ctx.IncomeRateCeiling)
	}
	return ctx.AbsoluteIncomeFloor
}

// Rule is one step of the classification cascade: a named predicate that
// either classifies the entry (matched true, with a human-readable reason) or
// passes it to the next rule. Rules are values so each can be unit-tested in
// isolation and the firing rule's name can be reported to the user.
type Rule struct {
	Name  string
	Apply func(e models.LedgerEntry, ctx RuleContext) (models.Classification, string, bool)
}

// Cascade returns the ordered rule list. First matching rule wins; the final
// magnitude rule always matches, so every entry gets a classification.
func Cascade() []Rule {
	return []Rule{
		{Name: "negative-amount", Apply: ruleNegativeAmount},
		{Name: "zero-amount", Apply: ruleZeroAmount},
		{Name: "exclusion-keyword", Apply: ruleExclusionKeyword},
		{Name: "income-keyword", Apply: ruleIncomeKeyword},
		{Name: "magnitude-threshold", Apply: ruleMagnitude},
	}
}

// Outflows are never income, whatever the description claims.
func ruleNegativeAmount(e models.LedgerEntry, _ RuleContext) (models.Classification, string, bool) {
	if e.Amount.IsNegative() {
		return models.PrincipalOutflow, "amount is negative", true
	}
	return "", "", false
}

func ruleZeroAmount(e models.LedgerEntry, _ RuleContext) (models.Classification, string, bool) {
	if e.Amount.IsZero() {
		return models.Ignored, "amount is zero", true
	}
	return "", "", false
}

// Capital movements masquerade as inflows; an exclusion keyword anywhere in
// the entry's text marks it as principal, not yield.
func ruleExclusionKeyword(e models.LedgerEntry, ctx RuleContext) (models.Classification, string, bool) {
	if kw, where, ok := matchKeyword(e, ctx.ExclusionKeywords); ok {
		return models.PrincipalInflow, fmt.Sprintf("exclusion keyword %q in %s", kw, where), true
	}
	return "", "", false
}

func ruleIncomeKeyword(e models.LedgerEntry, ctx RuleContext) (models.Classification, string, bool) {
	if kw, where, ok := matchKeyword(e, ctx.IncomeKeywords); ok {
		return models.InterestIncome, fmt.Sprintf("income keyword %q in %s", kw, where), true
	}
	return "", "", false
}

// ruleMagnitude handles entries with no usable text: anything at or below the
// plausible-interest threshold is income, anything above it is assumed to be
// a principal transfer. No legitimate funding payment exceeds the implied
// daily-rate ceiling.
func ruleMagnitude(e models.LedgerEntry, ctx RuleContext) (models.Classification, string, bool) {
	threshold := ctx.Threshold()
	if e.Amount.Cmp(threshold) <= 0 {
		return models.InterestIncome, fmt.Sprintf("amount %s within threshold %s", e.Amount, threshold), true
	}
	return models.PrincipalInflow, fmt.Sprintf("amount %s exceeds threshold %s", e.Amount, threshold), true
}

// matchKeyword scans declared type, description and the metadata blob for the
// first keyword hit, reporting which part of the entry matched.
func matchKeyword(e models.LedgerEntry, keywords []string) (keyword, where string, ok bool) {
	parts := []struct {
		name string
		text string
	}{
		{"declared_type", strings.ToLower(e.DeclaredType)},
		{"description", strings.ToLower(e.Description)},
		{"raw_metadata", metadataText(e.RawMetadata)},
	}
	for _, kw := range keywords {
		needle := strings.ToLower(kw)
		if needle == "" {
			continue
		}
		for _, part := range parts {
			if part.text != "" && strings.Contains(part.text, needle) {
				return kw, part.name, true
			}
		}
	}
	return "", "", false
}

func metadataText(meta map[string]interface{}) string {
	if len(meta) == 0 {
		return ""
	}
	blob, err := json.Marshal(meta)
	if err != nil {
		return ""
	}
	return strings.ToLower(string(blob))
}
