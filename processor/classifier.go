package processor

import (
	"github.com/shopspring/decimal"

	appconfig "fundflow/config"
	"fundflow/models"
)

// Classifier assigns each canonical ledger entry a classification by running
// the rule cascade. It holds no mutable state and is safe to reuse within a
// cycle; a new one is built per cycle because the reference principal is a
// cycle-scoped input.
type Classifier struct {
	rules []Rule
	ctx   RuleContext
}

// NewClassifier builds a classifier from deployment configuration and the
// cycle's reference principal.
func NewClassifier(cfg appconfig.ClassificationConfig, referencePrincipal decimal.Decimal) *Classifier {
	return &Classifier{
		rules: Cascade(),
		ctx: RuleContext{
			ReferencePrincipal:  referencePrincipal,
			IncomeRateCeiling:   decimal.NewFromFloat(cfg.IncomeRateCeiling),
			AbsoluteIncomeFloor: decimal.NewFromFloat(cfg.AbsoluteIncomeFloor),
			IncomeKeywords:      cfg.IncomeKeywords,
			ExclusionKeywords:   cfg.ExclusionKeywords,
		},
	}
}

// Classify runs the cascade on one entry. The returned value always carries a
// classification: the final magnitude rule is a catch-all.
func (c *Classifier) Classify(entry models.LedgerEntry) models.ClassifiedEntry {
	for _, rule := range c.rules {
		if classification, reason, ok := rule.Apply(entry, c.ctx); ok {
			return models.ClassifiedEntry{
				Entry:          entry,
				Classification: classification,
				Rule:           rule.Name,
				Reason:         reason,
			}
		}
	}
	// Unreachable while the cascade ends in a catch-all; kept so a
	// misconfigured rule set degrades to Ignored instead of panicking.
	return models.ClassifiedEntry{Entry: entry, Classification: models.Ignored, Rule: "none", Reason: "no rule matched"}
}

// ClassifyAll classifies a batch, preserving input order.
func (c *Classifier) ClassifyAll(entries []models.LedgerEntry) []models.ClassifiedEntry {
	out := make([]models.ClassifiedEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, c.Classify(entry))
	}
	return out
}
