package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is the canonical, shape-independent form of one ledger record.
type LedgerEntry struct {
	Timestamp    time.Time              `json:"timestamp"`
	Amount       decimal.Decimal        `json:"amount"`
	Currency     string                 `json:"currency"`
	DeclaredType string                 `json:"declared_type,omitempty"`
	Description  string                 `json:"description,omitempty"`
	RawMetadata  map[string]interface{} `json:"raw_metadata,omitempty"`
}

// Classification is the role a ledger entry plays in the funding account.
type Classification string

const (
	PrincipalInflow  Classification = "principal_inflow"
	PrincipalOutflow Classification = "principal_outflow"
	InterestIncome   Classification = "interest_income"
	Ignored          Classification = "ignored"
)

// ClassifiedEntry pairs a canonical ledger entry with the classification
// assigned to it and the rule that produced it. Rule and Reason exist for
// diagnostic transparency: callers need to answer "why is this entry in/out".
type ClassifiedEntry struct {
	Entry          LedgerEntry    `json:"entry"`
	Classification Classification `json:"classification"`
	Rule           string         `json:"rule"`
	Reason         string         `json:"reason"`
}

// IsIncome reports whether the entry counts toward interest income.
func (c ClassifiedEntry) IsIncome() bool {
	return c.Classification == InterestIncome
}
