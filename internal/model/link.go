package model

import "time"

// LinkSource indicates whether a transaction-category link was created by a
// user action or by the rule engine.
type LinkSource string

// Link source constants.
const (
	AddedByUser LinkSource = "user"
	AddedByRule LinkSource = "rule"
)

// TransactionCategoryLink attaches a category to a transaction. A transaction
// holds at most one link per category, regardless of which rule or user action
// created it.
type TransactionCategoryLink struct {
	CreatedAt     time.Time
	ID            string
	TransactionID string
	CategoryID    string
	AddedBy       LinkSource
	RuleID        *string
}
