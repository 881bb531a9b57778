// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single financial transaction owned by a user.
// Amounts are exact decimals; binary floating point is never used for money.
type Transaction struct {
	Date        time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ID          string
	OwnerID     string
	Description string
	Amount      decimal.Decimal
	Flags       []FlagKind
	Categories  []TransactionCategoryLink
	IsFlagged   bool
	WasApproved bool
}

// HasDate reports whether the transaction carries a usable calendar date.
func (t *Transaction) HasDate() bool {
	return !t.Date.IsZero()
}

// CategoryIDs returns the set of category IDs currently linked to the transaction.
func (t *Transaction) CategoryIDs() map[string]bool {
	ids := make(map[string]bool, len(t.Categories))
	for _, link := range t.Categories {
		ids[link.CategoryID] = true
	}
	return ids
}
