package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calloway/ledgersieve/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidRule        = errors.New("invalid rule")
	ErrInvalidLink        = errors.New("invalid transaction-category link")
	ErrInvalidFlag        = errors.New("invalid flag kind")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := validateTransaction(&txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction. Description and date
// may be absent; the anomaly detector flags those as incomplete rather than
// storage rejecting them.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.OwnerID == "" {
		return fmt.Errorf("%w: missing owner ID", ErrInvalidTransaction)
	}
	return nil
}

// validateCategory validates a category.
func validateCategory(category *model.Category) error {
	if category == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if category.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidCategory)
	}
	if category.OwnerID == "" {
		return fmt.Errorf("%w: missing owner ID", ErrInvalidCategory)
	}
	if strings.TrimSpace(category.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCategory)
	}
	return nil
}

// validateRule validates a categorization rule. Condition operand parsing is
// not storage's concern: a malformed operand is a configuration error that
// the evaluator resolves to no-match.
func validateRule(rule *model.CategorizationRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if rule.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRule)
	}
	if rule.OwnerID == "" {
		return fmt.Errorf("%w: missing owner ID", ErrInvalidRule)
	}
	if rule.CategoryID == "" {
		return fmt.Errorf("%w: missing category ID", ErrInvalidRule)
	}
	switch rule.ConditionType {
	case model.ConditionDescription, model.ConditionAmount, model.ConditionDate, model.ConditionAI:
	default:
		return fmt.Errorf("%w: unknown condition type %q", ErrInvalidRule, rule.ConditionType)
	}
	if rule.ConditionType == model.ConditionAI && (rule.AIPrompt == nil || strings.TrimSpace(*rule.AIPrompt) == "") {
		return fmt.Errorf("%w: ai rule requires a prompt", ErrInvalidRule)
	}
	return nil
}

// validateLink validates a transaction-category link.
func validateLink(link *model.TransactionCategoryLink) error {
	if link == nil {
		return fmt.Errorf("%w: link", ErrNilParameter)
	}
	if link.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidLink)
	}
	if link.TransactionID == "" {
		return fmt.Errorf("%w: missing transaction ID", ErrInvalidLink)
	}
	if link.CategoryID == "" {
		return fmt.Errorf("%w: missing category ID", ErrInvalidLink)
	}
	switch link.AddedBy {
	case model.AddedByUser, model.AddedByRule:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidLink, link.AddedBy)
	}
	if link.AddedBy == model.AddedByRule && (link.RuleID == nil || *link.RuleID == "") {
		return fmt.Errorf("%w: rule-added link requires a rule ID", ErrInvalidLink)
	}
	return nil
}

// validateFlags validates a flag set. An empty set is valid; it clears all
// flags.
func validateFlags(flags []model.FlagKind) error {
	for _, f := range flags {
		if !model.ValidFlagKind(f) {
			return fmt.Errorf("%w: %q", ErrInvalidFlag, f)
		}
	}
	return nil
}
